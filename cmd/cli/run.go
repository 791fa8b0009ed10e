package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"symbograft/core"
)

// RegisterRun wires `symbograft run <from.exdb> <to.exdb> [-o binds]`,
// the full propagation loop. An existing binds file is resumed; a fresh
// one is seeded from vtable alignment.
func RegisterRun(root *cobra.Command) {
	var out string

	cmd := &cobra.Command{
		Use:     "run <from.exdb> <to.exdb>",
		Short:   "propagate symbols from the named binary to the stripped one",
		Args:    cobra.ExactArgs(2),
		PreRunE: symboInitMiddleware,
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, err := loadPair(args[0], args[1])
			if err != nil {
				return err
			}

			bindsPath := bindsPathOr(out)
			oracle := core.NewTerminalOracle()

			var binds *core.BindDB
			if _, statErr := os.Stat(bindsPath); statErr == nil {
				binds, err = core.LoadBindDB(bindsPath, oracle)
				if err != nil {
					return err
				}
				logrus.Infof("run: resuming %s with %d symbols", bindsPath, len(binds.Binds))
			} else {
				binds = core.NewBindDB(oracle, bindsPath)
				binds.Seed(pair)
				if err := binds.Save(); err != nil {
					return err
				}
			}

			added, verified, err := core.NewDriver(pair, binds).Run()
			if err != nil {
				return err
			}
			logrus.Infof("run: done, %d added, %d verified, %d total", added, verified, len(binds.Binds))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "binds file path")
	root.AddCommand(cmd)
}

func loadPair(fromPath, toPath string) (*core.ExecPair, error) {
	input, err := core.LoadExecDB(fromPath)
	if err != nil {
		return nil, err
	}
	output, err := core.LoadExecDB(toPath)
	if err != nil {
		return nil, err
	}
	return &core.ExecPair{Input: input, Output: output}, nil
}
