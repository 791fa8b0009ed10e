package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"symbograft/core"
	"symbograft/pkg/utils"
)

// RegisterFind wires `symbograft find <from.exdb> <to.exdb> -s <symbol>`
// plus the class-range form `--class <C> --start <lo> --end <hi>`.
func RegisterFind(root *cobra.Command) {
	var (
		symbol string
		class  string
		start  string
		end    string
		out    string
	)

	cmd := &cobra.Command{
		Use:     "find <from.exdb> <to.exdb>",
		Short:   "interactively locate one symbol or a class address range",
		Args:    cobra.ExactArgs(2),
		PreRunE: symboInitMiddleware,
		RunE: func(cmd *cobra.Command, args []string) error {
			if symbol == "" && class == "" {
				return fmt.Errorf("find: either --symbol or --class is required")
			}

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
			} else {
				binds = core.NewBindDB(oracle, bindsPath)
				binds.Seed(pair)
			}

			finder := core.NewFinder(pair, binds)
			threshold := core.DefaultCandidateThreshold
			if symboCfg != nil && symboCfg.Analysis.CandidateThreshold > 0 {
				threshold = symboCfg.Analysis.CandidateThreshold
			}
			finder.Threshold = utils.EnvOrDefaultInt("SYMBO_THRESHOLD", threshold)

			if symbol != "" {
				if err := finder.FindSymbol(symbol); err != nil {
					return err
				}
				return binds.Save()
			}

			lo, err := parseAddr(start)
			if err != nil {
				return fmt.Errorf("find: bad --start: %w", err)
			}
			hi, err := parseAddr(end)
			if err != nil {
				return fmt.Errorf("find: bad --end: %w", err)
			}
			if err := finder.FindRange(class, lo, hi); err != nil {
				return err
			}
			return binds.Save()
		},
	}
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "mangled symbol to locate")
	cmd.Flags().StringVar(&class, "class", "", "class name for range mode")
	cmd.Flags().StringVar(&start, "start", "0", "range start address")
	cmd.Flags().StringVar(&end, "end", "0", "range end address")
	cmd.Flags().StringVarP(&out, "out", "o", "", "binds file path")
	root.AddCommand(cmd)
}
