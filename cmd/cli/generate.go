package cli

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"symbograft/core"
	"symbograft/pkg/utils"
)

// RegisterGenerate wires `symbograft generate <dump.json> [-o out.exdb]`,
// which normalizes a raw disassembler export into an .exdb snapshot.
func RegisterGenerate(root *cobra.Command) {
	var output string

	cmd := &cobra.Command{
		Use:     "generate <dump.json>",
		Short:   "normalize a raw disassembler export into an exdb snapshot",
		Args:    cobra.ExactArgs(1),
		PreRunE: symboInitMiddleware,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := core.LoadRawDump(args[0])
			if err != nil {
				return err
			}
			db := core.Normalize(raw)

			out := output
			if out == "" {
				base := filepath.Base(args[0])
				out = base[:len(base)-len(filepath.Ext(base))] + ".exdb"
			}
			if err := core.SaveExecDB(out, db); err != nil {
				return utils.Wrap(err, "generate")
			}
			logrus.Infof("generate: wrote %d functions, %d strings, %d vtables to %s",
				len(db.Fns), len(db.Strings), len(db.Vtables), out)
			fmt.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output exdb path")
	root.AddCommand(cmd)
}
