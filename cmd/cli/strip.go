package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"symbograft/core"
)

// RegisterStrip wires `symbograft strip <binds>`, which drops every
// Unverified entry from a binds file, leaving only human-confirmed state.
func RegisterStrip(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "strip <binds>",
		Short:   "remove every unverified entry from a binds file",
		Args:    cobra.ExactArgs(1),
		PreRunE: symboInitMiddleware,
		RunE: func(cmd *cobra.Command, args []string) error {
			binds, err := core.LoadBindDB(args[0], core.NewTerminalOracle())
			if err != nil {
				return err
			}
			removed := binds.Strip()
			if err := binds.Save(); err != nil {
				return err
			}
			logrus.Infof("strip: removed %d unverified symbols, %d remain", removed, len(binds.Binds))
			return nil
		},
	}
	root.AddCommand(cmd)
}
