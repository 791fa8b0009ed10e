package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"symbograft/core"
)

// RegisterPrint wires `symbograft print <exec.exdb> <addr>`, a YAML dump
// of one function for inspection.
func RegisterPrint(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "print <exec.exdb> <addr>",
		Short:   "dump one function of a snapshot as YAML",
		Args:    cobra.ExactArgs(2),
		PreRunE: symboInitMiddleware,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := core.LoadExecDB(args[0])
			if err != nil {
				return err
			}
			addr, err := parseAddr(args[1])
			if err != nil {
				return err
			}
			fn, ok := db.Fns[addr]
			if !ok {
				return fmt.Errorf("print: no function at %#x in %s", addr, args[0])
			}
			data, err := yaml.Marshal(fn)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
	root.AddCommand(cmd)
}

func parseAddr(s string) (uint64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}
