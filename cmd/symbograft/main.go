package main

import (
	"os"

	"github.com/spf13/cobra"

	"symbograft/cmd/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "symbograft",
		Short: "propagate symbol names between two builds of one binary",
	}
	cli.RegisterGenerate(rootCmd)
	cli.RegisterRun(rootCmd)
	cli.RegisterPrint(rootCmd)
	cli.RegisterStrip(rootCmd)
	cli.RegisterFind(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
