package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	// Running without a subcommand lists the instances
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		listCmd.Run(listCmd, []string{})
	}
}
