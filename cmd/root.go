package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "brimstone",
	Short: "Manage and share Doom engine game instances",
	Long: `brimstone keeps game instances: an iwad, a load order of mods,
a save directory and extra engine parameters. Instances can be launched,
and exported into a single .brimpkg package that another machine can import.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/brimstone/config.toml)")
}
