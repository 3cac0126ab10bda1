package cmd

import (
	"fmt"

	"brimstone/logger"
	"brimstone/packager"
	"brimstone/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportSaves    bool
	exportPlaytime bool
)

var exportCmd = &cobra.Command{
	Use:   "export <instance> [dest]",
	Short: "Write an instance and its files into a package",
	Long: `Write an instance, its mods and iwads and optionally its saves into a
single .brimpkg package that can be imported on another machine.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		e := bootstrap()
		defer e.close()

		entry, err := e.catalog.Get(args[0])
		if err != nil {
			logger.Log.Fatalw("Failed to load instance", zap.String("name", args[0]), zap.Error(err))
		}

		dest := defaultPackagePath(entry.Name())
		if len(args) == 2 {
			dest = args[1]
		}

		res, err := e.packager.Pack(entry.Instance, dest, packager.ExportOptions{
			TransferSaves:    exportSaves,
			TransferPlaytime: exportPlaytime,
		})
		if err != nil {
			logger.Log.Fatalw("Failed to export instance", zap.String("name", args[0]), zap.Error(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported '%s' to %s (%d entries, %s)\n",
			entry.Name(), res.Path, len(res.Entries), ui.FormatBytes(res.Bytes))
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportSaves, "saves", false, "include the save directory")
	exportCmd.Flags().BoolVar(&exportPlaytime, "playtime", false, "include playtime and last played")
	rootCmd.AddCommand(exportCmd)
}
