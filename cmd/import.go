package cmd

import (
	"fmt"
	"io"

	"brimstone/db"
	"brimstone/logger"
	"brimstone/packager"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCmd = &cobra.Command{
	Use:   "import <package>",
	Short: "Import an instance from a package",
	Long: `Import an instance from a .brimpkg package. Files that already exist in
the data directory are kept as they are.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := bootstrap()
		defer e.close()

		entry, res, err := e.importPackage(args[0])
		if err != nil {
			logger.Log.Fatalw("Failed to import package", zap.String("package", args[0]), zap.Error(err))
		}
		printImport(cmd.OutOrStdout(), entry, res)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func (e *env) importPackage(path string) (db.Entry, *packager.ImportResult, error) {
	res, err := e.packager.Unpack(path)
	if err != nil {
		return db.Entry{}, nil, err
	}
	entry, err := e.catalog.Add(res.Instance)
	if err != nil {
		return db.Entry{}, res, err
	}
	return entry, res, nil
}

func printImport(w io.Writer, entry db.Entry, res *packager.ImportResult) {
	fmt.Fprintf(w, "Imported '%s' (%d files extracted)\n", entry.Name(), len(res.Extracted))
	if len(res.Skipped) > 0 {
		fmt.Fprintf(w, "Kept %d existing files:\n", len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
}
