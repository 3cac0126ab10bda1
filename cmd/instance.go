package cmd

import (
	"fmt"
	"io"

	"brimstone/asset"
	"brimstone/db"
	"brimstone/instance"
	"brimstone/logger"
	"brimstone/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty instance",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := bootstrap()
		defer e.close()

		entry, err := e.createInstance(args[0])
		if err != nil {
			logger.Log.Fatalw("Failed to create instance", zap.String("name", args[0]), zap.Error(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created instance '%s' (saves in %s)\n", entry.Name(), entry.Instance.GameData.SaveDir)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an instance from the catalog",
	Long:  `Remove an instance from the catalog. Its assets and saves stay in the data directory.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := bootstrap()
		defer e.close()

		if err := e.catalog.Remove(args[0]); err != nil {
			logger.Log.Fatalw("Failed to remove instance", zap.String("name", args[0]), zap.Error(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed instance '%s'\n", args[0])
	},
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show an instance's assets, parameters and play history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := bootstrap()
		defer e.close()

		entry, err := e.catalog.Get(args[0])
		if err != nil {
			logger.Log.Fatalw("Failed to load instance", zap.String("name", args[0]), zap.Error(err))
		}
		sessions, err := e.catalog.Sessions(entry.ID)
		if err != nil {
			logger.Log.Warnw("Failed to load sessions", zap.String("name", args[0]), zap.Error(err))
		}
		printInstance(cmd.OutOrStdout(), entry, sessions)
	},
}

var paramsCmd = &cobra.Command{
	Use:   "params <name> -- [tokens...]",
	Short: "Replace the additional engine parameters of an instance",
	Long: `Replace the additional engine parameters of an instance. Tokens are passed
to the engine verbatim, after the iwads, mods and save directory.
Run without tokens to clear them.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := bootstrap()
		defer e.close()

		if err := e.setParams(args[0], args[1:]); err != nil {
			logger.Log.Fatalw("Failed to update parameters", zap.String("name", args[0]), zap.Error(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated parameters of '%s'\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(paramsCmd)
}

// createInstance adds a new empty instance and makes its save directory.
func (e *env) createInstance(name string) (db.Entry, error) {
	inst := instance.New(name)
	if err := inst.Validate(); err != nil {
		return db.Entry{}, err
	}
	if err := inst.CreateSaveDir(e.store); err != nil {
		return db.Entry{}, err
	}
	return e.catalog.Add(inst)
}

func (e *env) setParams(name string, tokens []string) error {
	entry, err := e.catalog.Get(name)
	if err != nil {
		return err
	}
	entry.Instance.GameData.AdditionalParams = append([]string{}, tokens...)
	return e.catalog.Save(entry)
}

func printInstance(w io.Writer, entry db.Entry, sessions []db.SessionRecord) {
	inst := entry.Instance
	fmt.Fprintln(w, ui.Colorize(inst.Metadata.Name, ui.NameColor(inst.Metadata.Name)))
	fmt.Fprintf(w, "  playtime:    %s\n", ui.FormatPlaytime(inst.Metadata.Playtime))
	fmt.Fprintf(w, "  last played: %s\n", ui.FormatLastPlayed(inst.Metadata.LastPlayed))
	fmt.Fprintf(w, "  savedir:     %s\n", inst.GameData.SaveDir)
	if len(inst.GameData.AdditionalParams) > 0 {
		fmt.Fprintf(w, "  params:      %v\n", inst.GameData.AdditionalParams)
	}

	for _, k := range asset.Kinds {
		refs := inst.Refs(k)
		fmt.Fprintf(w, "  %s:\n", k.Dir())
		if len(refs) == 0 {
			fmt.Fprintln(w, "    (none)")
		}
		for i, r := range refs {
			mark := "x"
			if !r.Enabled {
				mark = " "
			}
			fmt.Fprintf(w, "    %2d [%s] %s\n", i+1, mark, r.Path)
		}
	}

	if len(sessions) > 0 {
		fmt.Fprintln(w, "  sessions:")
		for _, s := range sessions {
			fmt.Fprintf(w, "    %s  %-10s exit %d\n", s.StartedAt.Local().Format("2006-01-02 15:04"), ui.FormatPlaytime(s.Duration), s.ExitCode)
		}
	}
}
