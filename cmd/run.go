package cmd

import (
	"fmt"
	"io"
	"os"

	"brimstone/db"
	"brimstone/instance"
	"brimstone/logger"
	"brimstone/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runDryRun bool

var runCmd = &cobra.Command{
	Use:   "run <instance>",
	Short: "Launch an instance",
	Long: `Launch an instance with the configured engine and wait for it to exit.
The session is added to the instance's playtime.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := bootstrap()
		defer e.close()

		entry, err := e.catalog.Get(args[0])
		if err != nil {
			logger.Log.Fatalw("Failed to load instance", zap.String("name", args[0]), zap.Error(err))
		}

		command, err := entry.Instance.FullCommand(e.store, e.cfg.LaunchCommand)
		if err != nil {
			logger.Log.Fatalw("Failed to build launch command", zap.String("name", args[0]), zap.Error(err))
		}
		if runDryRun {
			fmt.Fprintln(cmd.OutOrStdout(), command)
			return
		}

		res, err := e.runInstance(entry, command, instance.LaunchOptions{Stdout: os.Stdout, Stderr: os.Stderr})
		if err != nil {
			logger.Log.Fatalw("Failed to run instance", zap.String("name", args[0]), zap.Error(err))
		}
		printSession(cmd.OutOrStdout(), entry.Name(), res)
	},
}

func init() {
	runCmd.Flags().BoolVarP(&runDryRun, "dry-run", "n", false, "print the launch command instead of running it")
	rootCmd.AddCommand(runCmd)
}

// runInstance plays entry to completion and stores the session. A game
// that exits with an error still counts as played.
func (e *env) runInstance(entry db.Entry, command string, opts instance.LaunchOptions) (instance.SessionResult, error) {
	if err := entry.Instance.CreateSaveDir(e.store); err != nil {
		return instance.SessionResult{}, err
	}

	logger.Log.Infow("Launching instance", zap.String("name", entry.Name()), zap.String("command", command))
	res, err := entry.Instance.Run(command, opts)
	if err != nil {
		return res, err
	}
	if res.Err != nil {
		logger.Log.Warnw("Game exited with an error", zap.String("name", entry.Name()), zap.Int("exit_code", res.ExitCode), zap.Error(res.Err))
	}
	logger.Log.Infow("Session finished", zap.String("name", entry.Name()), zap.Duration("duration", res.Duration))

	if err := e.catalog.RecordSession(entry, res); err != nil {
		return res, err
	}
	return res, nil
}

func printSession(w io.Writer, name string, res instance.SessionResult) {
	fmt.Fprintf(w, "Played '%s' for %s", name, ui.FormatPlaytime(res.Duration))
	if res.ExitCode != 0 {
		fmt.Fprintf(w, " (exit code %d)", res.ExitCode)
	}
	fmt.Fprintln(w)
}
