package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"brimstone/db"
	"brimstone/logger"
	"brimstone/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type sortMode string

const (
	sortByName       sortMode = "name"
	sortByPlaytime   sortMode = "playtime"
	sortByLastPlayed sortMode = "last-played"
)

var listSort string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List instances",
	Long:  `List every instance in the catalog together with its playtime and when it was last played.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		e := bootstrap()
		defer e.close()

		mode, err := parseSortMode(listSort)
		if err != nil {
			logger.Log.Fatalw("Invalid sort mode", zap.Error(err))
		}

		entries, err := listInstances(e.catalog, mode)
		if err != nil {
			logger.Log.Fatalw("Failed to list instances", zap.Error(err))
		}
		total, err := e.catalog.TotalPlaytime()
		if err != nil {
			logger.Log.Fatalw("Failed to sum playtime", zap.Error(err))
		}
		printInstances(cmd.OutOrStdout(), entries, total)
	},
}

func init() {
	listCmd.Flags().StringVarP(&listSort, "sort", "s", string(sortByLastPlayed), "order by playtime, last-played or name")
	rootCmd.AddCommand(listCmd)
}

func parseSortMode(s string) (sortMode, error) {
	switch mode := sortMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case sortByName, sortByPlaytime, sortByLastPlayed:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown sort mode '%s'", s)
	}
}

// listInstances returns the catalog in the requested order. Played
// instances come first for the playtime based orders.
func listInstances(c *db.Catalog, mode sortMode) ([]db.Entry, error) {
	var played []db.Entry
	var err error
	switch mode {
	case sortByName:
		entries, err := c.List()
		if err != nil {
			return nil, err
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
		})
		return entries, nil
	case sortByPlaytime:
		played, err = c.ByPlaytime()
	default:
		played, err = c.ByLastPlayed()
	}
	if err != nil {
		return nil, err
	}

	unplayed, err := c.Unplayed()
	if err != nil {
		return nil, err
	}
	return append(played, unplayed...), nil
}

func printInstances(w io.Writer, entries []db.Entry, total time.Duration) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No instances yet. Create one with `brimstone create <name>`.")
		return
	}
	for _, e := range entries {
		meta := e.Instance.Metadata
		name := ui.Colorize(fmt.Sprintf("%-30s", truncate(e.Name(), 30)), ui.NameColor(e.Name()))
		fmt.Fprintf(w, "%s %-14s %s\n", name, ui.FormatPlaytime(meta.Playtime), ui.FormatLastPlayed(meta.LastPlayed))
	}
	if total > 0 {
		fmt.Fprintf(w, "\n%d instances, %s played in total\n", len(entries), ui.FormatPlaytime(total))
	}
}
