package cmd

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"brimstone/asset"
	"brimstone/logger"
	"brimstone/remote"
	"brimstone/store"
	"brimstone/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	addKeep    bool
	addMove    bool
	assetsHash bool
)

var addCmd = &cobra.Command{
	Use:   "add <instance> mod|iwad <path-or-url>",
	Short: "Add a mod or iwad to an instance",
	Long: `Add a mod or iwad to an instance. Local files are copied into the data
directory (or moved with --move). URLs are downloaded into the data directory.`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		e := bootstrap()
		defer e.close()

		kind, err := parseKindArg(args[1])
		if err != nil {
			logger.Log.Fatalw("Invalid asset kind", zap.Error(err))
		}

		keep := e.cfg.KeepOriginals
		if cmd.Flags().Changed("keep") {
			keep = addKeep
		}
		if addMove {
			keep = false
		}

		ref, err := e.addAsset(args[0], kind, args[2], keep)
		if err != nil {
			logger.Log.Fatalw("Failed to add asset", zap.String("instance", args[0]), zap.String("source", args[2]), zap.Error(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s to '%s'\n", kind, ref.Path, args[0])
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <instance> mod|iwad <index>",
	Short: "Enable or disable a mod or iwad of an instance",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		e := bootstrap()
		defer e.close()

		kind, idx := parseAssetArgs(args)

		ref, err := e.toggleAsset(args[0], kind, idx)
		if err != nil {
			logger.Log.Fatalw("Failed to toggle asset", zap.String("instance", args[0]), zap.Error(err))
		}
		state := "disabled"
		if ref.Enabled {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ref.Path, state)
	},
}

var detachCmd = &cobra.Command{
	Use:   "detach <instance> mod|iwad <index>",
	Short: "Remove a mod or iwad from an instance",
	Long:  `Remove a mod or iwad reference from an instance. The file stays in the data directory.`,
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		e := bootstrap()
		defer e.close()

		kind, idx := parseAssetArgs(args)

		ref, err := e.detachAsset(args[0], kind, idx)
		if err != nil {
			logger.Log.Fatalw("Failed to detach asset", zap.String("instance", args[0]), zap.Error(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Detached %s from '%s'\n", ref.Path, args[0])
	},
}

var assetsCmd = &cobra.Command{
	Use:       "assets [mods|iwads]",
	Short:     "List the files kept in the data directory",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{store.ModsDir, store.IWADsDir},
	Run: func(cmd *cobra.Command, args []string) {
		e := bootstrap()
		defer e.close()

		kinds := asset.Kinds
		if len(args) == 1 {
			kind, err := parseKindArg(args[0])
			if err != nil {
				logger.Log.Fatalw("Invalid asset kind", zap.Error(err))
			}
			kinds = []asset.Kind{kind}
		}

		for _, k := range kinds {
			if err := listAssets(cmd.OutOrStdout(), e.store, k, assetsHash); err != nil {
				logger.Log.Fatalw("Failed to list assets", zap.Stringer("kind", k), zap.Error(err))
			}
		}
	},
}

func init() {
	addCmd.Flags().BoolVar(&addKeep, "keep", true, "copy the file and keep the original (defaults to keep_originals)")
	addCmd.Flags().BoolVar(&addMove, "move", false, "move the file into the data directory")
	assetsCmd.Flags().BoolVar(&assetsHash, "sha1", false, "print the SHA-1 of each file")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(detachCmd)
	rootCmd.AddCommand(assetsCmd)
}

func parseAssetArgs(args []string) (asset.Kind, int) {
	kind, err := parseKindArg(args[1])
	if err != nil {
		logger.Log.Fatalw("Invalid asset kind", zap.Error(err))
	}
	idx, err := parseIndex(args[2])
	if err != nil {
		logger.Log.Fatalw("Invalid asset index", zap.Error(err))
	}
	return kind, idx
}

// addAsset brings source into the store and appends it to the instance.
// Sources that are http(s) URLs are downloaded first.
func (e *env) addAsset(name string, kind asset.Kind, source string, keep bool) (asset.Ref, error) {
	entry, err := e.catalog.Get(name)
	if err != nil {
		return asset.Ref{}, err
	}

	if remote.IsURL(source) {
		source, err = e.download(source)
		if err != nil {
			return asset.Ref{}, err
		}
		// the download is ours, no reason to keep a second copy
		keep = false
	} else if source, err = filepath.Abs(source); err != nil {
		return asset.Ref{}, err
	}

	ref, err := kind.Relocate(e.store, asset.New(source), keep)
	if err != nil {
		return asset.Ref{}, err
	}
	entry.Instance = entry.Instance.AddRef(kind, ref)
	if err := e.catalog.Save(entry); err != nil {
		return asset.Ref{}, err
	}
	logger.Log.Infow("Asset added", zap.String("instance", name), zap.Stringer("kind", kind), zap.String("path", ref.Path))
	return ref, nil
}

func (e *env) download(rawURL string) (string, error) {
	client, err := remote.NewClient(e.cfg.UserAgent)
	if err != nil {
		return "", err
	}
	dir, err := e.store.FullDirectory(store.DownloadsDir)
	if err != nil {
		return "", err
	}
	return client.DownloadFile(logger.Log, dir, rawURL)
}

func (e *env) toggleAsset(name string, kind asset.Kind, idx int) (asset.Ref, error) {
	entry, err := e.catalog.Get(name)
	if err != nil {
		return asset.Ref{}, err
	}
	entry.Instance, err = entry.Instance.ToggleRef(kind, idx)
	if err != nil {
		return asset.Ref{}, err
	}
	if err := e.catalog.Save(entry); err != nil {
		return asset.Ref{}, err
	}
	return entry.Instance.Refs(kind)[idx], nil
}

func (e *env) detachAsset(name string, kind asset.Kind, idx int) (asset.Ref, error) {
	entry, err := e.catalog.Get(name)
	if err != nil {
		return asset.Ref{}, err
	}
	before := entry.Instance.Refs(kind)
	entry.Instance, err = entry.Instance.RemoveRef(kind, idx)
	if err != nil {
		return asset.Ref{}, err
	}
	return before[idx], e.catalog.Save(entry)
}

func listAssets(w io.Writer, s *store.Store, kind asset.Kind, withHash bool) error {
	files, err := s.Find(kind.Dir())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (%d)\n", kind.Dir(), len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			logger.Log.Warnw("Failed to stat asset", zap.String("file", f), zap.Error(err))
			continue
		}
		line := fmt.Sprintf("  %-40s %10s", filepath.Base(f), ui.FormatBytes(info.Size()))
		if withHash {
			hash, err := calculateSHA1(f)
			if err != nil {
				logger.Log.Warnw("Failed to calculate hash", zap.String("file", f), zap.Error(err))
			}
			line += "  " + hash
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func calculateSHA1(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha1.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
