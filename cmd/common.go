package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"brimstone/asset"
	"brimstone/config"
	"brimstone/db"
	"brimstone/logger"
	"brimstone/packager"
	"brimstone/store"

	"go.uber.org/zap"
)

// env is what every command needs once configuration has been loaded.
type env struct {
	cfg      config.Config
	store    *store.Store
	catalog  *db.Catalog
	packager *packager.Packager
}

// bootstrap handles shared initialization logic for commands.
func bootstrap() *env {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}

	if err := logger.InitLogger(cfg.LogPath, cfg.LogLevel); err != nil {
		logger.Log.Fatalw("Failed to initialize logger", zap.Error(err))
	}

	catalog, err := db.Open(cfg.DatabasePath, logger.Log)
	if err != nil {
		logger.Log.Fatalw("Failed to open instance catalog", zap.Error(err))
	}
	logger.Log.Infow("Database initialized", zap.String("path", cfg.DatabasePath))

	st := store.New(cfg.DataDir)
	return &env{
		cfg:      cfg,
		store:    st,
		catalog:  catalog,
		packager: packager.New(st, logger.Log),
	}
}

func (e *env) close() {
	if err := e.catalog.Close(); err != nil {
		logger.Log.Warnw("Failed to close database", zap.Error(err))
	}
}

// parseKindArg maps a command-line category to an asset kind.
func parseKindArg(s string) (asset.Kind, error) {
	return asset.ParseKind(s)
}

// parseIndex parses a 1-based index as shown by `show`.
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid index '%s': want a number starting at 1", s)
	}
	return n - 1, nil
}

// defaultPackagePath is where `export` writes when no destination is given.
func defaultPackagePath(name string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "_", `\`, "_")
	return replacer.Replace(name) + packager.Extension
}
