package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"brimstone/store"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const appName = "brimstone"

// Config holds all configuration for the application.
// Values are loaded by Viper from config.toml and/or BRIMSTONE_* environment variables.
type Config struct {
	DataDir       string `mapstructure:"DATA_DIR" validate:"required"`
	LaunchCommand string `mapstructure:"LAUNCH_COMMAND" validate:"required"`
	KeepOriginals bool   `mapstructure:"KEEP_ORIGINALS"` // copy instead of move when adding assets
	LogLevel      string `mapstructure:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	UserAgent     string `mapstructure:"USERAGENT"`
	DatabasePath  string `mapstructure:"-"` // Not from env, derived
	LogPath       string `mapstructure:"-"` // Not from env, derived
}

// DefaultConfigDir is the per-user config directory, e.g. ~/.config/brimstone.
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(dir, appName)
}

// DefaultDataDir is the per-user data root: $XDG_DATA_HOME/brimstone or
// ~/.local/share/brimstone. Windows and macOS use the config directory.
func DefaultDataDir() string {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return DefaultConfigDir()
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); filepath.IsAbs(xdg) {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, ".local", "share", appName)
}

// LoadConfig reads configuration from a config file and environment
// variables. An empty configFile looks for config.toml in DefaultConfigDir.
func LoadConfig(configFile string) (config Config, err error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(DefaultConfigDir())
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	vipErr := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(vipErr, &notFound) {
		slog.Info("Config file not found, relying on environment variables.")
	} else if vipErr != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", vipErr)
	}

	viper.SetEnvPrefix(appName)
	viper.AutomaticEnv()

	// Register every key so Unmarshal sees environment-only values
	viper.SetDefault("data_dir", "")
	viper.SetDefault("launch_command", "")
	viper.SetDefault("keep_originals", true)
	viper.SetDefault("log_level", "")
	viper.SetDefault("useragent", "")

	if vipErr = viper.Unmarshal(&config); vipErr != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", vipErr)
	}

	processConfigDefaults(&config)

	if err := validateAndEnsureDirectories(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// processConfigDefaults fills in values that were not configured.
func processConfigDefaults(config *Config) {
	if config.DataDir == "" {
		config.DataDir = DefaultDataDir()
	}
	if config.LaunchCommand == "" {
		config.LaunchCommand = "gzdoom" // Default engine
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.UserAgent == "" {
		config.UserAgent = appName + "/dev"
	}
}

// validateAndEnsureDirectories checks the struct and makes sure the data
// root exists, then derives the paths that live inside it.
func validateAndEnsureDirectories(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dataDir, err := filepath.Abs(config.DataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory '%s': %w", config.DataDir, err)
	}
	config.DataDir = dataDir

	if _, err := os.Stat(config.DataDir); os.IsNotExist(err) {
		slog.Info("Data directory does not exist, creating it", "path", config.DataDir)
		if err := os.MkdirAll(config.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory '%s': %w", config.DataDir, err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to check data directory '%s': %w", config.DataDir, err)
	}

	instancesDir := filepath.Join(config.DataDir, store.InstancesDir)
	if err := os.MkdirAll(instancesDir, 0755); err != nil {
		return fmt.Errorf("failed to create instances directory '%s': %w", instancesDir, err)
	}
	config.DatabasePath = filepath.Join(instancesDir, appName+".db")
	config.LogPath = filepath.Join(config.DataDir, appName+".log")
	return nil
}
