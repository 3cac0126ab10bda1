package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brimstone.log")
	if err := InitLogger(path, "info"); err != nil {
		t.Fatalf("InitLogger failed: %v", err)
	}
	Log.Debugw("hidden below level")
	Log.Warnw("visible", "path", "/x")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "Logger initialized") || !strings.Contains(out, "visible") {
		t.Errorf("Log file missing entries: %s", out)
	}
	if strings.Contains(out, "hidden below level") {
		t.Errorf("Debug entry written at info level: %s", out)
	}
}

func TestInitLoggerBadLevel(t *testing.T) {
	if err := InitLogger(filepath.Join(t.TempDir(), "x.log"), "loud"); err == nil {
		t.Error("Expected error for invalid level")
	}
}

func TestConsoleLoggerReportsBeforeInit(t *testing.T) {
	var buf strings.Builder
	log := consoleLogger(zapcore.AddSync(&buf), zap.WarnLevel).Sugar()

	log.Infow("startup noise")
	log.Errorw("Failed to load configuration", "error", "open /nope/config.toml: no such file")
	_ = log.Sync()

	out := buf.String()
	if !strings.Contains(out, "Failed to load configuration") || !strings.Contains(out, "/nope/config.toml") {
		t.Errorf("Error with context missing from console output: %q", out)
	}
	if strings.Contains(out, "startup noise") {
		t.Errorf("Info entry written before init: %q", out)
	}
}

// defaultLogger is captured before any test replaces the package logger.
var defaultLogger = ZapLogger

func TestDefaultLoggerIsNotSilent(t *testing.T) {
	core := defaultLogger.Core()
	if !core.Enabled(zap.FatalLevel) || !core.Enabled(zap.WarnLevel) {
		t.Error("Default logger must report warnings and fatal errors")
	}
	if core.Enabled(zap.InfoLevel) {
		t.Error("Default logger should stay quiet below warn")
	}
}
