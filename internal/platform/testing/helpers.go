package testing

import (
	"path/filepath"
	"testing"

	"kumbara-device-go/internal/platform/config"
	"kumbara-device-go/internal/platform/logging"
)

// SetupTestConfig returns the default configuration pointed at a temp dir,
// with an in-memory preference store and ephemeral listen ports.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Store.Driver = "memory"
	cfg.Store.SQLite.Path = filepath.Join(dir, "kumbara.db")
	cfg.Control.IP = "127.0.0.1"
	cfg.Control.Port = 0
	cfg.Web.IP = "127.0.0.1"
	cfg.Web.Port = 0
	cfg.HAL.Mode = "simulated"
	cfg.Log = config.LogConfig{
		Level: "DEBUG",
		Dir:   filepath.Join(dir, "logs"),
		File:  "test.log",
	}
	return cfg
}

// SetupTestLogger returns a file-backed logger closed at test cleanup.
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	cfg := SetupTestConfig(t)
	logger, err := logging.New(logging.Config{
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
		Filename: cfg.Log.File,
		NoColor:  true,
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}
