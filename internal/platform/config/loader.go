package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "kumbara-device-go/internal/platform/errors"
)

const (
	defaultConfigPath = ".config.yaml"
	envConfigPath     = "KUMBARA_CONFIG"
)

// Loader reads the YAML configuration on top of DefaultConfig and applies
// environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that reads .config.yaml from the working directory.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the configuration file location.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the effective configuration. A missing file is not an error;
// defaults are used instead.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// .env is optional
		_ = godotenv.Load()
	}

	path := l.path
	if path == "" {
		if env, ok := l.lookupEnv(envConfigPath); ok && env != "" {
			path = env
		} else {
			path = defaultConfigPath
		}
	}

	cfg := DefaultConfig()
	origin := "defaults"
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.load", "parse "+path, err)
		}
		origin = path
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.load", "read "+path, err)
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: origin}, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.lookupEnv("KUMBARA_SERVER_URL"); ok && v != "" {
		cfg.Device.DefaultServerURL = v
	}
	if v, ok := l.lookupEnv("KUMBARA_DEVICE_SECRET"); ok && v != "" {
		cfg.Device.Secret = v
	}
	if v, ok := l.lookupEnv("KUMBARA_STORE_DRIVER"); ok && v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v, ok := l.lookupEnv("KUMBARA_HAL_MODE"); ok && v != "" {
		cfg.HAL.Mode = strings.ToLower(v)
	}
	if v, ok := l.lookupEnv("KUMBARA_WEB_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindConfig, "config.env", "KUMBARA_WEB_PORT", err)
		}
		cfg.Web.Port = port
	}
	return nil
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Control.Enabled && (cfg.Control.Port <= 0 || cfg.Control.Port > 65535) {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", fmt.Sprintf("invalid control port %d", cfg.Control.Port))
	}
	if cfg.Web.Enabled && (cfg.Web.Port <= 0 || cfg.Web.Port > 65535) {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", fmt.Sprintf("invalid web port %d", cfg.Web.Port))
	}
	if cfg.Timing.ProvisioningAttempts <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", "provisioning_attempts must be positive")
	}
	if cfg.Timing.PollInterval <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", "poll_interval must be positive")
	}
	if cfg.Timing.CoinDebounce < 0 || cfg.Timing.ResetHold <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", "invalid input timing")
	}
	if cfg.Timing.StatusInterval <= 0 || cfg.Timing.BatteryInterval <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", "report intervals must be positive")
	}
	switch cfg.Store.Driver {
	case "memory", "sqlite", "redis":
	default:
		return platformerrors.New(platformerrors.KindConfig, "config.validate", "unsupported store driver "+cfg.Store.Driver)
	}
	return nil
}
