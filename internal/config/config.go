// Package config handles configuration loading and validation for protocol.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/protocol/internal/kv"
)

// Config holds the application configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Pomodoro PomodoroConfig `yaml:"pomodoro"`
	Log      LogConfig      `yaml:"log"`
	DataDir  string         `yaml:"-"` // set by caller, not from config file
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // sqlite or badger
	Path    string `yaml:"path"`    // empty = inside the data dir
}

// PomodoroConfig tunes the TUI countdown display.
type PomodoroConfig struct {
	Tick time.Duration `yaml:"tick"`
}

// LogConfig holds defaults for the logger; CLI flags override them.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend: kv.BackendSQLite,
		},
		Pomodoro: PomodoroConfig{
			Tick: time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}
	cfg.DataDir = dataDir

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Pomodoro.Tick == 0 {
		c.Pomodoro.Tick = defaults.Pomodoro.Tick
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("data_dir", c.DataDir, notEmpty),
		criterio.Run("storage.backend", c.Storage.Backend, validBackend),
		c.validatePomodoro(),
	)
}

func (c *Config) validatePomodoro() error {
	var errs criterio.FieldErrorsBuilder
	if err := validTick(c.Pomodoro.Tick); err != nil {
		errs = errs.Append("pomodoro.tick", err)
	}
	return errs.ToError()
}

// StoragePath returns the configured storage path, which may be empty.
func (c *Config) StoragePath() string {
	return c.Storage.Path
}

func notEmpty(s string) error {
	if s == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

func validBackend(b string) error {
	switch b {
	case kv.BackendSQLite, kv.BackendBadger:
		return nil
	}
	return fmt.Errorf("unknown backend %q (want %s or %s)", b, kv.BackendSQLite, kv.BackendBadger)
}

func validTick(d time.Duration) error {
	if d < 100*time.Millisecond || d > time.Minute {
		return fmt.Errorf("must be between 100ms and 1m, got %s", d)
	}
	return nil
}
