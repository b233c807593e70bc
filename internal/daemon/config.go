// Package daemon loads the TOML configuration for `modesched serve`,
// using a nested Config struct with a DefaultConfig constructor so any
// field a config file omits keeps a sane default.
package daemon

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SolverConfig holds the optimizer's bounds. `modesched serve` passes
// MaxModes to the scheduler; MaxTasks, DefaultMaxCPU and DefaultMaxSMS
// are loaded but not applied: the number of tasks is not capped, and an
// optimize request that omits a bound uses 0 for it.
type SolverConfig struct {
	MaxTasks       int `toml:"max_tasks"`
	MaxModes       int `toml:"max_modes"`
	DefaultMaxCPU  int `toml:"default_max_cpu"`
	DefaultMaxSMS  int `toml:"default_max_sms"`
}

// StorageConfig controls the optional sqlite audit log.
type StorageConfig struct {
	Path    string `toml:"path"`
	Enabled bool   `toml:"enabled"`
}

// MetricsConfig controls the optional Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// Config is the top-level `modesched serve` configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Solver  SolverConfig  `toml:"solver"`
	Storage StorageConfig `toml:"storage"`
	Metrics MetricsConfig `toml:"metrics"`
}

// DefaultConfig returns the documented defaults for `modesched serve`.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8087,
		},
		Solver: SolverConfig{
			MaxTasks:      256,
			MaxModes:      16,
			DefaultMaxCPU: 64,
			DefaultMaxSMS: 128,
		},
		Storage: StorageConfig{
			Path:    "modesched.db",
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads and decodes a TOML file at path, starting from
// DefaultConfig so any field the file omits keeps its default.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("daemon: loading config %s: %w", path, err)
	}
	return cfg, nil
}
