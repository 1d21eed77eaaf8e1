// Package config loads driftd's on-disk configuration: a YAML document
// naming the data directory, listen address, peers to sync with, and the
// persistence/sync plugin tunables. Cobra flags on cmd/driftd take
// precedence over whatever a loaded file sets.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is driftd's full on-disk/CLI configuration surface.
type Config struct {
	// DataDir is where boltsnap keeps its database file.
	DataDir string `yaml:"dataDir"`

	// Listen is the address httpsnap.Server binds for GET/POST /snapshot
	// and the metrics/health endpoints.
	Listen string `yaml:"listen"`

	// Peers are remote driftd addresses httpsnap.Client polls.
	Peers []string `yaml:"peers,omitempty"`

	// PollIntervalMs is how often a Client pulls each peer's snapshot.
	PollIntervalMs int `yaml:"pollIntervalMs"`

	// DebounceMs is how long boltsnap waits after the last mutation
	// before flushing to disk.
	DebounceMs int `yaml:"debounceMs"`

	// LogLevel and LogJSON configure pkg/log.Init.
	LogLevel string `yaml:"logLevel"`
	LogJSON  bool   `yaml:"logJSON"`
}

// Default returns the configuration driftd runs with when no file or flag
// overrides a field.
func Default() Config {
	return Config{
		DataDir:        "./data",
		Listen:         ":7070",
		PollIntervalMs: 5000,
		DebounceMs:     200,
		LogLevel:       "info",
		LogJSON:        false,
	}
}

// Load reads a YAML config file at path and overlays it onto Default(). A
// missing path is not an error — the zero value of every unset field in
// the file falls back to its default, so an empty or partial file is
// valid.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}
