package config

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Config represents the jaduni.yaml configuration.
type Config struct {
	// DefaultEngine names the engine used when a request names none.
	// Empty means the registry's default slot.
	DefaultEngine string       `yaml:"default_engine"`
	Engines       []string     `yaml:"engines"`
	Output        OutputConfig `yaml:"output"`
	Limits        LimitsConfig `yaml:"limits"`
}

// OutputConfig controls where rendered results are written.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Extension string `yaml:"extension"`
}

// LimitsConfig bounds rendering requests.
type LimitsConfig struct {
	MaxSourceBytes int64 `yaml:"max_source_bytes"`
}

const (
	defaultOutputDir      = ".jaduni"
	defaultExtension      = ".out"
	defaultMaxSourceBytes = 4 << 20
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Dir:       defaultOutputDir,
			Extension: defaultExtension,
		},
		Limits: LimitsConfig{
			MaxSourceBytes: defaultMaxSourceBytes,
		},
	}
}

// Load reads a configuration file from the given path.
// Missing fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Ensure required defaults
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = defaultOutputDir
	}
	if cfg.Output.Extension == "" {
		cfg.Output.Extension = defaultExtension
	}
	if cfg.Limits.MaxSourceBytes <= 0 {
		cfg.Limits.MaxSourceBytes = defaultMaxSourceBytes
	}

	return cfg, nil
}

// IsEngineEnabled returns true if the named engine may be used.
// An empty Engines list enables every registered engine.
func (c *Config) IsEngineEnabled(name string) bool {
	if len(c.Engines) == 0 {
		return true
	}
	return slices.Contains(c.Engines, name)
}
