// Package config holds engine constants and the lumen.yaml project
// configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level lumen.yaml configuration.
type Config struct {
	// Lint controls the advisory layer.
	Lint LintConfig `yaml:"lint"`

	// Diagnostics controls reporting limits.
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`

	// Index is the path of the resolution index database to export.
	// Empty disables the export.
	Index string `yaml:"index,omitempty"`
}

// LintConfig toggles individual advisory checks.
type LintConfig struct {
	// LocalExtensions warns on extension blocks targeting non-generic
	// types owned by the declaring unit.
	LocalExtensions bool `yaml:"local_extensions"`
}

// DiagnosticsConfig bounds diagnostic output.
type DiagnosticsConfig struct {
	// Limit caps the number of reported diagnostics per run. Zero means
	// no cap.
	Limit int `yaml:"limit,omitempty"`
}

// Default returns the configuration used when no lumen.yaml is present.
func Default() *Config {
	return &Config{
		Lint: LintConfig{LocalExtensions: true},
	}
}

// Load reads and validates a lumen.yaml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}
	if cfg.Diagnostics.Limit < 0 {
		return nil, fmt.Errorf("diagnostics.limit must be >= 0, got %d", cfg.Diagnostics.Limit)
	}
	return cfg, nil
}

// LoadOrDefault loads path if it exists and falls back to defaults
// otherwise. A malformed file is still an error: silently ignoring a
// config the user wrote would be worse than failing.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}
