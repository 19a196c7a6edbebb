// Package config loads ember's own configuration: logging options and
// command defaults. Slicer schema files are separate and live in
// package schema.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/emberbi/ember/internal/logging"
)

// Default output format for report commands.
const DefaultOutputFormat = "table"

// LoggingConfig controls the logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// ToLoggingConfig converts to the logging package's config.
func (l LoggingConfig) ToLoggingConfig() logging.Config {
	return logging.Config{Level: l.Level, Format: l.Format, File: l.File}
}

// Config is ember's application configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging,omitempty"`
	// Output is the default output format: table, json or csv.
	Output string `yaml:"output,omitempty"`
	// Database holds the default connection settings for report runs.
	Database DatabaseConfig `yaml:"database,omitempty"`
}

// DatabaseConfig holds connection defaults, overridable by flags.
type DatabaseConfig struct {
	Driver string `yaml:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
}

// New returns the built-in defaults.
func New() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Output:  DefaultOutputFormat,
	}
}

// Load reads configuration from the given path, falling back to
// defaults when the file does not exist. A missing config file is not
// an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := New()
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Output == "" {
		cfg.Output = DefaultOutputFormat
	}
	return cfg, nil
}

// DefaultPath returns ~/.ember/config.yaml, or "" when the home
// directory cannot be resolved.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ember", "config.yaml")
}
