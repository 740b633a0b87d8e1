package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Config holds the user defaults shared by the CLI and the desktop app.
type Config struct {
	// MoovToEnd places moov after mdat instead of in front of it.
	MoovToEnd bool `yaml:"moov_to_end"`
	// KeepFree leaves free atoms in place instead of reclaiming them.
	KeepFree bool `yaml:"keep_free"`
	// Limit caps the bytes written per atom; 0 means unlimited.
	Limit int64 `yaml:"limit"`
	// UpdateURL points at the release manifest checked by the updater.
	UpdateURL string `yaml:"update_url"`
	// LogLevel is a zerolog level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		UpdateURL: "https://danielgtaylor.github.io/qtfaststart/releases.json",
		LogLevel:  "info",
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "qtfaststart", "config.yaml")
}

// Load reads the config file at path, falling back to DefaultPath when path
// is empty. A missing file yields the defaults; a file that does not parse
// is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
