// Package config manages the persisted per-user configuration for stadatax.
//
// The configuration lives in a single YAML file under the user's
// configuration directory (e.g. ~/.config/stadatax/config.yaml) and carries
// a schema version so older files can be migrated field-by-field.
package config

import (
	"os"
	"path/filepath"
)

// SchemaVersion is the current version of the persisted config schema.
// Files with an older version are migrated additively on load; files with a
// newer version are rejected.
const SchemaVersion = 2

// Default values.
const (
	DefaultFileName       = "config.yaml"
	DefaultAppDir         = "stadatax"
	DefaultTimeoutSeconds = 30
)

// Config holds all persisted user settings.
type Config struct {
	Version        int               `yaml:"version" koanf:"version"`
	APIToken       string            `yaml:"api_token" koanf:"api_token"`
	DefaultRegion  string            `yaml:"default_region" koanf:"default_region"`
	DownloadDir    string            `yaml:"download_dir" koanf:"download_dir"`
	TimeoutSeconds int               `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	Preferences    map[string]string `yaml:"preferences,omitempty" koanf:"preferences"`
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	home, _ := os.UserHomeDir()
	downloads := ""
	if home != "" {
		downloads = filepath.Join(home, "Downloads")
	}
	return &Config{
		Version:        SchemaVersion,
		DefaultRegion:  "0000", // national domain
		DownloadDir:    downloads,
		TimeoutSeconds: DefaultTimeoutSeconds,
		Preferences:    map[string]string{},
	}
}

// DefaultPath returns the per-user config file path.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DefaultAppDir, DefaultFileName), nil
}

// StatePath returns the per-user history database path, next to the config
// file.
func StatePath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DefaultAppDir, "state.db"), nil
}
