// Package config assembles the effective runtime settings for CLI commands.
//
// Precedence (highest to lowest): flags > env vars > persisted user config
// file > defaults. The persisted file itself is managed by internal/config.
package config

import (
	userconfig "github.com/stadata-x/stadatax/internal/config"
)

// Settings holds the effective runtime configuration of a command run.
type Settings struct {
	APIToken       string `koanf:"api_token"`
	BaseURL        string `koanf:"base_url"`
	DefaultRegion  string `koanf:"default_region"`
	DownloadDir    string `koanf:"download_dir"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
	Verbose        bool   `koanf:"verbose"`
	OutputFormat   string `koanf:"output"`
}

// Default values for settings that have no persisted counterpart.
const (
	DefaultOutput = "auto" // auto-detect: TTY=text, piped=markdown
)

// ToUserConfig projects the settings back onto the persisted schema,
// preserving fields the runtime layer does not touch.
func (s *Settings) ToUserConfig(base *userconfig.Config) *userconfig.Config {
	cfg := *base
	cfg.APIToken = s.APIToken
	cfg.DefaultRegion = s.DefaultRegion
	cfg.DownloadDir = s.DownloadDir
	cfg.TimeoutSeconds = s.TimeoutSeconds
	return &cfg
}
