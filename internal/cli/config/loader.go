package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	userconfig "github.com/stadata-x/stadatax/internal/config"
)

// loggerKey is used to store the logger in the command context.
type loggerKey struct{}

// Package-level state for the current invocation.
var (
	currentSettings *Settings
	currentStore    *userconfig.Store
	loadWarning     error
)

// ResetSettings clears the loaded settings. Used for testing.
func ResetSettings() {
	currentSettings = nil
	currentStore = nil
	loadWarning = nil
}

// LoadSettings builds the effective settings from defaults, the persisted
// user config, STADATAX_* environment variables, and explicitly set flags.
//
// A corrupt persisted file does not fail the load: defaults are used and
// the validation problem is retrievable via LoadWarning.
func LoadSettings(cfgFile string, flags *pflag.FlagSet) (*Settings, error) {
	var store *userconfig.Store
	var err error
	if cfgFile != "" {
		store = userconfig.NewStore(cfgFile)
	} else {
		store, err = userconfig.NewDefaultStore()
		if err != nil {
			return nil, err
		}
	}

	// The store validates and migrates; a corrupt file degrades to defaults
	// with a warning instead of failing the command.
	_, warn := store.Load()
	loadWarning = warn

	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"api_token":       "",
		"base_url":        "",
		"default_region":  userconfig.Defaults().DefaultRegion,
		"download_dir":    userconfig.Defaults().DownloadDir,
		"timeout_seconds": userconfig.DefaultTimeoutSeconds,
		"verbose":         false,
		"output":          DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Persisted user config. Its yaml keys are the koanf keys.
	if warn == nil {
		if _, statErr := os.Stat(store.Path()); statErr == nil {
			if err := k.Load(file.Provider(store.Path()), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	// 3. Environment variables: STADATAX_API_TOKEN -> api_token.
	if err := k.Load(env.Provider("STADATAX_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "STADATAX_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set (highest priority).
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			// The CLI uses --timeout for brevity; the config key is
			// timeout_seconds.
			if key == "timeout" {
				return "timeout_seconds", posflag.FlagVal(flags, f)
			}
			if key == "token" {
				return "api_token", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}

	currentSettings = &s
	currentStore = store
	return &s, nil
}

// GetCurrentSettings returns the settings loaded by LoadSettings, or nil.
func GetCurrentSettings() *Settings { return currentSettings }

// GetStore returns the persisted-config store used by the last load.
func GetStore() *userconfig.Store { return currentStore }

// LoadWarning returns the validation problem of the persisted file, if the
// last load degraded to defaults.
func LoadWarning() error { return loadWarning }

// LoggerKey returns the context key used for storing the logger. The
// commands package retrieves the logger through it without an import cycle.
func LoggerKey() interface{} { return loggerKey{} }

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// ContextWithLogger stores the logger in ctx under the shared key.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}
