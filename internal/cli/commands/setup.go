// Package commands implements the stadatax subcommands.
package commands

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/stadata-x/stadatax/internal/bps"
	"github.com/stadata-x/stadatax/internal/cli/config"
	"github.com/stadata-x/stadatax/internal/cli/output"
	userconfig "github.com/stadata-x/stadatax/internal/config"
	"github.com/stadata-x/stadatax/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Settings *config.Settings
	Logger   *slog.Logger
	Renderer *output.Renderer
	Client   *bps.Client
}

// NewCommandContext creates a CommandContext with an API client built from
// the effective settings.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cmdCtx := NewCommandContextWithoutClient(cmd)
	cmdCtx.Client = newClient(cmdCtx.Settings, cmdCtx.Logger)
	return cmdCtx
}

// NewCommandContextWithoutClient creates a CommandContext without an API
// client, for commands that only touch local state.
func NewCommandContextWithoutClient(cmd *cobra.Command) *CommandContext {
	s := getSettings()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(s.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Settings: s,
		Logger:   logger,
		Renderer: r,
	}
}

// getSettings returns the current settings, falling back to environment
// variables when the root command's config load did not run (tests).
func getSettings() *config.Settings {
	if s := config.GetCurrentSettings(); s != nil {
		return s
	}

	timeout := userconfig.DefaultTimeoutSeconds
	if v := os.Getenv("STADATAX_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			timeout = n
		}
	}
	return &config.Settings{
		APIToken:       os.Getenv("STADATAX_API_TOKEN"),
		BaseURL:        os.Getenv("STADATAX_BASE_URL"),
		DefaultRegion:  userconfig.Defaults().DefaultRegion,
		TimeoutSeconds: timeout,
		OutputFormat:   os.Getenv("STADATAX_OUTPUT"),
	}
}

func newClient(s *config.Settings, logger *slog.Logger) *bps.Client {
	timeout := time.Duration(s.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = userconfig.DefaultTimeoutSeconds * time.Second
	}
	return bps.New(bps.Config{
		BaseURL:    s.BaseURL,
		Token:      s.APIToken,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	})
}

// openHistory opens the per-user history database. Returns nil when it is
// unavailable; history is best-effort and never fails a command.
func openHistory(logger *slog.Logger) *state.SQLiteStore {
	path, err := userconfig.StatePath()
	if err != nil {
		logger.Warn("history disabled: no state path", "error", err)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		logger.Warn("history disabled: cannot create state directory", "error", err)
		return nil
	}

	store := state.NewSQLiteStore()
	if err := store.Open(path); err != nil {
		logger.Warn("history disabled: cannot open state database", "error", err)
		return nil
	}
	if err := store.Migrate(); err != nil {
		logger.Warn("history disabled: migration failed", "error", err)
		_ = store.Close()
		return nil
	}
	return store
}
