package commands

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stadata-x/stadatax/internal/cli/config"
	userconfig "github.com/stadata-x/stadatax/internal/config"
	"github.com/stadata-x/stadatax/internal/tui"
)

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse BPS data interactively",
		Long: `Open the interactive browser: pick a region, search its tables, preview
one, and export it without leaving the terminal.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunBrowse(cmd)
		},
	}
}

// RunBrowse starts the interactive browser. The root command also calls it
// when invoked without a subcommand.
func RunBrowse(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)

	if !cmdCtx.Client.Ready() {
		cmdCtx.Renderer.Error("no API token configured; run: stadatax token set <token>")
		return fmt.Errorf("missing API token")
	}

	tuiCfg := tui.Config{
		Client:        cmdCtx.Client,
		DefaultRegion: cmdCtx.Settings.DefaultRegion,
		DownloadDir:   cmdCtx.Settings.DownloadDir,
		Logger:        cmdCtx.Logger,
	}
	// Assign only a live store: a typed-nil *SQLiteStore in the interface
	// field would defeat the model's nil checks.
	if history := openHistory(cmdCtx.Logger); history != nil {
		defer func() { _ = history.Close() }()
		tuiCfg.History = history
	}

	p := tea.NewProgram(tui.NewModel(tuiCfg), tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	// Reload the token when the config file changes on disk, so a token
	// pasted in another terminal reaches the running browser.
	watchCtx, cancelWatch := context.WithCancel(cmd.Context())
	defer cancelWatch()
	if store := config.GetStore(); store != nil {
		client := cmdCtx.Client
		logger := cmdCtx.Logger
		go func() {
			err := store.Watch(watchCtx, logger, func(cfg *userconfig.Config) {
				client.SetToken(cfg.APIToken)
				p.Send(tui.ConfigReloadedMsg{})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browser failed: %w", err)
	}
	return nil
}
