package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stadata-x/stadatax/internal/cli/config"
	userconfig "github.com/stadata-x/stadatax/internal/config"
)

// NewTokenCommand creates the token command group.
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the BPS WebAPI token",
		Long: `Manage the API token used to authenticate against the BPS WebAPI.
Register at https://webapi.bps.go.id to obtain one.`,
	}

	cmd.AddCommand(newTokenSetCommand())
	cmd.AddCommand(newTokenShowCommand())

	return cmd
}

func newTokenSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <token>",
		Short: "Store the API token in the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenSet(cmd, args[0])
		},
	}
}

func newTokenShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective API token (masked)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutClient(cmd)
			token := cmdCtx.Settings.APIToken
			if token == "" {
				cmdCtx.Renderer.Println("No token configured. Set one with: stadatax token set <token>")
				return nil
			}
			cmdCtx.Renderer.Printf("Token: %s\n", maskToken(token))
			return nil
		},
	}
}

func runTokenSet(cmd *cobra.Command, token string) error {
	cmdCtx := NewCommandContextWithoutClient(cmd)

	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	store := config.GetStore()
	if store == nil {
		var err error
		store, err = userconfig.NewDefaultStore()
		if err != nil {
			return err
		}
	}

	cfg, _ := store.Load() // a corrupt file degrades to defaults; we rewrite it
	cfg.APIToken = token
	if err := store.Save(cfg); err != nil {
		return err
	}

	cmdCtx.Renderer.Printf("Token saved to %s\n", store.Path())
	return nil
}

// maskToken keeps the first and last few characters visible.
func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
