// Package cli provides the command-line interface for stadatax.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stadata-x/stadatax/internal/cli/commands"
	"github.com/stadata-x/stadatax/internal/cli/config"
	"github.com/stadata-x/stadatax/internal/cli/output"
)

var (
	cfgFile  string
	settings *config.Settings
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// settingsKey is used to store settings in context.
type settingsKey struct{}

// rendererKey is used to store renderer in context.
type rendererKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stadatax",
		Short: "stadatax - BPS statistics from the terminal",
		Long: `stadatax browses and exports statistics from BPS (Statistics Indonesia)
without leaving the terminal.

Point it at a region, list the static tables published there, preview a
table, and export it to CSV, JSON, Markdown, or HTML. Run it without a
subcommand to open the interactive browser.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			settings, err = config.LoadSettings(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), settings.Verbose)

			ctx := context.WithValue(cmd.Context(), settingsKey{}, settings)
			ctx = config.ContextWithLogger(ctx, logger)

			mode := output.Mode(settings.OutputFormat)
			renderer := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
			ctx = context.WithValue(ctx, rendererKey{}, renderer)
			cmd.SetContext(ctx)

			// A corrupt config file degrades to defaults; tell the user once.
			if warn := config.LoadWarning(); warn != nil {
				renderer.Warning("config file ignored: %v", warn)
			}

			if settings.Verbose {
				if store := config.GetStore(); store != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", store.Path())
				}
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare invocation opens the interactive browser.
			return commands.RunBrowse(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <user config dir>/stadatax/config.yaml)")
	rootCmd.PersistentFlags().String("token", "", "BPS WebAPI token (overrides config and STADATAX_API_TOKEN)")
	rootCmd.PersistentFlags().Int("timeout", 0, "Request timeout in seconds")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json|csv)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json", "csv"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))
	rootCmd.AddCommand(commands.NewRegionsCommand())
	rootCmd.AddCommand(commands.NewTablesCommand())
	rootCmd.AddCommand(commands.NewViewCommand())
	rootCmd.AddCommand(commands.NewDynamicCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewTokenCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(commands.NewBrowseCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetSettings retrieves the settings from the command context.
func GetSettings(ctx context.Context) *config.Settings {
	if s, ok := ctx.Value(settingsKey{}).(*config.Settings); ok {
		return s
	}
	return &config.Settings{
		DefaultRegion:  "0000",
		TimeoutSeconds: 30,
		OutputFormat:   config.DefaultOutput,
	}
}

// GetRenderer retrieves the renderer from the command context.
func GetRenderer(ctx context.Context) *output.Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*output.Renderer); ok {
		return r
	}
	return output.NewRenderer(os.Stdout, os.Stderr, output.ModeAuto)
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for stadatax.

To load completions:

Bash:
  $ source <(stadatax completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ stadatax completion bash > /etc/bash_completion.d/stadatax
  # macOS:
  $ stadatax completion bash > $(brew --prefix)/etc/bash_completion.d/stadatax

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ stadatax completion zsh > "${fpath[1]}/_stadatax"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ stadatax completion fish | source

  # To load completions for each session, execute once:
  $ stadatax completion fish > ~/.config/fish/completions/stadatax.fish

PowerShell:
  PS> stadatax completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> stadatax completion powershell > stadatax.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
