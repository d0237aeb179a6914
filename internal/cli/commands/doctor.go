package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/stadata-x/stadatax/internal/bps"
	"github.com/stadata-x/stadatax/internal/cli/output"
	userconfig "github.com/stadata-x/stadatax/internal/config"
)

// checkResult is the outcome of one doctor check.
type checkResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		Long: `Run a series of checks: config file, API token, BPS WebAPI reachability,
download directory, and the history database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

func runDoctor(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	checks := []checkResult{
		checkConfigFile(),
		checkToken(cmdCtx),
		checkAPI(cmd.Context(), cmdCtx),
		checkDownloadDir(cmdCtx),
		checkHistory(cmdCtx),
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(checks)
	}

	titler := cases.Title(language.English)
	failed := 0
	for _, c := range checks {
		mark := r.Styles().Success.Render("ok")
		if !c.OK {
			mark = r.Styles().Error.Render("FAIL")
			failed++
		}
		r.Printf("%-22s %s  %s\n", titler.String(c.Name), mark, c.Details)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	r.Println()
	r.Println("All checks passed.")
	return nil
}

func checkConfigFile() checkResult {
	const name = "config file"
	store, err := userconfig.NewDefaultStore()
	if err != nil {
		return checkResult{Name: name, OK: false, Details: err.Error()}
	}
	if _, err := os.Stat(store.Path()); errors.Is(err, os.ErrNotExist) {
		return checkResult{Name: name, OK: true, Details: "not created yet (defaults in use)"}
	}
	if _, err := store.Load(); err != nil {
		return checkResult{Name: name, OK: false, Details: err.Error()}
	}
	return checkResult{Name: name, OK: true, Details: store.Path()}
}

func checkToken(cmdCtx *CommandContext) checkResult {
	const name = "api token"
	if cmdCtx.Settings.APIToken == "" {
		return checkResult{Name: name, OK: false, Details: "missing; run: stadatax token set <token>"}
	}
	return checkResult{Name: name, OK: true, Details: maskToken(cmdCtx.Settings.APIToken)}
}

func checkAPI(ctx context.Context, cmdCtx *CommandContext) checkResult {
	const name = "bps webapi"
	if !cmdCtx.Client.Ready() {
		return checkResult{Name: name, OK: false, Details: "skipped: no token"}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := time.Now()
	regions, err := cmdCtx.Client.Regions(ctx)
	if err != nil {
		var statusErr *bps.StatusError
		switch {
		case errors.As(err, &statusErr) && statusErr.IsAuth():
			return checkResult{Name: name, OK: false, Details: "token rejected (check it at webapi.bps.go.id)"}
		case errors.Is(err, bps.ErrTimeout):
			return checkResult{Name: name, OK: false, Details: "timed out"}
		default:
			return checkResult{Name: name, OK: false, Details: err.Error()}
		}
	}
	return checkResult{Name: name, OK: true, Details: fmt.Sprintf("%d regions in %s", len(regions), time.Since(start).Round(time.Millisecond))}
}

func checkDownloadDir(cmdCtx *CommandContext) checkResult {
	const name = "download dir"
	dir := cmdCtx.Settings.DownloadDir
	if dir == "" {
		return checkResult{Name: name, OK: true, Details: "not set (current directory used)"}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return checkResult{Name: name, OK: false, Details: err.Error()}
	}
	if !info.IsDir() {
		return checkResult{Name: name, OK: false, Details: dir + " is not a directory"}
	}
	return checkResult{Name: name, OK: true, Details: dir}
}

func checkHistory(cmdCtx *CommandContext) checkResult {
	const name = "history database"
	store := openHistory(cmdCtx.Logger)
	if store == nil {
		return checkResult{Name: name, OK: false, Details: "unavailable (run with -v for details)"}
	}
	defer func() { _ = store.Close() }()

	entries, err := store.RecentTables(1)
	if err != nil {
		return checkResult{Name: name, OK: false, Details: err.Error()}
	}
	details := "empty"
	if len(entries) > 0 {
		details = "last view " + entries[0].ViewedAt.Local().Format(time.DateTime)
	}
	return checkResult{Name: name, OK: true, Details: details}
}
