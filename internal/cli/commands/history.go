package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/stadata-x/stadatax/internal/tabular"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int
	var exports bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently viewed tables and exports",
		Long: `Show the most recently viewed tables, or with --exports the most recent
file exports.`,
		Example: `  # Recently viewed tables
  stadatax history

  # Recent exports
  stadatax history --exports

  # Limit the list
  stadatax history --limit 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit, exports)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum entries to show")
	cmd.Flags().BoolVar(&exports, "exports", false, "Show export history instead of viewed tables")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int, exports bool) error {
	cmdCtx := NewCommandContextWithoutClient(cmd)

	store := openHistory(cmdCtx.Logger)
	if store == nil {
		cmdCtx.Renderer.Println("No history available.")
		return nil
	}
	defer func() { _ = store.Close() }()

	if exports {
		records, err := store.RecentExports(limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			cmdCtx.Renderer.Println("No exports recorded yet.")
			return nil
		}
		rows := make([][]string, 0, len(records))
		for _, rec := range records {
			rows = append(rows, []string{
				rec.ExportedAt.Local().Format(time.DateTime),
				rec.TableID, rec.RegionID, rec.Format, rec.Path,
			})
		}
		result, err := tabular.New([]string{"Exported", "Table", "Region", "Format", "Path"}, rows)
		if err != nil {
			return err
		}
		return cmdCtx.Renderer.Table(result)
	}

	entries, err := store.RecentTables(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		cmdCtx.Renderer.Println("No tables viewed yet.")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.ViewedAt.Local().Format(time.DateTime),
			e.TableID, e.RegionID, e.Title,
		})
	}
	result, err := tabular.New([]string{"Viewed", "Table", "Region", "Title"}, rows)
	if err != nil {
		return err
	}
	return cmdCtx.Renderer.Table(result)
}
