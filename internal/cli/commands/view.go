package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stadata-x/stadatax/internal/state"
)

// NewViewCommand creates the view command.
func NewViewCommand() *cobra.Command {
	var regionID string
	var noNotes bool

	cmd := &cobra.Command{
		Use:   "view <table-id>",
		Short: "Preview a static table",
		Long: `Fetch a static table and render it. The table's notes, when present, are
printed below the data as Markdown.`,
		Example: `  # Preview table 1234 in the default region
  stadatax view 1234

  # Preview a table from a specific region
  stadatax view 1234 --region 1100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, regionID, args[0], noNotes)
		},
	}

	cmd.Flags().StringVarP(&regionID, "region", "r", "", "Region id (default: configured default region)")
	cmd.Flags().BoolVar(&noNotes, "no-notes", false, "Skip the table notes")

	return cmd
}

func runView(cmd *cobra.Command, regionID, tableID string, noNotes bool) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	if regionID == "" {
		regionID = cmdCtx.Settings.DefaultRegion
	}

	data, err := cmdCtx.Client.StaticTable(cmd.Context(), regionID, tableID)
	if err != nil {
		return fmt.Errorf("failed to fetch table %s: %w", tableID, err)
	}

	if data.Title != "" {
		r.Println(r.Styles().Header1.Render(data.Title))
		r.Println()
	}
	if err := r.Table(data.Result); err != nil {
		return err
	}
	if !noNotes && data.Notes != "" {
		r.Println()
		r.Println(data.Notes)
	}

	recordView(cmdCtx, regionID, data.ID, data.Title)
	return nil
}

// recordView stores the table in the recently-viewed history. Best-effort.
func recordView(cmdCtx *CommandContext, regionID, tableID, title string) {
	store := openHistory(cmdCtx.Logger)
	if store == nil {
		return
	}
	defer func() { _ = store.Close() }()

	err := store.TouchRecentTable(state.RecentTable{
		RegionID: regionID,
		TableID:  tableID,
		Title:    title,
	})
	if err != nil {
		cmdCtx.Logger.Warn("failed to record view history", "error", err)
	}
}
