package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stadata-x/stadatax/internal/bps"
	"github.com/stadata-x/stadatax/internal/tabular"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	var keyword string
	var subject string
	var page int

	cmd := &cobra.Command{
		Use:   "tables [region-id]",
		Short: "List static tables for a region",
		Long: `List the static tables published for a region. Without an argument the
configured default region is used.`,
		Example: `  # Tables for the default region
  stadatax tables

  # Tables for Aceh province
  stadatax tables 1100

  # Search by keyword
  stadatax tables 1100 --keyword penduduk`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			regionID := ""
			if len(args) > 0 {
				regionID = args[0]
			}
			return runTables(cmd, regionID, bps.TableFilters{
				Keyword: keyword,
				Subject: subject,
				Page:    page,
			})
		},
	}

	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Filter by title keyword")
	cmd.Flags().StringVar(&subject, "subject", "", "Filter by subject id")
	cmd.Flags().IntVar(&page, "page", 0, "Result page (1-based)")

	return cmd
}

func runTables(cmd *cobra.Command, regionID string, filters bps.TableFilters) error {
	cmdCtx := NewCommandContext(cmd)

	if regionID == "" {
		regionID = cmdCtx.Settings.DefaultRegion
	}

	tables, err := cmdCtx.Client.StaticTables(cmd.Context(), regionID, filters)
	if err != nil {
		return fmt.Errorf("failed to fetch tables for region %s: %w", regionID, err)
	}

	if len(tables) == 0 {
		cmdCtx.Renderer.Println("No tables found.")
		return nil
	}

	rows := make([][]string, 0, len(tables))
	for _, t := range tables {
		rows = append(rows, []string{t.ID, t.Title, t.Subject, t.UpdatedAt})
	}
	result, err := tabular.New([]string{"ID", "Title", "Subject", "Updated"}, rows)
	if err != nil {
		return err
	}
	return cmdCtx.Renderer.Table(result)
}
