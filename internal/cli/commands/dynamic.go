package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stadata-x/stadatax/internal/bps"
	"github.com/stadata-x/stadatax/internal/cli/output"
	"github.com/stadata-x/stadatax/internal/tabular"
)

// NewDynamicCommand creates the dynamic command.
func NewDynamicCommand() *cobra.Command {
	var regionID string
	var year string
	var vertical string
	var keyword string

	cmd := &cobra.Command{
		Use:   "dynamic [variable-id]",
		Short: "List, inspect, or fetch dynamic tables",
		Long: `Work with dynamic tables, which are addressed by a variable id rather
than a table id. Without an argument the region's variables are listed;
with a variable id but no --year the available axes (years, vertical and
horizontal variables) are shown; with --year the data slice is fetched.`,
		Example: `  # Discover variable ids for Aceh
  stadatax dynamic --region 1100

  # Show the available axes of variable 45
  stadatax dynamic 45

  # Fetch one year's slice
  stadatax dynamic 45 --year 120 --region 1100`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runDynamicList(cmd, regionID, keyword)
			}
			return runDynamic(cmd, args[0], regionID, year, vertical)
		},
	}

	cmd.Flags().StringVarP(&regionID, "region", "r", "", "Region id (default: configured default region)")
	cmd.Flags().StringVar(&year, "year", "", "Year id (from the metadata listing)")
	cmd.Flags().StringVar(&vertical, "vertical", "", "Vertical variable id")
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Filter the variable listing by keyword")

	return cmd
}

func runDynamicList(cmd *cobra.Command, regionID, keyword string) error {
	cmdCtx := NewCommandContext(cmd)

	if regionID == "" {
		regionID = cmdCtx.Settings.DefaultRegion
	}

	vars, err := cmdCtx.Client.DynamicTables(cmd.Context(), regionID, bps.TableFilters{Keyword: keyword})
	if err != nil {
		return fmt.Errorf("failed to fetch dynamic tables for region %s: %w", regionID, err)
	}

	if len(vars) == 0 {
		cmdCtx.Renderer.Println("No dynamic tables found.")
		return nil
	}

	rows := make([][]string, 0, len(vars))
	for _, v := range vars {
		rows = append(rows, []string{v.ID, v.Title, v.Subject, v.Unit})
	}
	result, err := tabular.New([]string{"ID", "Title", "Subject", "Unit"}, rows)
	if err != nil {
		return err
	}
	return cmdCtx.Renderer.Table(result)
}

func runDynamic(cmd *cobra.Command, varID, regionID, year, vertical string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	if regionID == "" {
		regionID = cmdCtx.Settings.DefaultRegion
	}

	meta, err := cmdCtx.Client.DynamicTableMetadata(cmd.Context(), regionID, varID)
	if err != nil {
		return fmt.Errorf("failed to fetch metadata for variable %s: %w", varID, err)
	}

	if year == "" {
		return renderDynamicMetadata(r, meta)
	}

	result, err := cmdCtx.Client.DynamicTableData(cmd.Context(), bps.DynamicRequest{
		RegionID:      regionID,
		VariableID:    varID,
		Year:          year,
		VerticalVarID: vertical,
		SourceDomain:  meta.SourceDomain,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch data for variable %s: %w", varID, err)
	}
	return r.Table(result)
}

func renderDynamicMetadata(r *output.Renderer, meta *bps.DynamicMetadata) error {
	rows := make([][]string, 0, len(meta.Years)+len(meta.VerticalVars)+len(meta.HorizontalVars))
	for _, opt := range meta.Years {
		rows = append(rows, []string{"year", opt.ID, opt.Label})
	}
	for _, opt := range meta.VerticalVars {
		rows = append(rows, []string{"vertical", opt.ID, opt.Label})
	}
	for _, opt := range meta.HorizontalVars {
		rows = append(rows, []string{"horizontal", opt.ID, opt.Label})
	}
	result, err := tabular.New([]string{"Axis", "ID", "Label"}, rows)
	if err != nil {
		return err
	}
	if meta.SourceDomain != "" && r.EffectiveMode() != output.ModeJSON {
		r.Printf("Metadata domain: %s\n", meta.SourceDomain)
	}
	return r.Table(result)
}
