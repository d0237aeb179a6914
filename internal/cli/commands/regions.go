package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stadata-x/stadatax/internal/bps"
	"github.com/stadata-x/stadatax/internal/tabular"
)

// NewRegionsCommand creates the regions command.
func NewRegionsCommand() *cobra.Command {
	var level string
	var search string

	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List BPS regional domains",
		Long: `List the regional domains (national, provinces, districts) known to the
BPS WebAPI. Every other command takes one of these region IDs.`,
		Example: `  # All regions
  stadatax regions

  # Provinces only
  stadatax regions --level province

  # Search by name
  stadatax regions --search jawa`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRegions(cmd, level, search)
		},
	}

	cmd.Flags().StringVar(&level, "level", "", "Filter by level (national|province|district)")
	cmd.Flags().StringVar(&search, "search", "", "Filter by name substring (case-insensitive)")

	_ = cmd.RegisterFlagCompletionFunc("level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"national", "province", "district"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runRegions(cmd *cobra.Command, level, search string) error {
	cmdCtx := NewCommandContext(cmd)

	regions, err := cmdCtx.Client.Regions(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch regions: %w", err)
	}

	filtered := make([]bps.Region, 0, len(regions))
	for _, reg := range regions {
		if level != "" && string(reg.Level()) != level {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(reg.Name), strings.ToLower(search)) {
			continue
		}
		filtered = append(filtered, reg)
	}

	rows := make([][]string, 0, len(filtered))
	for _, reg := range filtered {
		rows = append(rows, []string{reg.ID, reg.Name, string(reg.Level())})
	}
	result, err := tabular.New([]string{"ID", "Name", "Level"}, rows)
	if err != nil {
		return err
	}
	return cmdCtx.Renderer.Table(result)
}
