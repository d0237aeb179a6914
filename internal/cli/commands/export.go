package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stadata-x/stadatax/internal/export"
	"github.com/stadata-x/stadatax/internal/state"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var regionID string
	var formatFlag string
	var outPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "export <table-id>",
		Short: "Export a static table to a file",
		Long: `Fetch a static table and write it to disk. The format is taken from
--format, or inferred from the output path's extension. Existing files are
not overwritten unless --force is given.`,
		Example: `  # Export as CSV into the download directory
  stadatax export 1234

  # Export to an explicit path, format inferred from extension
  stadatax export 1234 --out ./padi.json

  # Export as Markdown, overwriting an existing file
  stadatax export 1234 --format markdown --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], regionID, formatFlag, outPath, force)
		},
	}

	cmd.Flags().StringVarP(&regionID, "region", "r", "", "Region id (default: configured default region)")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Export format (csv|json|markdown|html|xlsx)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path (default: <download dir>/<table-id>.<format>)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"csv", "json", "markdown", "html", "xlsx"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runExport(cmd *cobra.Command, tableID, regionID, formatFlag, outPath string, force bool) error {
	cmdCtx := NewCommandContext(cmd)

	if regionID == "" {
		regionID = cmdCtx.Settings.DefaultRegion
	}

	format, path, err := resolveExportTarget(cmdCtx, tableID, formatFlag, outPath)
	if err != nil {
		return err
	}

	data, err := cmdCtx.Client.StaticTable(cmd.Context(), regionID, tableID)
	if err != nil {
		return fmt.Errorf("failed to fetch table %s: %w", tableID, err)
	}

	if err := export.Export(data.Result, path, format, export.Options{Overwrite: force}); err != nil {
		return err
	}

	recordExport(cmdCtx, state.ExportRecord{
		RegionID: regionID,
		TableID:  tableID,
		Path:     path,
		Format:   string(format),
		Rows:     data.Result.RowCount(),
	})

	cmdCtx.Renderer.Printf("Exported %d rows to %s\n", data.Result.RowCount(), path)
	return nil
}

// resolveExportTarget decides the format and output path from the flags and
// the configured download directory.
func resolveExportTarget(cmdCtx *CommandContext, tableID, formatFlag, outPath string) (export.Format, string, error) {
	var format export.Format
	var err error

	switch {
	case formatFlag != "":
		format, err = export.ParseFormat(formatFlag)
	case outPath != "":
		format, err = export.FormatForPath(outPath)
	default:
		format = export.FormatCSV
	}
	if err != nil {
		return "", "", err
	}

	if outPath == "" {
		dir := cmdCtx.Settings.DownloadDir
		if dir == "" {
			dir = "."
		}
		name := fmt.Sprintf("%s.%s", tableID, extensionFor(format))
		outPath = filepath.Join(dir, name)
	}
	return format, outPath, nil
}

func extensionFor(format export.Format) string {
	if format == export.FormatMarkdown {
		return "md"
	}
	return strings.ToLower(string(format))
}

// recordExport stores the export in history. Best-effort.
func recordExport(cmdCtx *CommandContext, rec state.ExportRecord) {
	store := openHistory(cmdCtx.Logger)
	if store == nil {
		return
	}
	defer func() { _ = store.Close() }()

	if _, err := store.RecordExport(rec); err != nil {
		cmdCtx.Logger.Warn("failed to record export history", "error", err)
	}
}
