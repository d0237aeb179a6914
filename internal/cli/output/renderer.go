// Package output renders command results for terminals, pipes, and scripts.
//
// The effective mode adapts to the environment: text (styled) on a TTY,
// markdown when piped, json/csv when asked for explicitly.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/stadata-x/stadatax/internal/tabular"
)

// Mode selects the output format.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
	ModeCSV      Mode = "csv"
)

// Renderer writes formatted output to stdout/stderr equivalents.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	styles *Styles
}

// NewRenderer creates a renderer for the given writers and mode.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		styles: NewStyles(colorsEnabled(out)),
	}
}

// colorsEnabled reports whether out is a color-capable terminal.
func colorsEnabled(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	if !term.IsTerminal(int(f.Fd())) {
		return false
	}
	return termenv.NewOutput(f).ColorProfile() != termenv.Ascii
}

// EffectiveMode resolves ModeAuto: text on a TTY, markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if f, ok := r.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ModeText
	}
	return ModeMarkdown
}

// Writer returns the underlying output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// Styles returns the lipgloss style set.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line to the output writer.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to the output writer.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Warning writes a styled warning line to the error writer.
func (r *Renderer) Warning(format string, a ...any) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render("Warning: "+fmt.Sprintf(format, a...)))
}

// Error writes a styled error line to the error writer.
func (r *Renderer) Error(format string, a ...any) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("Error: "+fmt.Sprintf(format, a...)))
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders a tabular result according to the effective mode.
func (r *Renderer) Table(result *tabular.Result) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.tableJSON(result)
	case ModeCSV:
		return r.tableCSV(result)
	case ModeMarkdown:
		_, err := fmt.Fprintln(r.out, prettyTable(result).RenderMarkdown())
		return err
	default:
		t := prettyTable(result)
		t.SetStyle(table.StyleLight)
		_, err := fmt.Fprintln(r.out, t.Render())
		if err != nil {
			return err
		}
		r.Printf("(%d rows)\n", result.RowCount())
		return nil
	}
}

func (r *Renderer) tableJSON(result *tabular.Result) error {
	cols := result.ColumnNames()
	records := make([]map[string]string, 0, result.RowCount())
	for i := 0; i < result.RowCount(); i++ {
		row := result.Row(i)
		rec := make(map[string]string, len(cols))
		for j, col := range cols {
			rec[col] = row[j]
		}
		records = append(records, rec)
	}
	return r.JSON(records)
}

func (r *Renderer) tableCSV(result *tabular.Result) error {
	_, err := fmt.Fprintln(r.out, prettyTable(result).RenderCSV())
	return err
}

func prettyTable(result *tabular.Result) table.Writer {
	t := table.NewWriter()
	header := make(table.Row, 0, len(result.ColumnNames()))
	for _, name := range result.ColumnNames() {
		header = append(header, name)
	}
	t.AppendHeader(header)
	for i := 0; i < result.RowCount(); i++ {
		cells := result.Row(i)
		row := make(table.Row, 0, len(cells))
		for _, cell := range cells {
			row = append(row, cell)
		}
		t.AppendRow(row)
	}
	return t
}
