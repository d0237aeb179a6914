// Package export serializes tabular results to files on disk.
//
// Exports are atomic: the data is written to a temp file in the target
// directory and renamed into place, so the target path is either fully
// written or never created.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"

	"github.com/stadata-x/stadatax/internal/tabular"
)

// Format is a supported export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatXLSX     Format = "xlsx"
)

// ErrExists is returned when the target file already exists and overwrite
// was not requested.
var ErrExists = errors.New("target file already exists")

// UnsupportedFormatError reports an unrecognized export format.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format %q (supported: csv, json, markdown, html, xlsx)", e.Format)
}

// WriteError reports an I/O failure while exporting.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write export %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Options adjust export behavior.
type Options struct {
	// Overwrite allows replacing an existing file.
	Overwrite bool
}

// ParseFormat normalizes a user-supplied format name. The extension of a
// path (with or without the dot) is accepted too.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", &UnsupportedFormatError{Format: s}
	}
}

// FormatForPath infers the format from the file extension of path.
func FormatForPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", &UnsupportedFormatError{Format: path}
	}
	return ParseFormat(ext)
}

// Export serializes result to path in the given format.
func Export(result *tabular.Result, path string, format Format, opts Options) error {
	if result == nil {
		return fmt.Errorf("nothing to export")
	}

	var render func(io.Writer, *tabular.Result) error
	switch format {
	case FormatCSV:
		render = renderCSV
	case FormatJSON:
		render = renderJSON
	case FormatMarkdown:
		render = renderMarkdown
	case FormatHTML:
		render = renderHTML
	case FormatXLSX:
		render = renderXLSX
	default:
		return &UnsupportedFormatError{Format: string(format)}
	}

	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if err := render(tmp, result); err != nil {
		cleanup()
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// renderCSV writes RFC 4180 CSV with a UTF-8 BOM so spreadsheet apps detect
// the encoding of Indonesian region names correctly.
func renderCSV(w io.Writer, result *tabular.Result) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(result.ColumnNames()); err != nil {
		return err
	}
	for i := 0; i < result.RowCount(); i++ {
		if err := cw.Write(result.Row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// renderJSON writes one object per row, preserving inferred column kinds:
// numeric cells become JSON numbers.
func renderJSON(w io.Writer, result *tabular.Result) error {
	cols := result.Columns()
	records := make([]map[string]any, 0, result.RowCount())
	for i := 0; i < result.RowCount(); i++ {
		row := result.Row(i)
		rec := make(map[string]any, len(cols))
		for j, col := range cols {
			if col.Kind == tabular.KindNumeric && row[j] != "" {
				if n, err := strconv.ParseFloat(row[j], 64); err == nil {
					rec[col.Name] = n
					continue
				}
			}
			rec[col.Name] = row[j]
		}
		records = append(records, rec)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func renderMarkdown(w io.Writer, result *tabular.Result) error {
	_, err := io.WriteString(w, prettyTable(result).RenderMarkdown()+"\n")
	return err
}

func renderHTML(w io.Writer, result *tabular.Result) error {
	_, err := io.WriteString(w, prettyTable(result).RenderHTML()+"\n")
	return err
}

// renderXLSX writes a single-sheet workbook. Numeric cells are written as
// numbers so spreadsheet formulas work on them directly.
func renderXLSX(w io.Writer, result *tabular.Result) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	cols := result.Columns()
	for j, col := range cols {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col.Name); err != nil {
			return err
		}
	}
	for i := 0; i < result.RowCount(); i++ {
		row := result.Row(i)
		for j, col := range cols {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			var value any = row[j]
			if col.Kind == tabular.KindNumeric && row[j] != "" {
				if n, err := strconv.ParseFloat(row[j], 64); err == nil {
					value = n
				}
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	_, err := f.WriteTo(w)
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
		row := make(table.Row, 0, len(header))
		for _, cell := range result.Row(i) {
			row = append(row, cell)
		}
		t.AppendRow(row)
	}
	return t
}
