// Package tabular provides the in-memory row/column representation of
// fetched datasets.
package tabular

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnKind classifies the inferred type of a column.
type ColumnKind int

const (
	// KindText is the fallback kind for any column with at least one
	// non-numeric value.
	KindText ColumnKind = iota
	// KindNumeric means every non-empty cell parses as a number.
	KindNumeric
)

// String returns the kind name.
func (k ColumnKind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// Column describes one column of a Result.
type Column struct {
	Name string
	Kind ColumnKind
}

// Result is an immutable table of fetched data. Rows are stored as strings;
// column kinds are inferred once at construction.
type Result struct {
	columns []Column
	rows    [][]string
}

// New builds a Result from column names and rows. Every row must have
// exactly one cell per column.
func New(columns []string, rows [][]string) (*Result, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(columns))
		}
	}

	cols := make([]Column, len(columns))
	for i, name := range columns {
		if name == "" {
			name = fmt.Sprintf("Unnamed_%d", i)
		}
		cols[i] = Column{Name: name, Kind: inferKind(rows, i)}
	}

	// Copy rows so the caller cannot mutate the result afterwards.
	copied := make([][]string, len(rows))
	for i, row := range rows {
		copied[i] = append([]string(nil), row...)
	}

	return &Result{columns: cols, rows: copied}, nil
}

// inferKind returns KindNumeric when every non-empty cell in column idx
// parses as a number, KindText otherwise. An all-empty column is text.
func inferKind(rows [][]string, idx int) ColumnKind {
	seen := false
	for _, row := range rows {
		cell := strings.TrimSpace(row[idx])
		if cell == "" {
			continue
		}
		seen = true
		if _, err := strconv.ParseFloat(normalizeNumber(cell), 64); err != nil {
			return KindText
		}
	}
	if !seen {
		return KindText
	}
	return KindNumeric
}

// normalizeNumber strips thousands separators commonly present in BPS
// published figures ("1 234 567" or "1,234,567").
func normalizeNumber(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	// Only treat commas as separators when a decimal point is also present
	// or the comma groups digits by three.
	if strings.Count(s, ",") > 0 && !strings.Contains(s, ".") {
		parts := strings.Split(s, ",")
		grouped := true
		for i, p := range parts {
			if i > 0 && len(p) != 3 {
				grouped = false
				break
			}
		}
		if !grouped {
			return s
		}
	}
	return strings.ReplaceAll(s, ",", "")
}

// Columns returns a copy of the column descriptors.
func (r *Result) Columns() []Column {
	return append([]Column(nil), r.columns...)
}

// ColumnNames returns the column names in order.
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.columns))
	for i, c := range r.columns {
		names[i] = c.Name
	}
	return names
}

// RowCount returns the number of rows.
func (r *Result) RowCount() int {
	return len(r.rows)
}

// Row returns a copy of row i.
func (r *Result) Row(i int) []string {
	return append([]string(nil), r.rows[i]...)
}

// Rows returns a copy of all rows.
func (r *Result) Rows() [][]string {
	rows := make([][]string, len(r.rows))
	for i := range r.rows {
		rows[i] = append([]string(nil), r.rows[i]...)
	}
	return rows
}

// Cell returns the value at row i, column j.
func (r *Result) Cell(i, j int) string {
	return r.rows[i][j]
}
