// Package state persists browsing history: recently viewed tables and
// completed exports.
package state

import "time"

// RecentTable is one entry in the recently viewed list.
type RecentTable struct {
	RegionID   string
	RegionName string
	TableID    string
	Title      string
	ViewedAt   time.Time
}

// ExportRecord describes one completed export.
type ExportRecord struct {
	ID         string
	RegionID   string
	TableID    string
	Path       string
	Format     string
	Rows       int
	ExportedAt time.Time
}

// Store is the persistence interface for browsing history.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	TouchRecentTable(entry RecentTable) error
	RecentTables(limit int) ([]RecentTable, error)

	RecordExport(rec ExportRecord) (string, error)
	RecentExports(limit int) ([]ExportRecord, error)
}
