package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite. Methods tolerate a nil
// receiver and report "database not opened", so a typed-nil store stored in
// a Store interface degrades instead of crashing.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite history store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// OpenDB attaches an existing connection, for tests.
func (s *SQLiteStore) OpenDB(db *sql.DB) {
	s.db = db
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s != nil && s.db != nil {
		return s.db.Close()
	}
	return nil
}

// TouchRecentTable inserts or refreshes a recently viewed table. The
// (region, table) pair is unique; re-viewing bumps viewed_at.
func (s *SQLiteStore) TouchRecentTable(entry RecentTable) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("database not opened")
	}

	viewedAt := entry.ViewedAt
	if viewedAt.IsZero() {
		viewedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO recent_tables (region_id, region_name, table_id, title, viewed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (region_id, table_id) DO UPDATE SET
			region_name = excluded.region_name,
			title = excluded.title,
			viewed_at = excluded.viewed_at`,
		entry.RegionID, entry.RegionName, entry.TableID, entry.Title, viewedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record recent table: %w", err)
	}
	return nil
}

// RecentTables returns the most recently viewed tables, newest first.
func (s *SQLiteStore) RecentTables(limit int) ([]RecentTable, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT region_id, region_name, table_id, title, viewed_at
		FROM recent_tables
		ORDER BY viewed_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []RecentTable
	for rows.Next() {
		var e RecentTable
		if err := rows.Scan(&e.RegionID, &e.RegionName, &e.TableID, &e.Title, &e.ViewedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent table: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// RecordExport stores a completed export and returns its generated id.
func (s *SQLiteStore) RecordExport(rec ExportRecord) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("database not opened")
	}

	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	exportedAt := rec.ExportedAt
	if exportedAt.IsZero() {
		exportedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO exports (id, region_id, table_id, path, format, row_count, exported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, rec.RegionID, rec.TableID, rec.Path, rec.Format, rec.Rows, exportedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record export: %w", err)
	}
	return id, nil
}

// RecentExports returns the most recent exports, newest first.
func (s *SQLiteStore) RecentExports(limit int) ([]ExportRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT id, region_id, table_id, path, format, row_count, exported_at
		FROM exports
		ORDER BY exported_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []ExportRecord
	for rows.Next() {
		var r ExportRecord
		if err := rows.Scan(&r.ID, &r.RegionID, &r.TableID, &r.Path, &r.Format, &r.Rows, &r.ExportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
