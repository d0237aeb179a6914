package state

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore()
	require.NoError(t, s.Open(":memory:"))
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func TestRecentTables_TouchAndOrder(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2023, 12, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchRecentTable(RecentTable{
		RegionID: "1100", RegionName: "ACEH", TableID: "287",
		Title: "Luas Panen Padi", ViewedAt: base,
	}))
	require.NoError(t, s.TouchRecentTable(RecentTable{
		RegionID: "1200", RegionName: "SUMATERA UTARA", TableID: "301",
		Title: "Produksi Jagung", ViewedAt: base.Add(time.Hour),
	}))

	entries, err := s.RecentTables(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "301", entries[0].TableID, "newest first")

	// Re-viewing the first table bumps it to the top without duplicating.
	require.NoError(t, s.TouchRecentTable(RecentTable{
		RegionID: "1100", RegionName: "ACEH", TableID: "287",
		Title: "Luas Panen Padi", ViewedAt: base.Add(2 * time.Hour),
	}))

	entries, err = s.RecentTables(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "287", entries[0].TableID)
}

func TestRecentTables_Limit(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2023, 12, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.TouchRecentTable(RecentTable{
			RegionID: "1100", TableID: string(rune('a' + i)),
			ViewedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := s.RecentTables(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestExports_RecordAndList(t *testing.T) {
	s := newTestStore(t)

	id, err := s.RecordExport(ExportRecord{
		RegionID: "1100", TableID: "287",
		Path: "/tmp/padi.csv", Format: "csv", Rows: 34,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id, "an id is generated when absent")

	records, err := s.RecentExports(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, "csv", records[0].Format)
	assert.Equal(t, 34, records[0].Rows)
	assert.False(t, records[0].ExportedAt.IsZero())
}

func TestStore_NotOpened(t *testing.T) {
	s := NewSQLiteStore()

	err := s.TouchRecentTable(RecentTable{RegionID: "1100", TableID: "287"})
	assert.ErrorContains(t, err, "not opened")

	_, err = s.RecentTables(5)
	assert.ErrorContains(t, err, "not opened")
}

func TestStore_NilReceiver(t *testing.T) {
	var s *SQLiteStore

	assert.Error(t, s.TouchRecentTable(RecentTable{RegionID: "1100", TableID: "1"}))
	_, err := s.RecentTables(5)
	assert.Error(t, err)
	_, err = s.RecordExport(ExportRecord{TableID: "1"})
	assert.Error(t, err)
	_, err = s.RecentExports(5)
	assert.Error(t, err)
	assert.NoError(t, s.Close())
}

func TestRecentTables_QueryErrorIsWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT region_id").WillReturnError(assert.AnError)

	s := NewSQLiteStore()
	s.OpenDB(db)

	_, err = s.RecentTables(5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list recent tables")
	assert.NoError(t, mock.ExpectationsWereMet())
}
