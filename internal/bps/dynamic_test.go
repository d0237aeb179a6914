package bps

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metadataHandler serves the four list models for a set of domains that
// have complete metadata.
func metadataHandler(t *testing.T, completeDomains map[string]bool) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		domain := q.Get("domain")
		if !completeDomains[domain] {
			_ = json.NewEncoder(w).Encode(map[string]any{"data-availability": "list-not-available"})
			return
		}

		var payload string
		switch q.Get("model") {
		case "vervar":
			payload = `{"data-availability":"available","data":[{"paging":{}},[{"item_ver_id":117,"vervar":"ACEH &amp; SEKITARNYA","kode_ver_id":11}]]}`
		case "turvar":
			payload = `{"data-availability":"available","data":[{"paging":{}},[{"turvar_id":1,"turvar":"Jumlah"}]]}`
		case "th":
			payload = `{"data-availability":"available","data":[{"paging":{}},[{"th_id":120,"th":"2023"}]]}`
		case "turth":
			payload = `{"data-availability":"available","data":[{"paging":{}},[{"turth_id":0,"turth":"Tahunan"}]]}`
		default:
			t.Errorf("unexpected model %q", q.Get("model"))
		}
		_, _ = w.Write([]byte(payload))
	}
}

func TestDynamicTables(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "var", q.Get("model"))
		assert.Equal(t, "1100", q.Get("domain"))
		assert.Equal(t, "padi", q.Get("keyword"))
		_, _ = w.Write([]byte(`{
			"data-availability": "available",
			"data": [
				{"paging": {"page": 1}},
				[{"var_id": 45, "title": "Produksi Padi &amp; Palawija", "sub_name": "Pertanian", "unit": "Ton"}]
			]
		}`))
	})

	vars, err := c.DynamicTables(context.Background(), "1100", TableFilters{Keyword: "padi"})
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "45", vars[0].ID)
	assert.Equal(t, "Produksi Padi & Palawija", vars[0].Title, "titles are HTML-unescaped")
	assert.Equal(t, "Ton", vars[0].Unit)
}

func TestDynamicTables_EmptyIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	})

	vars, err := c.DynamicTables(context.Background(), "1100", TableFilters{})
	require.NoError(t, err)
	assert.Empty(t, vars)
}

func TestDynamicTableMetadata(t *testing.T) {
	c := newTestClient(t, metadataHandler(t, map[string]bool{"1100": true}))

	meta, err := c.DynamicTableMetadata(context.Background(), "1100", "45")
	require.NoError(t, err)

	assert.Equal(t, "1100", meta.SourceDomain)
	require.Len(t, meta.VerticalVars, 1)
	assert.Equal(t, "117", meta.VerticalVars[0].ID)
	assert.Equal(t, "ACEH & SEKITARNYA", meta.VerticalVars[0].Label, "labels are HTML-unescaped")
	assert.Equal(t, "2023", meta.Years[0].Label)
	assert.True(t, meta.Complete())
}

func TestDynamicTableMetadata_FallsBackToNationalDomain(t *testing.T) {
	c := newTestClient(t, metadataHandler(t, map[string]bool{nationalDomain: true}))

	meta, err := c.DynamicTableMetadata(context.Background(), "1171", "45")
	require.NoError(t, err)
	assert.Equal(t, nationalDomain, meta.SourceDomain)
}

func TestDynamicTableMetadata_UnavailableEverywhere(t *testing.T) {
	c := newTestClient(t, metadataHandler(t, nil))

	_, err := c.DynamicTableMetadata(context.Background(), "1171", "45")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata is unavailable")
}

func TestDecodeDatacontentKey(t *testing.T) {
	seg, ok := decodeDatacontentKey("1100120100117001000")
	require.True(t, ok)
	assert.Equal(t, "1100", seg.Domain)
	assert.Equal(t, "12", seg.Year)
	assert.Equal(t, "01", seg.VerticalGroup)
	assert.Equal(t, "00117", seg.VerticalItem)
	assert.Equal(t, "001", seg.Horizontal)
	assert.Equal(t, "000", seg.Derived)

	_, ok = decodeDatacontentKey("too-short")
	assert.False(t, ok)
}

func TestDynamicTableData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "data", q.Get("model"))
		assert.Equal(t, "120", q.Get("th"))
		assert.Equal(t, "1;2", q.Get("turvar"))
		_, _ = w.Write([]byte(`{
			"data-availability": "available",
			"datacontent": {
				"1100120100117001000": 75000.5,
				"1200120100118001000": 100000
			}
		}`))
	})

	result, err := c.DynamicTableData(context.Background(), DynamicRequest{
		RegionID:      "1100",
		VariableID:    "45",
		Year:          "120",
		HorizontalIDs: []string{"1", "2"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.RowCount())
	assert.Equal(t,
		[]string{"domain", "year", "vertical_group", "vertical_item", "horizontal", "derived", "value"},
		result.ColumnNames())
	// Rows are sorted by key for deterministic output.
	assert.Equal(t, "75000.5", result.Cell(0, 6))
	assert.Equal(t, "100000", result.Cell(1, 6))
}

func TestDynamicTableData_Unavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data-availability": "list-not-available"}`))
	})

	_, err := c.DynamicTableData(context.Background(), DynamicRequest{RegionID: "1100", VariableID: "45", Year: "120"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
}
