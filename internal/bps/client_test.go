package bps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:    srv.URL,
		Token:      "test_token_123",
		HTTPClient: srv.Client(),
	})
}

func TestClient_NoToken(t *testing.T) {
	c := New(Config{BaseURL: "http://localhost:0"})
	_, err := c.Regions(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestClient_SetToken(t *testing.T) {
	var seenKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenKey = r.URL.Query().Get("key")
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	assert.False(t, c.Ready())

	c.SetToken("rotated-token")
	require.True(t, c.Ready())

	_, err := c.Regions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rotated-token", seenKey)
}

func TestRegions_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "domain", r.URL.Query().Get("model"))
		assert.Equal(t, "test_token_123", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{
			"data-availability": "available",
			"data": [
				{"domain_id": "1100", "domain_name": "ACEH"},
				{"domain_id": "1200", "domain_name": "SUMATERA UTARA"},
				{"domain_id": "1101", "domain_name": "KAB. SIMEULUE"}
			]
		}`))
	})

	regions, err := c.Regions(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 3)
	assert.Equal(t, "ACEH", regions[0].Name)
	assert.Equal(t, LevelProvince, regions[0].Level())
	assert.Equal(t, LevelDistrict, regions[2].Level())
}

func TestRegions_EmptyDataIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	})

	regions, err := c.Regions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestRegions_HTTP500(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Regions(context.Background())

	var serr *StatusError
	require.True(t, errors.As(err, &serr), "want *StatusError, got %v", err)
	assert.Equal(t, 500, serr.Code)
	assert.True(t, serr.IsServer())
}

func TestRegions_HTTP401IsAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Regions(context.Background())

	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.True(t, serr.IsAuth())
}

func TestRegions_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing is listening anymore

	c := New(Config{BaseURL: url, Token: "tok"})
	_, err := c.Regions(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestRegions_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"data": []}`))
	})
	c.httpc = &http.Client{Timeout: 20 * time.Millisecond}

	_, err := c.Regions(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRegions_MalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": not-json`))
	})

	_, err := c.Regions(context.Background())

	var merr *MalformedError
	assert.True(t, errors.As(err, &merr), "want *MalformedError, got %v", err)
}

func TestRegions_MissingIDField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"domain_name": "no id here"}]}`))
	})

	_, err := c.Regions(context.Background())

	var merr *MalformedError
	require.True(t, errors.As(err, &merr))
	assert.Contains(t, merr.Reason, "domain_id")
}

func TestRegions_SessionCache(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"data": [{"domain_id": "1100", "domain_name": "ACEH"}]}`))
	})

	_, err := c.Regions(context.Background())
	require.NoError(t, err)
	_, err = c.Regions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second call must hit the session cache")
}

func TestRegions_EmptyResultIsCachedToo(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"data": []}`))
	})

	regions, err := c.Regions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, regions)

	_, err = c.Regions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "an empty region list is a valid cached result")
}

func TestStaticTables_FiltersBecomeQueryParams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "statictable", q.Get("model"))
		assert.Equal(t, "1100", q.Get("domain"))
		assert.Equal(t, "padi", q.Get("keyword"))
		assert.Equal(t, "2", q.Get("page"))
		_, _ = w.Write([]byte(`{
			"data": [
				{"paging": {"pages": 3}},
				[{"table_id": "287", "title": "Luas Panen Padi", "subj": "Pertanian", "updt_date": "2023-12-01"}]
			]
		}`))
	})

	tables, err := c.StaticTables(context.Background(), "1100", TableFilters{Keyword: "padi", Page: 2})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "287", tables[0].ID)
	assert.Equal(t, "Luas Panen Padi", tables[0].Title)
	assert.Equal(t, "Pertanian", tables[0].Subject)
}

func TestStaticTables_EmptyResultIsSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	})

	tables, err := c.StaticTables(context.Background(), "1100", TableFilters{})
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestStaticTable_HTMLPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "287", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{
			"data": [{
				"table_id": "287",
				"title": "Luas Panen Padi &amp; Produksi",
				"notes": "<p>Sumber: <b>BPS</b></p>",
				"table": "<table><tr><th>Provinsi</th><th>Luas Panen</th></tr><tr><td>ACEH</td><td>15000</td></tr><tr><td>SUMATERA UTARA</td><td>20000</td></tr></table>"
			}]
		}`))
	})

	td, err := c.StaticTable(context.Background(), "1100", "287")
	require.NoError(t, err)

	assert.Equal(t, "Luas Panen Padi & Produksi", td.Title)
	assert.Contains(t, td.Notes, "**BPS**")

	require.NotNil(t, td.Result)
	assert.Equal(t, []string{"Provinsi", "Luas Panen"}, td.Result.ColumnNames())
	assert.Equal(t, 2, td.Result.RowCount())
	assert.Equal(t, "numeric", td.Result.Columns()[1].Kind.String())
}

func TestStaticTable_RecordPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"data": [
				{"kode": "11", "nama": "ACEH", "nilai": 75000},
				{"kode": "12", "nama": "SUMATERA UTARA", "nilai": 100000}
			]
		}`))
	})

	td, err := c.StaticTable(context.Background(), "1100", "287")
	require.NoError(t, err)
	assert.Equal(t, []string{"kode", "nama", "nilai"}, td.Result.ColumnNames())
	assert.Equal(t, 2, td.Result.RowCount())
}

func TestStaticTable_EmptyIsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	})

	_, err := c.StaticTable(context.Background(), "1100", "404")

	var merr *MalformedError
	assert.True(t, errors.As(err, &merr))
}
