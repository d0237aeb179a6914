// Package bps is the client for the BPS (Badan Pusat Statistik) WebAPI.
//
// Every call issues a single GET with a bounded timeout and surfaces
// failures immediately as typed errors; there is no hidden retry loop, the
// caller decides whether to try again.
package bps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"

	"github.com/stadata-x/stadatax/internal/tabular"
)

// DefaultBaseURL is the production BPS WebAPI endpoint.
const DefaultBaseURL = "https://webapi.bps.go.id/v1/api"

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	// HTTPClient carries the bounded timeout. When nil a default client
	// with a 30s timeout is used.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the BPS WebAPI. Safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger

	// mu guards the token (replaceable at runtime via SetToken) and the
	// session-only region cache.
	mu      sync.Mutex
	token   string
	regions []Region
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   cfg.Token,
		httpc:   httpc,
		logger:  logger,
	}
}

// Ready reports whether the client has a token.
func (c *Client) Ready() bool { return c.currentToken() != "" }

// SetToken replaces the API token, e.g. after the config file changed on
// disk. In-flight requests keep the token they started with.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// listResponse is the common envelope of the WebAPI list endpoint.
type listResponse struct {
	Availability string          `json:"data-availability"`
	Data         json.RawMessage `json:"data"`
	DataContent  json.RawMessage `json:"datacontent"`
}

// doList issues GET {base}/list with the given model and params and decodes
// the envelope. Errors are classified into the client's error taxonomy.
func (c *Client) doList(ctx context.Context, model string, params url.Values) (*listResponse, error) {
	token := c.currentToken()
	if token == "" {
		return nil, ErrNoToken
	}

	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("model", model)
	q.Set("key", token)

	reqURL := c.baseURL + "/list?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	reqID := uuid.NewString()
	c.logger.Debug("bps request", "model", model, "request_id", reqID)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("bps response", "model", model, "request_id", reqID, "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	var lr listResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, &MalformedError{Reason: "body is not valid JSON", Err: err}
	}
	return &lr, nil
}

// classifyTransportError maps low-level request failures onto the typed
// taxonomy: deadline problems become ErrTimeout, everything else ErrNetwork.
func classifyTransportError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// decodeRecords extracts the record objects from a list payload. The WebAPI
// uses two shapes: a flat array of objects, or a two-element array of
// [paging, [objects]].
func decodeRecords(raw json.RawMessage) ([]map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &MalformedError{Reason: "data field is not an array", Err: err}
	}

	// Paged shape: [ {paging...}, [ {record}, ... ] ]
	if len(items) == 2 {
		var nested []map[string]any
		if err := json.Unmarshal(items[1], &nested); err == nil {
			return nested, nil
		}
	}

	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		var rec map[string]any
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, &MalformedError{Reason: "record is not an object", Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

// decodeInto decodes loosely typed records into a typed slice. BPS payloads
// mix numbers and strings for the same field across endpoints, so decoding
// is weakly typed.
func decodeInto(records []map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(records); err != nil {
		return &MalformedError{Reason: "record fields have unexpected types", Err: err}
	}
	return nil
}

// Regions fetches the list of regions (BPS domains). The first successful
// fetch is cached for the rest of the session. An empty data array is a
// valid, empty result.
func (c *Client) Regions(ctx context.Context) ([]Region, error) {
	c.mu.Lock()
	if c.regions != nil {
		cached := append([]Region(nil), c.regions...)
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	params := url.Values{}
	params.Set("type", "all")
	lr, err := c.doList(ctx, "domain", params)
	if err != nil {
		return nil, err
	}

	records, err := decodeRecords(lr.Data)
	if err != nil {
		return nil, err
	}

	regions := make([]Region, 0, len(records))
	if err := decodeInto(records, &regions); err != nil {
		return nil, err
	}
	for i := range regions {
		if regions[i].ID == "" {
			return nil, &MalformedError{Reason: "region record is missing domain_id"}
		}
		regions[i].Name = html.UnescapeString(strings.TrimSpace(regions[i].Name))
	}

	// The cache sentinel is non-nil even for an empty region list, so an
	// empty result is cached too.
	cached := make([]Region, len(regions))
	copy(cached, regions)
	c.mu.Lock()
	c.regions = cached
	c.mu.Unlock()

	return regions, nil
}

// StaticTables lists the static tables of a region, optionally filtered.
// An empty result set is a success, not an error.
func (c *Client) StaticTables(ctx context.Context, regionID string, f TableFilters) ([]TableInfo, error) {
	params := url.Values{}
	params.Set("domain", regionID)
	if f.Keyword != "" {
		params.Set("keyword", f.Keyword)
	}
	if f.Subject != "" {
		params.Set("subject", f.Subject)
	}
	if f.Page > 0 {
		params.Set("page", strconv.Itoa(f.Page))
	}

	lr, err := c.doList(ctx, "statictable", params)
	if err != nil {
		return nil, err
	}

	records, err := decodeRecords(lr.Data)
	if err != nil {
		return nil, err
	}

	tables := make([]TableInfo, 0, len(records))
	if err := decodeInto(records, &tables); err != nil {
		return nil, err
	}
	for i := range tables {
		tables[i].Title = html.UnescapeString(strings.TrimSpace(tables[i].Title))
	}
	return tables, nil
}

// StaticTable fetches one static table and converts it into a TabularResult.
// The payload carries the table body as HTML; record-array payloads are also
// accepted.
func (c *Client) StaticTable(ctx context.Context, regionID, tableID string) (*TableData, error) {
	params := url.Values{}
	params.Set("domain", regionID)
	params.Set("id", tableID)

	lr, err := c.doList(ctx, "statictable", params)
	if err != nil {
		return nil, err
	}

	records, err := decodeRecords(lr.Data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &MalformedError{Reason: fmt.Sprintf("table %s is empty or unavailable", tableID)}
	}

	rec := records[0]
	td := &TableData{ID: tableID}
	if title, ok := rec["title"].(string); ok {
		td.Title = html.UnescapeString(strings.TrimSpace(title))
	}

	if notes, ok := rec["notes"].(string); ok && notes != "" {
		if md, err := htmltomarkdown.ConvertString(notes); err == nil {
			td.Notes = strings.TrimSpace(md)
		}
	}

	// Preferred shape: HTML table body under "table".
	if body, ok := rec["table"].(string); ok && strings.Contains(body, "<table") {
		result, err := ParseHTMLTable(strings.NewReader(body))
		if err != nil {
			return nil, &MalformedError{Reason: "table HTML could not be parsed", Err: err}
		}
		td.Result = result
		return td, nil
	}

	// Fallback shape: the data array itself is the rows.
	result, err := resultFromRecords(records)
	if err != nil {
		return nil, err
	}
	td.Result = result
	return td, nil
}

// resultFromRecords builds a Result from generic JSON records. Columns are
// the union of record keys in sorted order so output is deterministic.
func resultFromRecords(records []map[string]any) (*tabular.Result, error) {
	keys := map[string]struct{}{}
	for _, rec := range records {
		for k := range rec {
			keys[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(keys))
	for k := range keys {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = stringifyCell(rec[col])
		}
		rows = append(rows, row)
	}
	return tabular.New(columns, rows)
}

func stringifyCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return html.UnescapeString(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
