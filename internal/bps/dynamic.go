package bps

import (
	"context"
	"encoding/json"
	"html"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/stadata-x/stadatax/internal/tabular"
)

// nationalDomain is the fallback when a regional domain carries no dynamic
// table metadata of its own.
const nationalDomain = "0000"

// Field name mappings per metadata model. The WebAPI uses a different key
// set for each axis.
var (
	vervarFields = map[string]string{
		"item_ver_id":       "id",
		"vervar":            "label",
		"kode_ver_id":       "code",
		"group_ver_id":      "group",
		"name_group_ver_id": "group_name",
	}
	turvarFields = map[string]string{
		"turvar_id":         "id",
		"turvar":            "label",
		"group_turvar_id":   "group",
		"name_group_turvar": "group_name",
	}
	thFields = map[string]string{
		"th_id": "id",
		"th":    "label",
	}
	turthFields = map[string]string{
		"turth_id":         "id",
		"turth":            "label",
		"group_turth_id":   "group",
		"name_group_turth": "group_name",
	}
)

// DynamicTables lists the dynamic table variables of a region. Dynamic
// tables are addressed by variable id; this is how callers discover one. An
// empty result set is a success, not an error.
func (c *Client) DynamicTables(ctx context.Context, regionID string, f TableFilters) ([]VariableInfo, error) {
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

	lr, err := c.doList(ctx, "var", params)
	if err != nil {
		return nil, err
	}

	records, err := decodeRecords(lr.Data)
	if err != nil {
		return nil, err
	}

	vars := make([]VariableInfo, 0, len(records))
	if err := decodeInto(records, &vars); err != nil {
		return nil, err
	}
	for i := range vars {
		vars[i].Title = html.UnescapeString(strings.TrimSpace(vars[i].Title))
	}
	return vars, nil
}

// DynamicTableMetadata fetches the four variable axes of a dynamic table.
// The list models are independent, so they are fetched concurrently. When
// the regional domain has incomplete metadata the national domain is tried
// as a fallback.
func (c *Client) DynamicTableMetadata(ctx context.Context, regionID, varID string) (*DynamicMetadata, error) {
	meta, err := c.fetchMetadataForDomain(ctx, regionID, varID)
	if err != nil {
		return nil, err
	}

	if !meta.Complete() && regionID != nationalDomain {
		fallback, err := c.fetchMetadataForDomain(ctx, nationalDomain, varID)
		if err == nil && fallback.Complete() {
			meta = fallback
		}
	}

	if !meta.Complete() {
		return nil, &MalformedError{Reason: "dynamic table metadata is unavailable for these parameters"}
	}
	return meta, nil
}

func (c *Client) fetchMetadataForDomain(ctx context.Context, domain, varID string) (*DynamicMetadata, error) {
	params := url.Values{}
	params.Set("domain", domain)
	params.Set("var", varID)

	meta := &DynamicMetadata{SourceDomain: domain}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		meta.VerticalVars, err = c.fetchOptions(gctx, "vervar", params, vervarFields)
		return err
	})
	g.Go(func() (err error) {
		meta.HorizontalVars, err = c.fetchOptions(gctx, "turvar", params, turvarFields)
		return err
	})
	g.Go(func() (err error) {
		meta.Years, err = c.fetchOptions(gctx, "th", params, thFields)
		return err
	})
	g.Go(func() (err error) {
		meta.DerivedYears, err = c.fetchOptions(gctx, "turth", params, turthFields)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return meta, nil
}

// fetchOptions fetches one metadata model and remaps its records onto
// VariableOption via the per-model field table. An unavailable model yields
// an empty slice, not an error.
func (c *Client) fetchOptions(ctx context.Context, model string, params url.Values, fields map[string]string) ([]VariableOption, error) {
	lr, err := c.doList(ctx, model, params)
	if err != nil {
		return nil, err
	}
	if lr.Availability != "available" {
		return nil, nil
	}

	records, err := decodeRecords(lr.Data)
	if err != nil {
		return nil, err
	}

	options := make([]VariableOption, 0, len(records))
	for _, rec := range records {
		mapped := map[string]any{}
		for src, dst := range fields {
			if v, ok := rec[src]; ok {
				mapped[dst] = v
			}
		}
		if len(mapped) == 0 {
			continue
		}
		opt := VariableOption{
			ID:        stringifyCell(mapped["id"]),
			Label:     html.UnescapeString(strings.TrimSpace(stringifyCell(mapped["label"]))),
			Code:      stringifyCell(mapped["code"]),
			Group:     stringifyCell(mapped["group"]),
			GroupName: stringifyCell(mapped["group_name"]),
		}
		options = append(options, opt)
	}
	return options, nil
}

// datacontentKey is the positional segmentation of a datacontent map key.
type datacontentKey struct {
	Domain        string
	Year          string
	VerticalGroup string
	VerticalItem  string
	Horizontal    string
	Derived       string
}

// decodeDatacontentKey splits a datacontent key into its fixed-width
// segments: domain(4) year(2) vertical-group(2) vertical-item(5)
// horizontal(3) derived(3).
func decodeDatacontentKey(key string) (datacontentKey, bool) {
	if len(key) < 19 {
		return datacontentKey{}, false
	}
	return datacontentKey{
		Domain:        key[0:4],
		Year:          key[4:6],
		VerticalGroup: key[6:8],
		VerticalItem:  key[8:13],
		Horizontal:    key[13:16],
		Derived:       key[16:19],
	}, true
}

// DynamicTableData fetches one slice of a dynamic table and decodes the
// datacontent map into a Result, one row per key.
func (c *Client) DynamicTableData(ctx context.Context, req DynamicRequest) (*tabular.Result, error) {
	domain := req.RegionID
	if req.SourceDomain != "" {
		domain = req.SourceDomain
	}

	params := url.Values{}
	params.Set("domain", domain)
	params.Set("var", req.VariableID)
	params.Set("th", req.Year)
	if req.VerticalVarID != "" {
		params.Set("vervar", req.VerticalVarID)
	}
	if len(req.HorizontalIDs) > 0 {
		params.Set("turvar", strings.Join(req.HorizontalIDs, ";"))
	}
	if len(req.VerticalItemID) > 0 {
		params.Set("turth", strings.Join(req.VerticalItemID, ";"))
	}

	lr, err := c.doList(ctx, "data", params)
	if err != nil {
		return nil, err
	}
	if lr.Availability != "available" {
		return nil, &MalformedError{Reason: "dynamic table data is unavailable for these parameters"}
	}

	var content map[string]json.Number
	dec := json.NewDecoder(strings.NewReader(string(lr.DataContent)))
	dec.UseNumber()
	if err := dec.Decode(&content); err != nil {
		return nil, &MalformedError{Reason: "datacontent is not a valid map", Err: err}
	}
	if len(content) == 0 {
		return nil, &MalformedError{Reason: "dynamic table data is empty"}
	}

	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	columns := []string{"domain", "year", "vertical_group", "vertical_item", "horizontal", "derived", "value"}
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		seg, ok := decodeDatacontentKey(k)
		if !ok {
			continue
		}
		rows = append(rows, []string{
			seg.Domain, seg.Year, seg.VerticalGroup, seg.VerticalItem,
			seg.Horizontal, seg.Derived, content[k].String(),
		})
	}
	if len(rows) == 0 {
		return nil, &MalformedError{Reason: "datacontent keys have an unexpected format"}
	}
	return tabular.New(columns, rows)
}
