package bps

import "github.com/stadata-x/stadatax/internal/tabular"

// RegionLevel is the administrative level of a region.
type RegionLevel string

const (
	LevelNational RegionLevel = "national"
	LevelProvince RegionLevel = "province"
	LevelDistrict RegionLevel = "district"
)

// Region is an administrative geographic unit ("domain" in BPS terms).
type Region struct {
	ID   string `mapstructure:"domain_id" json:"id"`
	Name string `mapstructure:"domain_name" json:"name"`
	URL  string `mapstructure:"domain_url" json:"url,omitempty"`
}

// Level derives the administrative level from the domain id: "0000" is the
// national domain, ids ending in "00" are provinces, the rest districts.
func (r Region) Level() RegionLevel {
	switch {
	case r.ID == "0000":
		return LevelNational
	case len(r.ID) == 4 && r.ID[2:] == "00":
		return LevelProvince
	default:
		return LevelDistrict
	}
}

// TableInfo describes a static table as listed by the service.
type TableInfo struct {
	ID        string `mapstructure:"table_id" json:"id"`
	Title     string `mapstructure:"title" json:"title"`
	Subject   string `mapstructure:"subj" json:"subject,omitempty"`
	UpdatedAt string `mapstructure:"updt_date" json:"updated_at,omitempty"`
	ExcelURL  string `mapstructure:"excel" json:"excel_url,omitempty"`
}

// TableFilters narrow a static table listing. Zero values mean "no filter".
type TableFilters struct {
	Keyword string
	Subject string
	Page    int
}

// TableData is a fetched static table: the parsed tabular payload plus
// display metadata.
type TableData struct {
	ID     string
	Title  string
	Notes  string // Markdown, converted from the HTML notes in the payload
	Result *tabular.Result
}

// VariableInfo describes a dynamic table variable as listed by the service.
type VariableInfo struct {
	ID      string `mapstructure:"var_id" json:"id"`
	Title   string `mapstructure:"title" json:"title"`
	Subject string `mapstructure:"sub_name" json:"subject,omitempty"`
	Unit    string `mapstructure:"unit" json:"unit,omitempty"`
}

// VariableOption is one selectable value of a dynamic table variable.
type VariableOption struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Code      string `json:"code,omitempty"`
	Group     string `json:"group,omitempty"`
	GroupName string `json:"group_name,omitempty"`
}

// DynamicMetadata holds the variable axes available for a dynamic table.
type DynamicMetadata struct {
	VerticalVars   []VariableOption
	HorizontalVars []VariableOption
	Years          []VariableOption
	DerivedYears   []VariableOption
	SourceDomain   string
}

// Complete reports whether the metadata carries every axis needed to build
// a data request.
func (m *DynamicMetadata) Complete() bool {
	return len(m.VerticalVars) > 0 && len(m.HorizontalVars) > 0 && len(m.Years) > 0
}

// DynamicRequest selects a concrete slice of a dynamic table.
type DynamicRequest struct {
	RegionID       string
	VariableID     string
	VerticalVarID  string
	Year           string
	HorizontalIDs  []string
	VerticalItemID []string
	// SourceDomain overrides RegionID when metadata came from a fallback
	// domain.
	SourceDomain string
}
