package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/stadata-x/stadatax/internal/bps"
)

// regionItem adapts a bps.Region to the list component.
type regionItem struct {
	region bps.Region
}

func (i regionItem) Title() string       { return i.region.Name }
func (i regionItem) Description() string { return fmt.Sprintf("%s · %s", i.region.ID, i.region.Level()) }
func (i regionItem) FilterValue() string { return i.region.Name + " " + i.region.ID }

// tableItem adapts a bps.TableInfo to the list component.
type tableItem struct {
	table bps.TableInfo
}

func (i tableItem) Title() string { return i.table.Title }
func (i tableItem) Description() string {
	desc := i.table.ID
	if i.table.UpdatedAt != "" {
		desc += " · updated " + i.table.UpdatedAt
	}
	return desc
}
func (i tableItem) FilterValue() string { return i.table.Title }

var (
	_ list.Item = regionItem{}
	_ list.Item = tableItem{}
)
