package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stadata-x/stadatax/internal/bps"
	"github.com/stadata-x/stadatax/internal/export"
)

// ConfigReloadedMsg tells the browser the config file changed on disk and
// the client token has already been swapped.
type ConfigReloadedMsg struct{}

// Messages produced by the async commands.
type (
	regionsLoadedMsg struct{ regions []bps.Region }
	tablesLoadedMsg  struct {
		regionID string
		tables   []bps.TableInfo
	}
	tableLoadedMsg struct{ data *bps.TableData }
	exportDoneMsg  struct{ path string }
	errMsg         struct{ err error }
)

const fetchTimeout = 60 * time.Second

func (m *Model) loadRegionsCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		regions, err := client.Regions(ctx)
		if err != nil {
			return errMsg{err}
		}
		return regionsLoadedMsg{regions: regions}
	}
}

func (m *Model) loadTablesCmd(regionID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		tables, err := client.StaticTables(ctx, regionID, bps.TableFilters{})
		if err != nil {
			return errMsg{err}
		}
		return tablesLoadedMsg{regionID: regionID, tables: tables}
	}
}

func (m *Model) loadTableCmd(regionID, tableID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		data, err := client.StaticTable(ctx, regionID, tableID)
		if err != nil {
			return errMsg{err}
		}
		return tableLoadedMsg{data: data}
	}
}

func (m *Model) exportCmd(path string) tea.Cmd {
	data := m.preview
	return func() tea.Msg {
		format, err := export.FormatForPath(path)
		if err != nil {
			return errMsg{err}
		}
		if err := export.Export(data.Result, path, format, export.Options{}); err != nil {
			return errMsg{err}
		}
		return exportDoneMsg{path: path}
	}
}

// humanize turns client errors into a short message for the status line.
func humanize(err error) string {
	var statusErr *bps.StatusError
	switch {
	case errors.Is(err, bps.ErrNoToken):
		return "no API token configured (stadatax token set <token>)"
	case errors.Is(err, bps.ErrTimeout):
		return "request timed out; press r to retry"
	case errors.Is(err, bps.ErrNetwork):
		return "network error; press r to retry"
	case errors.As(err, &statusErr) && statusErr.IsAuth():
		return "API token rejected"
	case errors.As(err, &statusErr):
		return err.Error()
	case errors.Is(err, export.ErrExists):
		return "file already exists; pick another name"
	default:
		return err.Error()
	}
}
