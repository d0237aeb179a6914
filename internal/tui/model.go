// Package tui implements the interactive browser: regions, tables, preview,
// and export, as a bubbletea program.
package tui

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stadata-x/stadatax/internal/bps"
	"github.com/stadata-x/stadatax/internal/state"
	"github.com/stadata-x/stadatax/internal/tabular"
)

// screen identifies which view is active.
type screen int

const (
	screenRegions screen = iota
	screenTables
	screenPreview
	screenExport
)

// Config wires the browser's dependencies.
type Config struct {
	Client *bps.Client
	// History may be nil; viewing and exporting still work without it.
	History       state.Store
	DefaultRegion string
	DownloadDir   string
	Logger        *slog.Logger
}

// Model is the bubbletea model of the browser.
type Model struct {
	client        *bps.Client
	history       state.Store
	logger        *slog.Logger
	downloadDir   string
	defaultRegion string

	screen  screen
	loading bool
	errText string
	status  string

	regions    list.Model
	tables     list.Model
	regionID   string
	regionName string

	preview      *bps.TableData
	previewTable table.Model

	exportInput textinput.Model
	spin        spinner.Model

	width  int
	height int
}

// NewModel creates the browser model.
func NewModel(cfg Config) *Model {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	delegate := list.NewDefaultDelegate()

	regions := list.New(nil, delegate, 0, 0)
	regions.Title = "Regions"
	regions.SetShowStatusBar(false)

	tables := list.New(nil, delegate, 0, 0)
	tables.Title = "Tables"
	tables.SetShowStatusBar(false)

	input := textinput.New()
	input.Prompt = "Export to: "
	input.CharLimit = 512

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		client:        cfg.Client,
		history:       cfg.History,
		logger:        logger,
		downloadDir:   cfg.DownloadDir,
		defaultRegion: cfg.DefaultRegion,
		screen:        screenRegions,
		loading:       true,
		regions:       regions,
		tables:        tables,
		exportInput:   input,
		spin:          sp,
	}

	if cfg.History != nil {
		if entries, err := cfg.History.RecentTables(3); err == nil && len(entries) > 0 {
			ids := make([]string, 0, len(entries))
			for _, e := range entries {
				ids = append(ids, e.TableID)
			}
			m.status = "Recently viewed: " + strings.Join(ids, ", ")
		}
	}
	return m
}

// Init starts the region fetch.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.loadRegionsCmd())
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		listHeight := msg.Height - 4
		if listHeight < 5 {
			listHeight = 5
		}
		m.regions.SetSize(msg.Width, listHeight)
		m.tables.SetSize(msg.Width, listHeight)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case regionsLoadedMsg:
		m.loading = false
		m.errText = ""
		items := make([]list.Item, 0, len(msg.regions))
		for _, reg := range msg.regions {
			items = append(items, regionItem{region: reg})
		}
		m.regions.SetItems(items)
		// Start on the configured default region.
		for i, reg := range msg.regions {
			if reg.ID == m.defaultRegion {
				m.regions.Select(i)
				break
			}
		}
		return m, nil

	case ConfigReloadedMsg:
		m.status = "Configuration reloaded"
		m.errText = ""
		// A freshly set token may unblock the initial fetch.
		if m.screen == screenRegions && len(m.regions.Items()) == 0 && !m.loading {
			m.loading = true
			return m, tea.Batch(m.spin.Tick, m.loadRegionsCmd())
		}
		return m, nil

	case tablesLoadedMsg:
		m.loading = false
		m.errText = ""
		m.screen = screenTables
		items := make([]list.Item, 0, len(msg.tables))
		for _, t := range msg.tables {
			items = append(items, tableItem{table: t})
		}
		m.tables.SetItems(items)
		m.tables.ResetFilter()
		m.tables.Select(0)
		return m, nil

	case tableLoadedMsg:
		m.loading = false
		m.errText = ""
		m.screen = screenPreview
		m.preview = msg.data
		m.previewTable = newPreviewTable(msg.data.Result, m.width, m.height)
		m.recordView(msg.data)
		return m, nil

	case exportDoneMsg:
		m.screen = screenPreview
		m.status = "Exported to " + msg.path
		m.recordExport(msg.path)
		return m, nil

	case errMsg:
		m.loading = false
		m.errText = humanize(msg.err)
		if m.screen == screenExport {
			m.screen = screenPreview
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	return m.updateActiveComponent(msg)
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While a list filter is being typed, keys belong to the list.
	if m.screen == screenRegions && m.regions.FilterState() == list.Filtering {
		return m.updateActiveComponent(msg)
	}
	if m.screen == screenTables && m.tables.FilterState() == list.Filtering {
		return m.updateActiveComponent(msg)
	}

	switch m.screen {
	case screenExport:
		switch msg.String() {
		case "esc":
			m.screen = screenPreview
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.exportInput.Value())
			if path == "" {
				return m, nil
			}
			return m, m.exportCmd(path)
		}
		var cmd tea.Cmd
		m.exportInput, cmd = m.exportInput.Update(msg)
		return m, cmd

	case screenPreview:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.screen = screenTables
			m.preview = nil
			m.status = ""
			return m, nil
		case "e":
			m.screen = screenExport
			m.exportInput.SetValue(m.defaultExportPath())
			m.exportInput.CursorEnd()
			return m, m.exportInput.Focus()
		}
		var cmd tea.Cmd
		m.previewTable, cmd = m.previewTable.Update(msg)
		return m, cmd

	case screenTables:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.screen = screenRegions
			return m, nil
		case "r":
			m.loading = true
			return m, tea.Batch(m.spin.Tick, m.loadTablesCmd(m.regionID))
		case "enter":
			item, ok := m.tables.SelectedItem().(tableItem)
			if !ok {
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(m.spin.Tick, m.loadTableCmd(m.regionID, item.table.ID))
		}

	case screenRegions:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, tea.Batch(m.spin.Tick, m.loadRegionsCmd())
		case "enter":
			item, ok := m.regions.SelectedItem().(regionItem)
			if !ok {
				return m, nil
			}
			m.regionID = item.region.ID
			m.regionName = item.region.Name
			m.loading = true
			return m, tea.Batch(m.spin.Tick, m.loadTablesCmd(m.regionID))
		}
	}

	return m.updateActiveComponent(msg)
}

func (m *Model) updateActiveComponent(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case screenRegions:
		m.regions, cmd = m.regions.Update(msg)
	case screenTables:
		m.tables, cmd = m.tables.Update(msg)
	case screenPreview:
		m.previewTable, cmd = m.previewTable.Update(msg)
	case screenExport:
		m.exportInput, cmd = m.exportInput.Update(msg)
	}
	return m, cmd
}

// View renders the active screen.
func (m *Model) View() string {
	var b strings.Builder

	switch m.screen {
	case screenRegions:
		b.WriteString(m.regions.View())
		b.WriteString("\n" + helpStyle.Render("enter: tables · /: filter · r: reload · q: quit"))

	case screenTables:
		header := titleStyle.Render(fmt.Sprintf("%s (%s)", m.regionName, m.regionID))
		b.WriteString(header + "\n")
		b.WriteString(m.tables.View())
		b.WriteString("\n" + helpStyle.Render("enter: preview · /: filter · esc: regions · q: quit"))

	case screenPreview:
		if m.preview != nil {
			b.WriteString(titleStyle.Render(m.preview.Title) + "\n")
			b.WriteString(m.previewTable.View() + "\n")
			if m.preview.Notes != "" {
				b.WriteString(notesStyle.Render(truncateLines(m.preview.Notes, 4)) + "\n")
			}
		}
		b.WriteString(helpStyle.Render("e: export · esc: back · q: quit"))

	case screenExport:
		b.WriteString(promptStyle.Render(m.exportInput.View()))
		b.WriteString("\n" + helpStyle.Render("enter: write file · esc: cancel"))
	}

	if m.loading {
		b.WriteString("\n" + statusStyle.Render(m.spin.View()+" loading..."))
	}
	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(m.status))
	}
	if m.errText != "" {
		b.WriteString("\n" + errorStyle.Render(m.errText))
	}
	return b.String()
}

// newPreviewTable builds the scrollable preview from a tabular result.
func newPreviewTable(result *tabular.Result, width, height int) table.Model {
	cols := make([]table.Column, 0, len(result.ColumnNames()))
	colWidth := 20
	if n := len(result.ColumnNames()); n > 0 && width > 0 {
		colWidth = max(10, (width-4)/n)
	}
	for _, name := range result.ColumnNames() {
		cols = append(cols, table.Column{Title: name, Width: colWidth})
	}

	rows := make([]table.Row, 0, result.RowCount())
	for i := 0; i < result.RowCount(); i++ {
		rows = append(rows, table.Row(result.Row(i)))
	}

	tableHeight := 15
	if height > 10 {
		tableHeight = height - 8
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(tableHeight),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	t.SetStyles(s)
	return t
}

func (m *Model) defaultExportPath() string {
	dir := m.downloadDir
	if dir == "" {
		dir = "."
	}
	name := "table.csv"
	if m.preview != nil && m.preview.ID != "" {
		name = m.preview.ID + ".csv"
	}
	return filepath.Join(dir, name)
}

func (m *Model) recordView(data *bps.TableData) {
	if m.history == nil || data == nil {
		return
	}
	err := m.history.TouchRecentTable(state.RecentTable{
		RegionID: m.regionID,
		TableID:  data.ID,
		Title:    data.Title,
	})
	if err != nil {
		m.logger.Warn("failed to record view history", "error", err)
	}
}

func (m *Model) recordExport(path string) {
	if m.history == nil || m.preview == nil {
		return
	}
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	_, err := m.history.RecordExport(state.ExportRecord{
		RegionID: m.regionID,
		TableID:  m.preview.ID,
		Path:     path,
		Format:   format,
		Rows:     m.preview.Result.RowCount(),
	})
	if err != nil {
		m.logger.Warn("failed to record export history", "error", err)
	}
}

func truncateLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n") + "\n..."
}
