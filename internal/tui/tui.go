// Package tui provides a Bubble Tea TUI for browsing a session's files.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/residue/internal/report"
	"github.com/fakeyudi/residue/internal/session"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	sizeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

// categoryColors gives every category its own badge colour.
var categoryColors = map[session.Category]lipgloss.Color{
	session.CategoryApplication: "205",
	session.CategorySupport:     "214",
	session.CategoryCache:       "39",
	session.CategoryPreference:  "141",
	session.CategoryLog:         "178",
	session.CategoryConfig:      "82",
	session.CategoryTemporary:   "245",
	session.CategoryOther:       "250",
}

func badge(c session.Category) string {
	return lipgloss.NewStyle().
		Foreground(categoryColors[c]).
		Bold(true).
		Render(fmt.Sprintf("%-11s", strings.ToUpper(string(c))))
}

// ── Tab definitions ─────────────────

type tabID int

const (
	tabSummary tabID = iota
	tabFiles
	tabTimeline
	tabCount
)

var tabNames = [tabCount]string{"Summary", "Files", "Timeline"}

const timeLayout = "2006-01-02 15:04:05 MST"

// ── Model ────────────────────

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	report    *report.Report
	source    string
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	sortAsc   bool
	timeline  []timelineEntry
	// Files tab: cursor over category groups and the set of expanded ones
	groupCursor int
	expanded    map[int]bool
}

type timelineEntry struct {
	ts       time.Time
	category session.Category
	path     string
	size     int64
}

// New creates a TUI model for r. source names where the report came from and
// is shown in the title bar.
func New(r *report.Report, source string) Model {
	m := Model{
		report:   r,
		source:   source,
		expanded: make(map[int]bool),
	}
	// Small sessions start fully expanded.
	if r.Session.FileCount <= 50 {
		for i := range r.Groups {
			m.expanded[i] = true
		}
	}
	m.timeline = buildTimeline(r)
	return m
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "s":
			if m.activeTab == tabTimeline {
				m.sortAsc = !m.sortAsc
				m.rebuildTimelineViewport()
			}
		case "up", "k":
			if m.activeTab == tabFiles && m.groupCursor > 0 {
				m.groupCursor--
				m.rebuildFilesViewport()
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabFiles && m.groupCursor < len(m.report.Groups)-1 {
				m.groupCursor++
				m.rebuildFilesViewport()
				return m, nil
			}
		case "enter", " ":
			if m.activeTab == tabFiles && len(m.report.Groups) > 0 {
				if m.expanded[m.groupCursor] {
					delete(m.expanded, m.groupCursor)
				} else {
					m.expanded[m.groupCursor] = true
				}
				m.rebuildFilesViewport()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  residue  " + m.report.Session.Name + "  " + dimSource(m.source))

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-3 jump  q quit"
	switch m.activeTab {
	case tabTimeline:
		dir := "newest first"
		if m.sortAsc {
			dir = "oldest first"
		}
		hint += "  s sort (" + dir + ")"
	case tabFiles:
		hint += "  enter expand/collapse"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(
		hint + strings.Repeat(" ", pad) + pct,
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

func dimSource(s string) string {
	if s == "" {
		return ""
	}
	return "(" + s + ")"
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) rebuildTimelineViewport() {
	m.viewports[tabTimeline].SetContent(m.renderTab(tabTimeline))
	m.viewports[tabTimeline].GotoTop()
}

func (m *Model) rebuildFilesViewport() {
	m.viewports[tabFiles].SetContent(m.renderTab(tabFiles))
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabFiles:
		return m.renderFiles()
	case tabTimeline:
		return m.renderTimeline()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func (m *Model) renderSummary() string {
	s := m.report.Session
	var sb strings.Builder
	sb.WriteString(heading("Session Summary"))

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", label)) + "  " + value + "\n")
	}
	row("Name:", s.Name)
	row("ID:", s.ID)
	if s.Active {
		row("Status:", activeStyle.Render("monitoring"))
	} else {
		row("Status:", "stopped")
	}
	row("Started:", s.StartTime.Format(timeLayout))
	if s.EndTime != nil {
		row("Ended:", s.EndTime.Format(timeLayout))
	}
	row("Duration:", s.Duration)
	row("Files:", fmt.Sprintf("%d", s.FileCount))
	row("Total Size:", s.FormattedSize)

	sb.WriteString("\n")
	sb.WriteString(heading("By Category"))
	if len(m.report.Groups) == 0 {
		sb.WriteString(dimStyle.Render("  (no files recorded)") + "\n")
		return sb.String()
	}
	for _, g := range m.report.Groups {
		row(g.Title+":", fmt.Sprintf("%d  %s", len(g.Files), sizeStyle.Render(session.FormatBytes(g.Size))))
	}
	return sb.String()
}

func (m *Model) renderFiles() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Files (%d)", m.report.Session.FileCount)))
	if len(m.report.Groups) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for i, g := range m.report.Groups {
		toggle := "▶"
		if m.expanded[i] {
			toggle = "▼"
		}
		row := fmt.Sprintf("  %s %s  %d files  %s", toggle, g.Title, len(g.Files), session.FormatBytes(g.Size))
		if i == m.groupCursor {
			row = selectedRowStyle.Width(m.width - 2).Render(row)
		} else {
			row = sectionHeader.Render(row)
		}
		sb.WriteString(row + "\n")

		if m.expanded[i] {
			for _, f := range g.Files {
				sb.WriteString(fmt.Sprintf("      %s  %s\n", sizeStyle.Render(fmt.Sprintf("%9s", session.FormatBytes(f.Size))), f.Path))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderTimeline() string {
	var sb strings.Builder

	dir := "newest first"
	if m.sortAsc {
		dir = "oldest first"
	}
	sb.WriteString(heading(fmt.Sprintf("Timeline (%s)", dir)))

	entries := make([]timelineEntry, len(m.timeline))
	copy(entries, m.timeline)
	if m.sortAsc {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].ts.Before(entries[j].ts) })
	} else {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].ts.After(entries[j].ts) })
	}

	if len(entries) == 0 {
		sb.WriteString(dimStyle.Render("  (no files recorded in this session)") + "\n")
		return sb.String()
	}

	for _, e := range entries {
		ts := timeStyle.Render(e.ts.Format("15:04:05"))
		sb.WriteString(ts + "  " + badge(e.category) + "  " + e.path + "\n")
	}
	return sb.String()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func buildTimeline(r *report.Report) []timelineEntry {
	var entries []timelineEntry
	for _, g := range r.Groups {
		for _, f := range g.Files {
			if f.CreatedAt.IsZero() {
				continue
			}
			entries = append(entries, timelineEntry{ts: f.CreatedAt, category: g.Category, path: f.Path, size: f.Size})
		}
	}
	return entries
}

// Run starts the TUI for r.
func Run(r *report.Report, source string) error {
	p := tea.NewProgram(New(r, source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
