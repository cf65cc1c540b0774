package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/residue/internal/report"
	"github.com/fakeyudi/residue/internal/session"
)

func sampleReport() *report.Report {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := session.NewSession("install foo", base)
	s.Files = []session.MonitoredFile{
		session.NewMonitoredFile("/Applications/Foo.app", 4096, session.CategoryApplication, base.Add(time.Second)),
		session.NewMonitoredFile("/home/u/.cache/foo/blob", 100, session.CategoryCache, base.Add(3*time.Second)),
		session.NewMonitoredFile("/home/u/.cache/foo/idx", 20, session.CategoryCache, base.Add(2*time.Second)),
	}
	return report.Build(s, base.Add(time.Minute))
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func key(t *testing.T, m Model, k string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestViewBeforeSize(t *testing.T) {
	m := New(sampleReport(), "")
	require.Equal(t, "Loading…", m.View())
}

func TestSummaryTab(t *testing.T) {
	m := sized(t, New(sampleReport(), "sessions.json"))
	out := m.View()
	require.Contains(t, out, "install foo")
	require.Contains(t, out, "Session Summary")
	require.Contains(t, out, "Applications")
}

func TestTabNavigation(t *testing.T) {
	m := sized(t, New(sampleReport(), ""))
	m = key(t, m, "tab")
	require.Equal(t, tabFiles, m.activeTab)
	m = key(t, m, "3")
	require.Equal(t, tabTimeline, m.activeTab)
	m = key(t, m, "l")
	require.Equal(t, tabSummary, m.activeTab)
	m = key(t, m, "h")
	require.Equal(t, tabTimeline, m.activeTab)
}

func TestFilesCursorAndToggle(t *testing.T) {
	m := sized(t, New(sampleReport(), ""))
	m = key(t, m, "2")
	require.True(t, m.expanded[0])
	require.Contains(t, m.renderFiles(), "/Applications/Foo.app")

	m = key(t, m, "enter")
	require.False(t, m.expanded[0])
	require.NotContains(t, m.renderFiles(), "/Applications/Foo.app")

	m = key(t, m, "down")
	require.Equal(t, 1, m.groupCursor)
	m = key(t, m, "down")
	require.Equal(t, 1, m.groupCursor, "cursor stops at the last group")
	m = key(t, m, "up")
	require.Equal(t, 0, m.groupCursor)
}

func TestTimelineSortToggle(t *testing.T) {
	m := sized(t, New(sampleReport(), ""))
	m = key(t, m, "3")

	out := m.renderTimeline()
	require.Less(t, strings.Index(out, "blob"), strings.Index(out, "idx"), "newest first")

	m = key(t, m, "s")
	require.True(t, m.sortAsc)
	out = m.renderTimeline()
	require.Less(t, strings.Index(out, "Foo.app"), strings.Index(out, "idx"))
	require.Less(t, strings.Index(out, "idx"), strings.Index(out, "blob"))
}

func TestEmptyReport(t *testing.T) {
	r := report.Build(session.NewSession("empty", time.Now()), time.Now())
	m := sized(t, New(r, ""))
	require.Contains(t, m.renderFiles(), "(none)")
	require.Contains(t, m.renderTimeline(), "no files recorded")
	m = key(t, m, "2")
	m = key(t, m, "enter")
	require.Empty(t, m.expanded)
}
