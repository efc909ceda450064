// Package tui provides a Bubble Tea TUI for viewing focus reports.
package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/focustrail/internal/aggregate"
	"github.com/fakeyudi/focustrail/internal/report"
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

	bulletStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	barStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))

	kindSegmentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	kindAlertStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	// Selected row in the Sessions list
	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabSummary tabID = iota
	tabApps
	tabTopics
	tabSessions
	tabAlerts
	tabTimeline
	tabCount
)

var tabNames = [tabCount]string{
	"Summary", "Apps", "Topics", "Sessions", "Alerts", "Timeline",
}

// ── Timeline event ───────────────────

type eventKind string

const (
	kindSegment eventKind = "FOCUS"
	kindAlert   eventKind = "ALERT"
)

type timelineEvent struct {
	ts   time.Time
	kind eventKind
	text string
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	report    *report.FocusReport
	filename  string
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	sortAsc   bool
	timeline  []timelineEvent
	// Sessions tab: cursor position and expanded set
	cursor   int
	expanded map[int]bool
}

// New creates a new TUI model for the given report and source filename.
func New(r *report.FocusReport, filename string) Model {
	return Model{
		report:   r,
		filename: filepath.Base(filename),
		expanded: make(map[int]bool),
		timeline: buildTimeline(r),
	}
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
		case "1", "2", "3", "4", "5", "6":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "s":
			if m.activeTab == tabTimeline {
				m.sortAsc = !m.sortAsc
				m.rebuild(tabTimeline)
				m.viewports[tabTimeline].GotoTop()
			}
		case "up", "k":
			if m.activeTab == tabSessions && m.cursor > 0 {
				m.cursor--
				m.rebuild(tabSessions)
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabSessions && m.cursor < len(m.report.Sessions)-1 {
				m.cursor++
				m.rebuild(tabSessions)
				return m, nil
			}
		case "enter", " ":
			if m.activeTab == tabSessions && len(m.report.Sessions) > 0 {
				if m.expanded[m.cursor] {
					delete(m.expanded, m.cursor)
				} else {
					m.expanded[m.cursor] = true
				}
				m.rebuild(tabSessions)
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

	title := titleStyle.Width(m.width).Render("  focustrail  " + m.filename)

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

	hint := "  ←/→ tab  ↑/↓ scroll  1-6 jump  q quit"
	switch m.activeTab {
	case tabTimeline:
		dir := "newest first"
		if m.sortAsc {
			dir = "oldest first"
		}
		hint += "  s sort (" + dir + ")"
	case tabSessions:
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

func (m *Model) rebuild(t tabID) {
	m.viewports[t].SetContent(m.renderTab(t))
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabApps:
		return m.renderApps()
	case tabTopics:
		return m.renderTopics()
	case tabSessions:
		return m.renderSessions()
	case tabAlerts:
		return m.renderAlerts()
	case tabTimeline:
		return m.renderTimeline()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func bullet(text string) string {
	return bulletStyle.Render("  •") + "  " + text + "\n"
}

func (m *Model) renderSummary() string {
	b := m.report.Block
	var sb strings.Builder
	sb.WriteString(heading("Focus Block"))

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", label)) + "  " + value + "\n")
	}
	if b.Goal != "" {
		row("Goal:", b.Goal)
	}
	row("Started:", b.StartTime.Format("2006-01-02 15:04:05 MST"))
	row("Ended:", b.EndTime.Format("2006-01-02 15:04:05 MST"))
	row("Duration:", b.Duration+" (target "+b.Target+")")
	if b.Author != "" {
		row("Author:", b.Author)
	}
	row("Sessions:", fmt.Sprintf("%d", len(m.report.Sessions)))
	row("Alerts:", fmt.Sprintf("%d", len(m.report.Alerts)))

	sb.WriteString(heading("Summary"))
	if strings.TrimSpace(m.report.Summary) == "" {
		sb.WriteString(dimStyle.Render("  (no summary)") + "\n")
	} else {
		width := m.width - 4
		if width < 20 {
			width = 20
		}
		sb.WriteString(lipgloss.NewStyle().Width(width).PaddingLeft(2).Render(m.report.Summary) + "\n")
	}
	return sb.String()
}

func (m *Model) renderApps() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Applications (%d)", len(m.report.Apps))))
	if len(m.report.Apps) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for _, a := range m.report.Apps {
		name := labelStyle.Render(fmt.Sprintf("  %-20s", truncate(a.AppName, 20)))
		sb.WriteString(fmt.Sprintf("%s  %9s  %5.1f%%  %s\n",
			name, a.Total.Round(time.Second), a.Share*100, shareBar(a.Share, 30)))
	}
	return sb.String()
}

func (m *Model) renderTopics() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Top Topics (%d)", len(m.report.Topics))))
	if len(m.report.Topics) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for _, tp := range m.report.Topics {
		sb.WriteString(bullet(fmt.Sprintf("%s  %s", labelStyle.Render(tp.AppName), orUntitled(tp.WindowTitle))))
		detail := fmt.Sprintf("%s, %.1f%%", tp.Total.Round(time.Second), tp.Share*100)
		if tp.URL != "" {
			detail += "  " + tp.URL
		}
		if tp.DocumentPath != "" {
			detail += "  " + tp.DocumentPath
		}
		sb.WriteString(dimStyle.Render("      "+detail) + "\n\n")
	}
	return sb.String()
}

func (m *Model) renderSessions() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Sessions (%d)", len(m.report.Sessions))))
	if len(m.report.Sessions) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	end := m.report.Block.EndTime
	for i := range m.report.Sessions {
		s := &m.report.Sessions[i]
		toggle := "  ▶ "
		if m.expanded[i] {
			toggle = "  ▼ "
		}
		title := ""
		if c, ok := s.LatestContext(); ok {
			title = c.WindowTitle
		}
		row := fmt.Sprintf("%s%s  %8s  %s  %s", dimStyle.Render(toggle),
			timeStyle.Render(s.StartDate.Format("15:04:05")),
			s.Duration(end).Round(time.Second), s.AppName, dimStyle.Render(orUntitled(title)))
		if i == m.cursor {
			row = selectedRowStyle.Width(m.width - 2).Render(row)
		}
		sb.WriteString(row + "\n")

		if m.expanded[i] {
			for _, seg := range aggregate.Segments(s, end) {
				line := fmt.Sprintf("        %s  %8s  %s",
					seg.Context.CapturedAt.Format("15:04:05"), seg.Duration.Round(time.Second), orUntitled(seg.Context.WindowTitle))
				sb.WriteString(dimStyle.Render(line) + "\n")
				if seg.Context.URL != "" {
					sb.WriteString(dimStyle.Render("                            "+seg.Context.URL) + "\n")
				}
				if seg.Context.DocumentPath != "" {
					sb.WriteString(dimStyle.Render("                            "+seg.Context.DocumentPath) + "\n")
				}
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderAlerts() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Alerts (%d)", len(m.report.Alerts))))
	if len(m.report.Alerts) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for _, a := range m.report.Alerts {
		ts := timeStyle.Render(a.At.Format("15:04:05"))
		badge := kindAlertStyle.Render("[" + alertLabel(string(a.Kind)) + "]")
		sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n\n", ts, badge, a.AppName, dimStyle.Render(orUntitled(a.WindowTitle))))
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

	events := make([]timelineEvent, len(m.timeline))
	copy(events, m.timeline)
	if m.sortAsc {
		sort.SliceStable(events, func(i, j int) bool { return events[i].ts.Before(events[j].ts) })
	} else {
		sort.SliceStable(events, func(i, j int) bool { return events[i].ts.After(events[j].ts) })
	}

	if len(events) == 0 {
		sb.WriteString(dimStyle.Render("  (no activity in this block)") + "\n")
		return sb.String()
	}

	for _, ev := range events {
		ts := timeStyle.Render(ev.ts.Format("15:04:05"))
		var badge string
		switch ev.kind {
		case kindSegment:
			badge = kindSegmentStyle.Render(fmt.Sprintf("  %-6s", string(ev.kind)))
		case kindAlert:
			badge = kindAlertStyle.Render(fmt.Sprintf("  %-6s", string(ev.kind)))
		}
		sb.WriteString(ts + badge + "  " + ev.text + "\n\n")
	}
	return sb.String()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func buildTimeline(r *report.FocusReport) []timelineEvent {
	var events []timelineEvent
	for i := range r.Sessions {
		for _, seg := range aggregate.Segments(&r.Sessions[i], r.Block.EndTime) {
			events = append(events, timelineEvent{
				ts:   seg.Context.CapturedAt,
				kind: kindSegment,
				text: fmt.Sprintf("%s — %s (%s)", seg.AppName, orUntitled(seg.Context.WindowTitle), seg.Duration.Round(time.Second)),
			})
		}
	}
	for _, a := range r.Alerts {
		events = append(events, timelineEvent{
			ts:   a.At,
			kind: kindAlert,
			text: alertLabel(string(a.Kind)) + ": " + a.AppName,
		})
	}
	return events
}

// shareBar draws share (0..1) as a bar of at most width cells.
func shareBar(share float64, width int) string {
	n := int(share*float64(width) + 0.5)
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	return barStyle.Render(strings.Repeat("█", n)) + dimStyle.Render(strings.Repeat("░", width-n))
}

func alertLabel(kind string) string {
	switch kind {
	case "off_goal":
		return "OFF GOAL"
	case "inconsistent":
		return "OFF TOPIC"
	}
	return strings.ToUpper(kind)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orUntitled(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

// Run starts the TUI for the given report.
func Run(r *report.FocusReport, filename string) error {
	p := tea.NewProgram(New(r, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
