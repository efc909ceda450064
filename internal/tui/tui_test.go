package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fakeyudi/focustrail/internal/aggregate"
	"github.com/fakeyudi/focustrail/internal/evaluator"
	"github.com/fakeyudi/focustrail/internal/report"
	"github.com/fakeyudi/focustrail/internal/session"
)

func sampleReport() *report.FocusReport {
	start := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	record := aggregate.NewFocusRecord(start, 15*time.Minute, "ship the store")

	editor := session.NewSession(session.Identity{AppName: "Editor", BundleID: "com.example.editor"},
		session.NewContext("store.go", "", "/work/store.go", "", start))
	editor.AppendContext(session.NewContext("store_test.go", "", "/work/store_test.go", "", start.Add(4*time.Minute)))
	editor.Close(start.Add(10 * time.Minute))

	video := session.NewSession(session.Identity{AppName: "Video", BundleID: "com.example.video"},
		session.NewContext("cats", "https://videos.example/cats", "", "", start.Add(10*time.Minute)))
	video.Close(start.Add(15 * time.Minute))

	record.Add(editor)
	record.Add(video)
	record.Finish(start.Add(15*time.Minute), "Mostly store work.")

	alerts := []evaluator.Alert{{Kind: evaluator.AlertOffGoal, SessionID: video.ID, AppName: "Video", WindowTitle: "cats", At: start.Add(15 * time.Minute)}}
	return report.Build(record, alerts, start.Add(15*time.Minute), "Ada")
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func press(m Model, key string) Model {
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestViewBeforeResize(t *testing.T) {
	if got := New(sampleReport(), "focus.md").View(); got != "Loading…" {
		t.Fatalf("unexpected view before resize: %q", got)
	}
}

func TestTabsRender(t *testing.T) {
	m := sized(New(sampleReport(), "/tmp/focus-20240506-101500.md"))
	view := m.View()
	for _, name := range tabNames {
		if !strings.Contains(view, name) {
			t.Errorf("tab %q missing from view", name)
		}
	}
	if !strings.Contains(view, "focus-20240506-101500.md") {
		t.Error("title should show the file's base name")
	}
	if !strings.Contains(view, "ship the store") {
		t.Error("summary tab should show the goal")
	}
}

func TestTabNavigation(t *testing.T) {
	m := sized(New(sampleReport(), "focus.md"))

	m = press(m, "tab")
	if m.activeTab != tabApps {
		t.Fatalf("tab: got %v, want apps", m.activeTab)
	}
	if !strings.Contains(m.View(), "66.7%") {
		t.Error("apps tab should show the Editor share")
	}

	m = press(m, "5")
	if m.activeTab != tabAlerts || !strings.Contains(m.View(), "OFF GOAL") {
		t.Error("alerts tab should list the off-goal alert")
	}

	m = press(m, "left")
	m = press(m, "h")
	if m.activeTab != tabTopics {
		t.Errorf("h should move left, got %v", m.activeTab)
	}
}

func TestSessionsExpandShowsSegments(t *testing.T) {
	m := sized(New(sampleReport(), "focus.md"))
	m = press(m, "4")

	if strings.Contains(m.renderSessions(), "/work/store_test.go") {
		t.Fatal("contexts should be hidden until expanded")
	}
	m = press(m, "enter")
	if !strings.Contains(m.renderSessions(), "/work/store_test.go") {
		t.Fatal("expanded session should list its contexts")
	}

	m = press(m, "down")
	if m.cursor != 1 {
		t.Fatalf("cursor: got %d, want 1", m.cursor)
	}
	m = press(m, "down")
	if m.cursor != 1 {
		t.Fatal("cursor should stop at the last session")
	}
}

func TestTimelineSortToggle(t *testing.T) {
	m := sized(New(sampleReport(), "focus.md"))
	m = press(m, "6")

	desc := m.renderTimeline()
	if strings.Index(desc, "ALERT") > strings.Index(desc, "store.go") {
		t.Error("newest first: the closing alert should precede the first segment")
	}

	m = press(m, "s")
	asc := m.renderTimeline()
	if !strings.Contains(asc, "oldest first") {
		t.Fatal("sort toggle should switch to oldest first")
	}
	if strings.Index(asc, "store.go") > strings.Index(asc, "ALERT") {
		t.Error("oldest first: the first segment should precede the alert")
	}
}

func TestShareBar(t *testing.T) {
	for _, tc := range []struct {
		share float64
		full  int
	}{{0, 0}, {0.5, 5}, {1, 10}, {1.7, 10}} {
		got := strings.Count(shareBar(tc.share, 10), "█")
		if got != tc.full {
			t.Errorf("shareBar(%v): got %d full cells, want %d", tc.share, got, tc.full)
		}
	}
}
