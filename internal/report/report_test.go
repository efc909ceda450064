package report_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fakeyudi/focustrail/internal/aggregate"
	"github.com/fakeyudi/focustrail/internal/evaluator"
	"github.com/fakeyudi/focustrail/internal/report"
	"github.com/fakeyudi/focustrail/internal/session"
)

// generateTime produces an arbitrary time.Time value truncated to second
// precision.
func generateTime(t *rapid.T, label string) time.Time {
	sec := rapid.Int64Range(1_000_000_000, 1_700_000_000).Draw(t, label+"_unix_sec")
	return time.Unix(sec, 0).UTC()
}

// generateReport produces a report with at least one entry in every
// collection field.
func generateReport(t *rapid.T) *report.FocusReport {
	start := generateTime(t, "start")
	record := aggregate.NewFocusRecord(start, time.Duration(rapid.IntRange(1, 120).Draw(t, "target_min"))*time.Minute,
		rapid.StringN(0, 40, -1).Draw(t, "goal"))

	at := start
	n := rapid.IntRange(1, 6).Draw(t, "sessions")
	for i := 0; i < n; i++ {
		app := rapid.SampledFrom([]string{"Editor", "Browser", "Terminal", "Chat"}).Draw(t, "app")
		c := session.NewContext(
			rapid.StringN(0, 40, -1).Draw(t, "title"),
			rapid.SampledFrom([]string{"", "https://go.dev/doc"}).Draw(t, "url"),
			rapid.SampledFrom([]string{"", "/work/main.go"}).Draw(t, "path"),
			rapid.StringN(0, 60, -1).Draw(t, "snippet"),
			at,
		)
		s := session.NewSession(session.Identity{AppName: app, BundleID: "com.example." + strings.ToLower(app)}, c)
		at = at.Add(time.Duration(rapid.IntRange(1, 900).Draw(t, "secs")) * time.Second)
		s.Close(at)
		record.Add(s)
	}
	record.Finish(at, rapid.StringN(0, 80, -1).Draw(t, "summary"))

	alerts := []evaluator.Alert{{
		Kind:        rapid.SampledFrom([]evaluator.AlertKind{evaluator.AlertOffGoal, evaluator.AlertInconsistent}).Draw(t, "kind"),
		SessionID:   record.Sessions[0].ID,
		AppName:     record.Sessions[0].AppName,
		WindowTitle: record.Sessions[0].Contexts[0].WindowTitle,
		At:          at,
	}}
	return report.Build(record, alerts, at, rapid.StringN(0, 20, -1).Draw(t, "author"))
}

// Feature: focustrail, Property 11: Report completeness
func TestReportCompleteness(t *testing.T) {
	md := &report.MarkdownRenderer{}
	js := &report.JSONRenderer{}

	rapid.Check(t, func(t *rapid.T) {
		r := generateReport(t)

		mdBytes, err := md.Render(r)
		if err != nil {
			t.Fatalf("MarkdownRenderer.Render: %v", err)
		}
		for _, section := range []string{"## Summary", "## Applications", "## Topics", "## Alerts", "## Sessions"} {
			if !strings.Contains(string(mdBytes), section) {
				t.Errorf("Markdown output missing section %q", section)
			}
		}

		jsonBytes, err := js.Render(r)
		if err != nil {
			t.Fatalf("JSONRenderer.Render: %v", err)
		}
		for _, key := range []string{`"block"`, `"apps"`, `"topics"`, `"sessions"`, `"alerts"`, `"summary"`} {
			if !strings.Contains(string(jsonBytes), key) {
				t.Errorf("JSON output missing key %q", key)
			}
		}
	})
}

// Feature: focustrail, Property 12: report round-trip through both formats
func TestReportRoundTrip(t *testing.T) {
	pairs := []struct {
		name     string
		renderer report.Renderer
		parser   report.Parser
	}{
		{"json", &report.JSONRenderer{}, &report.JSONParser{}},
		{"markdown", &report.MarkdownRenderer{}, &report.MarkdownParser{}},
	}
	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				original := generateReport(t)
				data, err := p.renderer.Render(original)
				if err != nil {
					t.Fatalf("Render: %v", err)
				}
				parsed, err := p.parser.Parse(data)
				if err != nil {
					t.Fatalf("Parse: %v", err)
				}
				if diff := cmp.Diff(original, parsed, cmpopts.EquateEmpty()); diff != "" {
					t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
				}
			})
		})
	}
}

func TestBuildFromRecord(t *testing.T) {
	start := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	record := aggregate.NewFocusRecord(start, 15*time.Minute, "ship the store")
	a := session.NewSession(session.Identity{AppName: "App1", BundleID: "com.example.app1"}, session.NewContext("store.go", "", "", "", start))
	a.Close(start.Add(600 * time.Second))
	b := session.NewSession(session.Identity{AppName: "App2", BundleID: "com.example.app2"}, session.NewContext("chat", "", "", "", start.Add(600*time.Second)))
	b.Close(start.Add(900 * time.Second))
	record.Add(a)
	record.Add(b)
	record.Finish(start.Add(900*time.Second), "Worked on the store.")

	r := report.Build(record, nil, time.Time{}, "Ada")

	assert.Equal(t, "15m0s", r.Block.Duration)
	assert.Equal(t, "15m0s", r.Block.Target)
	assert.Equal(t, "ship the store", r.Block.Goal)
	assert.Equal(t, "Worked on the store.", r.Summary)
	require.Len(t, r.Apps, 2)
	assert.Equal(t, "App1", r.Apps[0].AppName)
	assert.InDelta(t, 0.667, r.Apps[0].Share, 0.001)
	assert.NotNil(t, r.Alerts)
	assert.Len(t, r.Sessions, 2)

	md, err := (&report.MarkdownRenderer{}).Render(r)
	require.NoError(t, err)
	assert.Contains(t, string(md), "| App1 | 10m0s | 66.7% |")
	assert.Contains(t, string(md), "_No alerts._")
	assert.Contains(t, string(md), "- Author: Ada")
}

func TestMarkdownEscapesTableCells(t *testing.T) {
	start := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	record := aggregate.NewFocusRecord(start, time.Minute, "")
	s := session.NewSession(session.Identity{AppName: "A|B"}, session.NewContext("x | y\nz", "", "", "", start))
	s.Close(start.Add(time.Minute))
	record.Add(s)

	md, err := (&report.MarkdownRenderer{}).Render(report.Build(record, nil, start.Add(time.Minute), ""))
	require.NoError(t, err)
	assert.Contains(t, string(md), `| A\|B |`)
	assert.Contains(t, string(md), `x \| y z`)
}

func TestRendererFor(t *testing.T) {
	for format, ext := range map[string]string{"": ".md", "markdown": ".md", "JSON": ".json"} {
		r, gotExt, err := report.RendererFor(format)
		require.NoError(t, err, format)
		assert.NotNil(t, r)
		assert.Equal(t, ext, gotExt, format)
	}
	_, _, err := report.RendererFor("pdf")
	assert.ErrorContains(t, err, "unknown report format")
}

func TestParserForAndFilename(t *testing.T) {
	assert.IsType(t, &report.JSONParser{}, report.ParserFor("focus.JSON"))
	assert.IsType(t, &report.MarkdownParser{}, report.ParserFor("focus.md"))
	end := time.Date(2024, 5, 6, 10, 15, 0, 0, time.UTC)
	assert.Equal(t, "focus-20240506-101500.md", report.Filename(end, ".md"))
	assert.Equal(t, fmt.Sprintf("focus-%s.json", end.Format("20060102-150405")), report.Filename(end, ".json"))
}
