package session_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/fakeyudi/focustrail/internal/session"
)

// generateTime produces a timestamp truncated to the millisecond.
func generateTime(t *rapid.T, label string) time.Time {
	ms := rapid.Int64Range(1_000_000_000_000, 1_800_000_000_000).Draw(t, label+"_unix_ms")
	return time.UnixMilli(ms).UTC()
}

func generateSession(t *rapid.T) *session.Session {
	start := generateTime(t, "start")
	s := &session.Session{
		ID:        rapid.StringMatching(`[a-f0-9-]{8,36}`).Draw(t, "id"),
		AppName:   rapid.StringN(1, 30, -1).Draw(t, "app"),
		BundleID:  rapid.StringMatching(`[a-z.]{0,30}`).Draw(t, "bundle"),
		StartDate: start,
	}
	if rapid.Bool().Draw(t, "closed") {
		end := start.Add(time.Duration(rapid.Int64Range(0, 100_000).Draw(t, "len_ms")) * time.Millisecond)
		s.EndDate = &end
	}
	n := rapid.IntRange(1, 5).Draw(t, "contexts")
	for i := 0; i < n; i++ {
		s.Contexts = append(s.Contexts, session.Context{
			WindowTitle:    rapid.StringN(0, 40, -1).Draw(t, "title"),
			URL:            rapid.SampledFrom([]string{"", "https://example.com/a?b=c"}).Draw(t, "url"),
			DocumentPath:   rapid.SampledFrom([]string{"", "/home/me/notes.md"}).Draw(t, "path"),
			ContentSnippet: rapid.StringN(0, 40, -1).Draw(t, "snippet"),
			CapturedAt:     generateTime(t, "captured"),
		})
	}
	return s
}

// Feature: focustrail, Property 3: session line round-trip
func TestLineRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		original := generateSession(t)

		line, err := session.MarshalLine(original)
		if err != nil {
			t.Fatalf("MarshalLine: %v", err)
		}
		if strings.Contains(string(line), "\n") {
			t.Fatalf("encoded line contains a newline: %q", line)
		}

		decoded, err := session.UnmarshalLine(line)
		if err != nil {
			t.Fatalf("UnmarshalLine: %v", err)
		}
		if diff := cmp.Diff(original, decoded); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestUnmarshalLegacyContext(t *testing.T) {
	line := `{"id":"a1","appName":"Safari","bundleIdentifier":"com.apple.Safari",` +
		`"startDate":"2024-03-04T09:00:00Z","endDate":"2024-03-04T09:05:00Z",` +
		`"context":{"windowTitle":"Go","url":"https://go.dev","capturedAt":"2024-03-04T09:00:00Z"}}`

	s, err := session.UnmarshalLine([]byte(line))
	if err != nil {
		t.Fatalf("UnmarshalLine: %v", err)
	}
	if len(s.Contexts) != 1 {
		t.Fatalf("want 1 context, got %d", len(s.Contexts))
	}
	if s.Contexts[0].URL != "https://go.dev" {
		t.Errorf("URL: got %q", s.Contexts[0].URL)
	}
	if got := s.Duration(time.Now()); got != 5*time.Minute {
		t.Errorf("duration: got %v, want 5m", got)
	}
}

func TestUnmarshalContextsWinOverLegacy(t *testing.T) {
	line := `{"id":"a1","appName":"Safari","startDate":"2024-03-04T09:00:00Z",` +
		`"contexts":[{"windowTitle":"new","capturedAt":"2024-03-04T09:00:00Z"},{"windowTitle":"newer","capturedAt":"2024-03-04T09:01:00Z"}],` +
		`"context":{"windowTitle":"old","capturedAt":"2024-03-04T09:00:00Z"}}`

	s, err := session.UnmarshalLine([]byte(line))
	if err != nil {
		t.Fatalf("UnmarshalLine: %v", err)
	}
	if len(s.Contexts) != 2 || s.Contexts[0].WindowTitle != "new" {
		t.Errorf("contexts: got %+v", s.Contexts)
	}
}

func TestUnmarshalWithoutContexts(t *testing.T) {
	line := `{"id":"a1","appName":"Safari","startDate":"2024-03-04T09:00:00Z","contexts":[]}`
	s, err := session.UnmarshalLine([]byte(line))
	if err != nil {
		t.Fatalf("UnmarshalLine: %v", err)
	}
	if len(s.Contexts) != 0 {
		t.Errorf("want zero contexts, got %d", len(s.Contexts))
	}
	if _, ok := s.LatestContext(); ok {
		t.Error("LatestContext should report false for a degenerate session")
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	for _, line := range []string{"", "{", `{"appName":"x"}`, "not json"} {
		if _, err := session.UnmarshalLine([]byte(line)); err == nil {
			t.Errorf("UnmarshalLine(%q): expected error", line)
		}
	}
}
