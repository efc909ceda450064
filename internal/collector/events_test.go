package collector

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fakeyudi/focustrail/internal/tracker"
)

func TestReadEvents(t *testing.T) {
	input := strings.Join([]string{
		`{"event":"activate","app":"Firefox","bundleId":"org.mozilla.firefox","title":"Go docs","url":"https://go.dev","at":"2024-05-06T09:00:00Z"}`,
		`not json`,
		``,
		`{"event":"activate","app":"Editor","bundleId":"com.example.editor","at":"2024-05-06T09:01:00Z"}`,
		`{"event":"explode","app":"Editor"}`,
		`{"event":"terminate","at":"2024-05-06T09:02:00Z"}`,
		`{"event":"disable","at":"2024-05-06T09:03:00Z"}`,
	}, "\n")

	var got []tracker.Event
	skipped, err := ReadEvents(context.Background(), strings.NewReader(input), func(ev tracker.Event) {
		got = append(got, ev)
	})
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if skipped != 3 {
		t.Errorf("skipped: got %d, want 3", skipped)
	}
	if len(got) != 3 {
		t.Fatalf("events: got %d, want 3", len(got))
	}

	first := got[0]
	if first.Kind != tracker.EventActivate || first.App.BundleID != "org.mozilla.firefox" {
		t.Errorf("first event: %+v", first)
	}
	if first.Context == nil || first.Context.URL != "https://go.dev" || !first.Context.CapturedAt.Equal(time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("first context: %+v", first.Context)
	}
	if got[1].Context != nil {
		t.Errorf("activation without context fields should leave Context nil")
	}
	if got[2].Kind != tracker.EventDisable {
		t.Errorf("third event kind: %v", got[2].Kind)
	}
}

func TestReadEventsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := 0
	_, err := ReadEvents(ctx, strings.NewReader(`{"event":"enable"}`+"\n"), func(tracker.Event) { n++ })
	if err != nil || n != 0 {
		t.Fatalf("cancelled ReadEvents: n=%d err=%v", n, err)
	}
}

func TestReadEventsReturnsOnDeadlineWithQuietInput(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() {
		pw.Close()
		pr.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := ReadEvents(ctx, pr, func(tracker.Event) {})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ReadEvents: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadEvents kept waiting on input after the deadline")
	}
}

func TestReadEventsDeliversBeforeDeadline(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pr.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan tracker.Event, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ReadEvents(ctx, pr, func(ev tracker.Event) { got <- ev })
	}()

	if _, err := io.WriteString(pw, `{"event":"enable"}`+"\n"); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-got:
		if ev.Kind != tracker.EventEnable {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event written to the pipe was not delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ReadEvents did not return after cancel")
	}
	pw.Close()
}

func TestFollowLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.jsonl")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- FollowLog(ctx, path, func() { fired <- struct{}{} })
	}()

	// Give the watcher time to register, then write until it notices.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	_ = os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644)
	for {
		select {
		case <-fired:
			cancel()
			if err := <-errc; err != nil {
				t.Fatalf("FollowLog: %v", err)
			}
			return
		case <-ticker.C:
			f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				t.Fatal(err)
			}
			_, _ = f.WriteString("{}\n")
			f.Close()
		case <-deadline:
			t.Fatal("FollowLog did not report a write within 5s")
		}
	}
}
