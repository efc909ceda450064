package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/focustrail/internal/session"
)

// executeCommand runs a cobra command with the given args and captures combined output.
func executeCommand(root *cobra.Command, stdin string, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// testEnv points every focustrail path at a temp dir and clears flag state
// left over from earlier commands. It returns the temp dir.
func testEnv(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("FOCUSTRAIL_API_KEY", "")
	t.Setenv("FOCUSTRAIL_PROBE_COMMAND", "")
	t.Setenv("FOCUSTRAIL_OUTPUT_DIR", filepath.Join(tmp, "reports"))
	t.Setenv("FOCUSTRAIL_LOG_LEVEL", "error")
	t.Chdir(tmp)

	trackStdinEvents, trackInterval, trackMetricsAddr = false, 0, ""
	focusGoal, focusDuration, focusFormat, focusStdinEvents = "", 0, "", false
	summarizeSince = time.Hour
	todayFollow, plainOutput = false, false
	return tmp
}

// recentStart returns a time a few minutes ago, skipping the test when that
// would fall on the previous day.
func recentStart(t *testing.T) time.Time {
	t.Helper()
	start := time.Now().Add(-3 * time.Minute).Truncate(time.Second)
	if start.Before(session.StartOfDay(time.Now())) {
		t.Skip("too close to midnight for a same-day session")
	}
	return start
}

func eventLine(kind, app, title string, at time.Time) string {
	return fmt.Sprintf(`{"event":%q,"app":%q,"bundleId":"com.example.%s","title":%q,"at":%q}`+"\n",
		kind, app, strings.ToLower(app), title, at.Format(time.RFC3339))
}

// trackSample records an Editor minute followed by a Browser minute.
func trackSample(t *testing.T, start time.Time) {
	t.Helper()
	events := eventLine("activate", "Editor", "main.go", start) +
		"not json\n" +
		eventLine("activate", "Browser", "Go docs", start.Add(time.Minute)) +
		eventLine("terminate", "Browser", "", start.Add(2*time.Minute))

	out, err := executeCommand(rootCmd, events, "track", "--stdin-events")
	if err != nil {
		t.Fatalf("track: %v\n%s", err, out)
	}
}

func TestTrackStdinEventsWritesLog(t *testing.T) {
	tmp := testEnv(t)
	start := recentStart(t)
	trackSample(t, start)

	store := session.NewStore(afero.NewOsFs(), filepath.Join(tmp, "data", "focustrail", "sessions.jsonl"))
	sessions, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 logged sessions, got %d", len(sessions))
	}
	if sessions[0].AppName != "Editor" || sessions[1].AppName != "Browser" {
		t.Errorf("unexpected apps: %s, %s", sessions[0].AppName, sessions[1].AppName)
	}
	if !sessions[0].EndDate.Equal(start.Add(time.Minute)) {
		t.Errorf("Editor should close at the Browser activation, got %v", sessions[0].EndDate)
	}
	if got := sessions[1].Duration(time.Now()); got != time.Minute {
		t.Errorf("Browser duration: got %s, want 1m", got)
	}
}

func TestTrackRequiresProbeCommand(t *testing.T) {
	testEnv(t)
	_, err := executeCommand(rootCmd, "", "track")
	if err == nil || !strings.Contains(err.Error(), "no probe command configured") {
		t.Fatalf("expected missing probe command error, got %v", err)
	}
}

func TestStatusAndToday(t *testing.T) {
	testEnv(t)
	start := recentStart(t)

	out, err := executeCommand(rootCmd, "", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "no sessions recorded today") {
		t.Errorf("expected empty status, got:\n%s", out)
	}

	trackSample(t, start)

	out, err = executeCommand(rootCmd, "", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Focused today: 2m0s", "Sessions: 2", "Latest: Browser: Go docs", "Duration: 1m0s"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}

	out, err = executeCommand(rootCmd, "", "today")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	for _, want := range []string{"Today: 2m0s focused across 2 sessions", "Editor: main.go", "Latest:"} {
		if !strings.Contains(out, want) {
			t.Errorf("today output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out[strings.Index(out, "Latest:"):], "Browser") > strings.Index(out[strings.Index(out, "Latest:"):], "Editor") {
		t.Errorf("highlights should list the newest session first:\n%s", out)
	}
}

func TestSummarize(t *testing.T) {
	testEnv(t)

	out, err := executeCommand(rootCmd, "", "summarize", "--since", "1h")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !strings.Contains(out, "Last 1h0m0s: 0 sessions") {
		t.Errorf("unexpected empty summary:\n%s", out)
	}

	trackSample(t, recentStart(t))
	out, err = executeCommand(rootCmd, "", "summarize", "--since", "1h")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	for _, want := range []string{"2 sessions", "## Applications", "Editor", "[Browser] Go docs", "Summary unavailable."} {
		if !strings.Contains(out, want) {
			t.Errorf("summarize output missing %q:\n%s", want, out)
		}
	}

	if _, err := executeCommand(rootCmd, "", "summarize", "--since=-5m"); err == nil {
		t.Error("expected an error for a negative window")
	}
}

func TestSetupSavesProfile(t *testing.T) {
	tmp := testEnv(t)

	out, err := executeCommand(rootCmd, "Ada\nship the store\nsoon\n40m\nn\n", "setup")
	if err != nil {
		t.Fatalf("setup: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"soon" is not a duration`) {
		t.Errorf("expected a retry prompt for the bad duration:\n%s", out)
	}

	data, err := os.ReadFile(filepath.Join(tmp, ".config", "focustrail", "profile.json"))
	if err != nil {
		t.Fatalf("profile not written: %v", err)
	}
	for _, want := range []string{`"name": "Ada"`, `"default_goal": "ship the store"`, `"focus_duration": "40m0s"`, `"notifications": false`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("profile missing %s:\n%s", want, data)
		}
	}
}
