package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/focustrail/internal/collector"
	"github.com/fakeyudi/focustrail/internal/session"
	"github.com/fakeyudi/focustrail/internal/tracker"
)

// todayHighlights is how many recent sessions today lists as highlights.
const todayHighlights = 5

var todayFollow bool

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's sessions and total focused time",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if err := renderToday(out, time.Now()); err != nil {
			return err
		}
		if !todayFollow {
			return nil
		}

		path, err := logPath()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return collector.FollowLog(ctx, path, func() {
			fmt.Fprintln(out)
			if err := renderToday(out, time.Now()); err != nil {
				logger.Warn("failed to refresh today's sessions", "error", err)
			}
		})
	},
}

// todayTracker returns an idle tracker seeded with today's cached sessions.
// It is only used for its read-side queries.
func todayTracker(now time.Time) (*tracker.Tracker, error) {
	store, err := openStore(nil)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	tr := tracker.New(tracker.Options{Store: store, Logger: logger})
	tr.Seed(store.SessionsForToday(now), now)
	return tr, nil
}

func renderToday(w io.Writer, now time.Time) error {
	tr, err := todayTracker(now)
	if err != nil {
		return err
	}
	sessions := tr.Today()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded today.")
		return nil
	}

	fmt.Fprintf(w, "Today: %s focused across %s sessions\n\n",
		tr.TotalFocusedTime(now).Round(time.Second), humanize.Comma(int64(len(sessions))))
	for _, s := range sessions {
		fmt.Fprintf(w, "  %s  %9s  %s\n", s.StartDate.Format("15:04"), s.Duration(now).Round(time.Second), describe(s))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Latest:")
	for _, s := range tr.LatestHighlights(now, todayHighlights) {
		fmt.Fprintf(w, "  %s (%s)\n", describe(s), humanize.RelTime(s.StartDate, now, "ago", "from now"))
	}
	return nil
}

// describe renders a session as "App: latest title".
func describe(s session.Session) string {
	if c, ok := s.LatestContext(); ok && c.WindowTitle != "" {
		return s.AppName + ": " + c.WindowTitle
	}
	return s.AppName
}

func init() {
	todayCmd.Flags().BoolVar(&todayFollow, "follow", false, "re-render whenever the session log changes")
	rootCmd.AddCommand(todayCmd)
}
