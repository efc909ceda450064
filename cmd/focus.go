package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/focustrail/internal/aggregate"
	"github.com/fakeyudi/focustrail/internal/collector"
	"github.com/fakeyudi/focustrail/internal/evaluator"
	"github.com/fakeyudi/focustrail/internal/report"
	"github.com/fakeyudi/focustrail/internal/session"
	"github.com/fakeyudi/focustrail/internal/tracker"
)

var (
	focusGoal        string
	focusDuration    time.Duration
	focusFormat      string
	focusStdinEvents bool
)

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Run a focus block and write a report when it ends",
	RunE: func(cmd *cobra.Command, args []string) error {
		goal := focusGoal
		if goal == "" && activeProfile != nil {
			goal = activeProfile.DefaultGoal
		}
		duration := focusDuration
		if duration <= 0 {
			duration = activeProfile.Focus()
		}
		format := focusFormat
		if format == "" {
			format = cfg.DefaultFormat
		}
		renderer, ext, err := report.RendererFor(format)
		if err != nil {
			return err
		}
		if !focusStdinEvents && cfg.ProbeCommand == "" {
			return errors.New("no probe command configured: set probe_command or use --stdin-events")
		}

		sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		blockCtx, cancel := context.WithTimeout(sigCtx, duration)
		defer cancel()

		store, err := openStore(nil)
		if err != nil {
			return err
		}
		defer store.Close()

		notifier := newNotifier()
		notifyCtx := context.WithoutCancel(sigCtx)
		start := time.Now()
		record := aggregate.NewFocusRecord(start, duration, goal)
		ev := evaluator.New(newGenerator(), logger)
		mon, err := evaluator.NewMonitor(ev, record, evaluator.MonitorOptions{
			MinDuration: cfg.MinEvaluation.Std(),
			OnAlert: func(a evaluator.Alert) {
				logger.Info("focus alert", "kind", a.Kind, "app", a.AppName, "title", a.WindowTitle)
				notifier.Notify(notifyCtx, alertTitle(a), alertBody(a, goal))
			},
		})
		if err != nil {
			return fmt.Errorf("starting evaluator: %w", err)
		}

		opts := trackerOptions(store, newSampler(), notifier, nil)
		opts.OnClose = func(s session.Session, _ tracker.CloseReason) {
			mon.Observe(sigCtx, s)
		}
		tr := tracker.New(opts)
		tr.Seed(store.Sessions(), start)

		cmd.Printf("Focus block started: %s", duration)
		if goal != "" {
			cmd.Printf(" on %q", goal)
		}
		cmd.Println()

		if focusStdinEvents {
			skipped, err := collector.ReadEvents(blockCtx, cmd.InOrStdin(), func(e tracker.Event) {
				tr.Handle(blockCtx, e)
			})
			tr.Shutdown(time.Now())
			if err != nil {
				return fmt.Errorf("reading events: %w", err)
			}
			if skipped > 0 {
				logger.Warn("skipped malformed events", "count", skipped)
			}
		} else {
			interval := cfg.SampleInterval.Std()
			tr.Run(blockCtx, interval)
		}

		mon.Close()
		end := time.Now()
		finished := mon.Record()
		finished.Finish(end, ev.Summary(sigCtx, finished, end))

		author := ""
		if activeProfile != nil {
			author = activeProfile.Name
		}
		rep := report.Build(finished, mon.Alerts(), end, author)
		data, err := renderer.Render(rep)
		if err != nil {
			return fmt.Errorf("rendering report: %w", err)
		}

		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		out := filepath.Join(cfg.OutputDir, report.Filename(end, ext))
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		cmd.Printf("Focus block finished: %d sessions, %d alerts.\n", len(rep.Sessions), len(rep.Alerts))
		cmd.Printf("Report written to %s\n", out)
		return nil
	},
}

func alertTitle(a evaluator.Alert) string {
	switch a.Kind {
	case evaluator.AlertOffGoal:
		return "Off goal"
	case evaluator.AlertInconsistent:
		return "Drifting"
	}
	return "Focus alert"
}

func alertBody(a evaluator.Alert, goal string) string {
	what := a.AppName
	if a.WindowTitle != "" {
		what += ": " + a.WindowTitle
	}
	if a.Kind == evaluator.AlertOffGoal && goal != "" {
		return fmt.Sprintf("%s does not look like %q.", what, goal)
	}
	return fmt.Sprintf("%s does not match what you were working on.", what)
}

func init() {
	focusCmd.Flags().StringVar(&focusGoal, "goal", "", "goal for this block (default from profile)")
	focusCmd.Flags().DurationVar(&focusDuration, "duration", 0, "block length (default from profile, 25m)")
	focusCmd.Flags().StringVar(&focusFormat, "format", "", "report format: markdown or json (default from config)")
	focusCmd.Flags().BoolVar(&focusStdinEvents, "stdin-events", false, "read JSON-lines activity events from stdin; the block ends at EOF")
	rootCmd.AddCommand(focusCmd)
}
