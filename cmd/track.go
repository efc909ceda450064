package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/focustrail/internal/collector"
	"github.com/fakeyudi/focustrail/internal/session"
	"github.com/fakeyudi/focustrail/internal/tracker"
)

var (
	trackStdinEvents bool
	trackInterval    time.Duration
	trackMetricsAddr string
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record foreground activity into the session log until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !trackStdinEvents && cfg.ProbeCommand == "" {
			return errors.New("no probe command configured: set probe_command or use --stdin-events")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		store, err := openStore(reg)
		if err != nil {
			return err
		}
		defer store.Close()

		if trackMetricsAddr != "" {
			stopMetrics := serveMetrics(trackMetricsAddr, reg)
			defer stopMetrics()
		}

		opts := trackerOptions(store, newSampler(), newNotifier(), reg)
		opts.OnClose = func(s session.Session, reason tracker.CloseReason) {
			logger.Info("session closed",
				"app", s.AppName,
				"duration", s.Duration(time.Now()).Round(time.Second),
				"reason", reason)
		}
		tr := tracker.New(opts)
		tr.Seed(store.Sessions(), time.Now())
		logger.Info("tracking started", "log", store.Path())

		if trackStdinEvents {
			skipped, err := collector.ReadEvents(ctx, cmd.InOrStdin(), func(ev tracker.Event) {
				tr.Handle(ctx, ev)
			})
			tr.Shutdown(time.Now())
			if skipped > 0 {
				logger.Warn("skipped malformed events", "count", skipped)
			}
			return err
		}

		interval := trackInterval
		if interval <= 0 {
			interval = cfg.SampleInterval.Std()
		}
		tr.Run(ctx, interval)
		return nil
	},
}

func init() {
	trackCmd.Flags().BoolVar(&trackStdinEvents, "stdin-events", false, "read JSON-lines activity events from stdin instead of sampling")
	trackCmd.Flags().DurationVar(&trackInterval, "interval", 0, "sampling interval (default from config)")
	trackCmd.Flags().StringVar(&trackMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9464")
	rootCmd.AddCommand(trackCmd)
}
