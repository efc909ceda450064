package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"

	"github.com/fakeyudi/focustrail/internal/collector"
	"github.com/fakeyudi/focustrail/internal/notify"
	"github.com/fakeyudi/focustrail/internal/session"
	"github.com/fakeyudi/focustrail/internal/textgen"
	"github.com/fakeyudi/focustrail/internal/tracker"
)

// logPath returns the configured session log, or the XDG default.
func logPath() (string, error) {
	if cfg.LogPath != "" {
		return cfg.LogPath, nil
	}
	return session.DefaultLogPath()
}

// openStore opens the session log and waits for its tail to be loaded.
// reg may be nil.
func openStore(reg *prometheus.Registry) (*session.Store, error) {
	path, err := logPath()
	if err != nil {
		return nil, err
	}
	store := session.NewStore(afero.NewOsFs(), path,
		session.WithCacheLimit(cfg.CacheLimit),
		session.WithLogger(logger),
		session.WithMetrics(reg),
	)
	store.Open()
	store.Flush()
	return store, nil
}

// newGenerator returns the OpenAI generator, or nil when no API key is set.
// Evaluations then come back unknown and summaries use the fallback text.
func newGenerator() textgen.Generator {
	if cfg.APIKey == "" {
		logger.Debug("no API key configured, evaluations disabled")
		return nil
	}
	var opts []textgen.OpenAIOption
	if cfg.BaseURL != "" {
		opts = append(opts, textgen.WithBaseURL(cfg.BaseURL))
	}
	gen, err := textgen.NewOpenAI(cfg.APIKey, cfg.Model, opts...)
	if err != nil {
		logger.Warn("text generation unavailable", "error", err)
		return nil
	}
	return gen
}

// newNotifier always logs; desktop notifications follow the profile.
func newNotifier() notify.Notifier {
	n := notify.Multi{notify.LogNotifier{Logger: logger}}
	if activeProfile == nil || activeProfile.Notifications {
		n = append(n, &notify.CommandNotifier{Command: cfg.NotifyCommand, Logger: logger})
	}
	return n
}

func newSampler() *collector.CommandSampler {
	return &collector.CommandSampler{Command: cfg.ProbeCommand, Logger: logger}
}

// trackerOptions wires a tracker to store and sampler with the configured
// ignore list and break reminder.
func trackerOptions(store tracker.Appender, sampler *collector.CommandSampler, notifier notify.Notifier, reg *prometheus.Registry) tracker.Options {
	return tracker.Options{
		Store:      store,
		Sampler:    sampler,
		Inspector:  sampler,
		Self:       collector.SelfIdentity(),
		IgnoreApps: cfg.IgnoreApps,
		BreakAfter: cfg.BreakAfter.Std(),
		OnBreak: func(s session.Session) {
			notifier.Notify(context.Background(), "Time for a break",
				fmt.Sprintf("You have been in %s for %s.", s.AppName, cfg.BreakAfter.Std()))
		},
		Logger:  logger,
		Metrics: reg,
	}
}

// serveMetrics exposes reg on addr until the returned stop func is called.
func serveMetrics(addr string, reg *prometheus.Registry) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
