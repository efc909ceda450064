package session

import "github.com/prometheus/client_golang/prometheus"

type storeMetrics struct {
	appends       prometheus.Counter
	writeFailures prometheus.Counter
	skippedLines  prometheus.Counter
	cacheSessions prometheus.Gauge
}

func newStoreMetrics(registry *prometheus.Registry) *storeMetrics {
	if registry == nil {
		return nil
	}

	m := &storeMetrics{
		appends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "focustrail_store_appends_total",
			Help: "Total number of sessions written to the session log",
		}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "focustrail_store_write_failures_total",
			Help: "Total number of session writes that failed and were kept in memory only",
		}),
		skippedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "focustrail_store_skipped_lines_total",
			Help: "Total number of undecodable log lines skipped while loading",
		}),
		cacheSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "focustrail_store_cache_sessions",
			Help: "Number of sessions currently held in the in-memory cache",
		}),
	}

	registry.MustRegister(m.appends, m.writeFailures, m.skippedLines, m.cacheSessions)
	return m
}

func (m *storeMetrics) incAppend() {
	if m != nil {
		m.appends.Inc()
	}
}

func (m *storeMetrics) incWriteFailure() {
	if m != nil {
		m.writeFailures.Inc()
	}
}

func (m *storeMetrics) incSkipped() {
	if m != nil {
		m.skippedLines.Inc()
	}
}

func (m *storeMetrics) setCacheSize(n int) {
	if m != nil {
		m.cacheSessions.Set(float64(n))
	}
}
