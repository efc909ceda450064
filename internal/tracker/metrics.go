package tracker

import "github.com/prometheus/client_golang/prometheus"

type trackerMetrics struct {
	closed *prometheus.CounterVec
	ticks  prometheus.Counter
	open   prometheus.Gauge
}

func newTrackerMetrics(registry *prometheus.Registry) *trackerMetrics {
	if registry == nil {
		return nil
	}

	m := &trackerMetrics{
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "focustrail_tracker_sessions_closed_total",
			Help: "Total number of activity sessions closed, by reason",
		}, []string{"reason"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "focustrail_tracker_ticks_total",
			Help: "Total number of resampling ticks processed while enabled",
		}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "focustrail_tracker_session_open",
			Help: "1 while a session is being tracked, 0 otherwise",
		}),
	}

	registry.MustRegister(m.closed, m.ticks, m.open)
	return m
}

func (m *trackerMetrics) incClosed(reason CloseReason) {
	if m != nil {
		m.closed.WithLabelValues(string(reason)).Inc()
	}
}

func (m *trackerMetrics) incTick() {
	if m != nil {
		m.ticks.Inc()
	}
}

func (m *trackerMetrics) setOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.open.Set(1)
	} else {
		m.open.Set(0)
	}
}
