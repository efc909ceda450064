package evaluator

import (
	"context"
	"sync"
	"time"

	"github.com/maypok86/otter"

	"github.com/fakeyudi/focustrail/internal/aggregate"
	"github.com/fakeyudi/focustrail/internal/session"
)

// DefaultMinDuration is the shortest session that gets evaluated. Shorter
// sessions are treated as micro-switches.
const DefaultMinDuration = 30 * time.Second

const defaultMemoSize = 4096

// AlertKind names the judgment that produced an alert.
type AlertKind string

const (
	AlertOffGoal      AlertKind = "off_goal"
	AlertInconsistent AlertKind = "inconsistent"
)

// Alert is raised when a session is definitively judged off goal or off topic.
type Alert struct {
	Kind        AlertKind `json:"kind"`
	SessionID   string    `json:"sessionId"`
	AppName     string    `json:"appName"`
	WindowTitle string    `json:"windowTitle,omitempty"`
	At          time.Time `json:"at"`
}

// MonitorOptions configures a Monitor.
type MonitorOptions struct {
	// MinDuration defaults to DefaultMinDuration.
	MinDuration time.Duration
	// OnAlert is called from the evaluating goroutine.
	OnAlert func(Alert)
	// Now defaults to time.Now.
	Now func() time.Time
}

// Monitor evaluates the sessions of one focus block as they close. Every
// session is evaluated at most once. Evaluations run on their own
// goroutines so Observe never waits on the text-generation service.
type Monitor struct {
	ev       *Evaluator
	opts     MonitorOptions
	memo     otter.Cache[string, struct{}]
	wg       sync.WaitGroup
	mu       sync.Mutex
	record   *aggregate.FocusRecord
	eligible []session.Session
	alerts   []Alert
}

// NewMonitor returns a Monitor feeding record.
func NewMonitor(ev *Evaluator, record *aggregate.FocusRecord, opts MonitorOptions) (*Monitor, error) {
	if opts.MinDuration <= 0 {
		opts.MinDuration = DefaultMinDuration
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	memo, err := otter.MustBuilder[string, struct{}](defaultMemoSize).Build()
	if err != nil {
		return nil, err
	}
	return &Monitor{ev: ev, opts: opts, memo: memo, record: record}, nil
}

// Observe adds s to the block record and, when s is long enough and has not
// been evaluated yet, starts its goal and consistency evaluations.
func (m *Monitor) Observe(ctx context.Context, s session.Session) {
	now := m.opts.Now()
	s = *s.Clone()

	m.mu.Lock()
	m.record.Add(&s)
	if s.Duration(now) < m.opts.MinDuration {
		m.mu.Unlock()
		return
	}
	if _, seen := m.memo.Get(s.ID); seen {
		m.mu.Unlock()
		return
	}
	m.memo.Set(s.ID, struct{}{})
	prior := append([]session.Session(nil), m.eligible...)
	m.eligible = append(m.eligible, *s.Clone())
	goal := m.record.Goal
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if goal != "" && m.ev.GoalRelevance(ctx, goal, &s, now) == No {
			m.raise(AlertOffGoal, &s, now)
		}
		if len(prior) > 0 && m.ev.Consistency(ctx, prior, &s, now) == No {
			m.raise(AlertInconsistent, &s, now)
		}
	}()
}

func (m *Monitor) raise(kind AlertKind, s *session.Session, at time.Time) {
	a := Alert{Kind: kind, SessionID: s.ID, AppName: s.AppName, At: at}
	if c, ok := s.LatestContext(); ok {
		a.WindowTitle = c.WindowTitle
	}
	m.mu.Lock()
	m.alerts = append(m.alerts, a)
	m.mu.Unlock()
	if m.opts.OnAlert != nil {
		m.opts.OnAlert(a)
	}
}

// Wait blocks until every started evaluation has finished.
func (m *Monitor) Wait() { m.wg.Wait() }

// Alerts returns the alerts raised so far, in the order they were raised.
func (m *Monitor) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Alert(nil), m.alerts...)
}

// Record returns a copy of the block record.
func (m *Monitor) Record() *aggregate.FocusRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := *m.record
	r.Sessions = append([]session.Session(nil), m.record.Sessions...)
	return &r
}

// Close waits for in-flight evaluations and releases the memo.
func (m *Monitor) Close() {
	m.wg.Wait()
	m.memo.Close()
}
