// Package tracker folds foreground-application observations into a timeline
// of activity sessions.
//
// The tracker is either idle or tracking one open session. Activations,
// terminations, ticks and enable/disable toggles move it between the two.
// Every close uses the timestamp of the event that caused it.
package tracker

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fakeyudi/focustrail/internal/session"
)

// Appender persists finished sessions. *session.Store satisfies it.
type Appender interface {
	Append(s *session.Session)
}

// Sampler reports the frontmost application. ok is false when no
// application is in the foreground.
type Sampler interface {
	Frontmost(ctx context.Context) (app session.Identity, ok bool, err error)
}

// Inspector captures the context of app, best effort. It never fails; when
// introspection is unavailable it returns a title-only context.
type Inspector interface {
	Inspect(ctx context.Context, app session.Identity, at time.Time) session.Context
}

// Options wires a Tracker to its collaborators. Store, Sampler and Inspector
// are required.
type Options struct {
	Store     Appender
	Sampler   Sampler
	Inspector Inspector
	Scheduler Scheduler

	// Self is the tracker's own process; its activations are ignored.
	Self session.Identity
	// IgnoreApps holds path.Match patterns tested against the bundle id and
	// the app name.
	IgnoreApps []string

	// BreakAfter enables the break reminder. OnBreak is called once per
	// session after that much continuous focus.
	BreakAfter time.Duration
	OnBreak    func(s session.Session)
	// OnClose is called after every close, outside the tracker lock.
	OnClose func(s session.Session, reason CloseReason)

	Logger  *slog.Logger
	Metrics *prometheus.Registry
}

type closeNote struct {
	session session.Session
	reason  CloseReason
}

// Tracker is the activity state machine. All transitions are serialised by
// one mutex.
type Tracker struct {
	opts    Options
	logger  *slog.Logger
	metrics *trackerMetrics

	mu         sync.Mutex
	enabled    bool
	current    *session.Session
	today      []session.Session
	breakTimer Timer
	closed     []closeNote
	// lastAt is the latest timestamp applied to the timeline. Earlier
	// event times are raised to it.
	lastAt time.Time
}

// New returns an enabled, idle Tracker.
func New(opts Options) *Tracker {
	if opts.Scheduler == nil {
		opts.Scheduler = Clock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		opts:    opts,
		logger:  logger,
		metrics: newTrackerMetrics(opts.Metrics),
		enabled: true,
	}
}

// Seed loads the sessions of today (relative to now) into the today list,
// typically from the store's cache at startup.
func (t *Tracker) Seed(sessions []session.Session, now time.Time) {
	today := session.FilterSince(sessions, session.StartOfDay(now))
	t.mu.Lock()
	defer t.mu.Unlock()
	t.today = today
}

// Activate records that app came to the foreground showing c.
func (t *Tracker) Activate(app session.Identity, c session.Context) {
	if c.CapturedAt.IsZero() {
		c.CapturedAt = t.opts.Scheduler.Now()
	}
	t.mu.Lock()
	if t.enabled && !t.ignored(app) {
		t.observeLocked(app, c)
	}
	t.unlock()
}

// Terminate closes the current session when it belongs to app.
func (t *Tracker) Terminate(app session.Identity, at time.Time) {
	t.mu.Lock()
	if t.current != nil && t.current.Identity().SameApp(app) {
		t.closeLocked(at, ReasonTerminated)
	}
	t.unlock()
}

// Tick resamples the frontmost application. Sampling runs outside the lock
// so a slow probe never blocks queries.
func (t *Tracker) Tick(ctx context.Context, at time.Time) {
	if !t.Enabled() {
		return
	}
	t.metrics.incTick()

	app, ok, err := t.opts.Sampler.Frontmost(ctx)
	if err != nil {
		t.logger.Warn("sampling frontmost application failed", "error", err)
		return
	}
	if !ok {
		t.mu.Lock()
		if t.enabled && t.current != nil {
			t.closeLocked(at, ReasonNoForeground)
		}
		t.unlock()
		return
	}
	if t.ignored(app) {
		return
	}

	c := t.opts.Inspector.Inspect(ctx, app, at)
	c.CapturedAt = at

	t.mu.Lock()
	if t.enabled {
		t.observeLocked(app, c)
	}
	t.unlock()
}

// SetEnabled toggles tracking. Disabling closes the current session at at;
// enabling resamples immediately.
func (t *Tracker) SetEnabled(ctx context.Context, enabled bool, at time.Time) {
	t.mu.Lock()
	if t.enabled == enabled {
		t.unlock()
		return
	}
	t.enabled = enabled
	if !enabled && t.current != nil {
		t.closeLocked(at, ReasonDisabled)
	}
	t.unlock()

	t.logger.Info("tracking toggled", "enabled", enabled)
	if enabled {
		t.Tick(ctx, at)
	}
}

// Handle applies a pushed event.
func (t *Tracker) Handle(ctx context.Context, ev Event) {
	at := ev.At
	if at.IsZero() {
		at = t.opts.Scheduler.Now()
	}
	switch ev.Kind {
	case EventActivate:
		var c session.Context
		if ev.Context != nil {
			c = *ev.Context
			c.ContentSnippet = session.TrimSnippet(c.ContentSnippet)
		} else {
			c = t.opts.Inspector.Inspect(ctx, ev.App, at)
		}
		c.CapturedAt = at
		t.Activate(ev.App, c)
	case EventTerminate:
		t.Terminate(ev.App, at)
	case EventTick:
		t.Tick(ctx, at)
	case EventEnable:
		t.SetEnabled(ctx, true, at)
	case EventDisable:
		t.SetEnabled(ctx, false, at)
	default:
		t.logger.Debug("ignoring unknown tracker event", "kind", ev.Kind)
	}
}

// Run resamples every interval until ctx is done, then closes the current
// session at shutdown time.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	t.Tick(ctx, t.opts.Scheduler.Now())
	t.opts.Scheduler.Every(ctx, interval, func(at time.Time) {
		t.Tick(ctx, at)
	})
	t.Shutdown(t.opts.Scheduler.Now())
}

// Shutdown closes the current session, if any.
func (t *Tracker) Shutdown(at time.Time) {
	t.mu.Lock()
	if t.current != nil {
		t.closeLocked(at, ReasonShutdown)
	}
	t.unlock()
}

// Enabled reports whether tracking is on.
func (t *Tracker) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Current returns a copy of the open session.
func (t *Tracker) Current() (session.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return session.Session{}, false
	}
	return *t.current.Clone(), true
}

// Today returns the sessions closed today, in close order.
func (t *Tracker) Today() []session.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]session.Session, len(t.today))
	for i := range t.today {
		out[i] = *t.today[i].Clone()
	}
	return out
}

// TotalFocusedTime sums today's closed sessions and the live duration of the
// current one.
func (t *Tracker) TotalFocusedTime(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	midnight := session.StartOfDay(now)
	var total time.Duration
	for i := range t.today {
		if !t.today[i].StartDate.Before(midnight) {
			total += t.today[i].Duration(now)
		}
	}
	if t.current != nil {
		total += t.current.Duration(now)
	}
	return total
}

// LatestHighlights returns the current session first, then today's finished
// sessions newest first, up to max entries.
func (t *Tracker) LatestHighlights(now time.Time, max int) []session.Session {
	if max <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]session.Session, 0, max)
	if t.current != nil {
		out = append(out, *t.current.Clone())
	}
	finished := session.FilterSince(t.today, session.StartOfDay(now))
	sort.SliceStable(finished, func(i, j int) bool {
		return finished[i].StartDate.After(finished[j].StartDate)
	})
	for _, s := range finished {
		if len(out) == max {
			break
		}
		out = append(out, *s.Clone())
	}
	return out
}

// observeLocked refreshes the current session for app or replaces it.
func (t *Tracker) observeLocked(app session.Identity, c session.Context) {
	c.CapturedAt = t.monotonicLocked(c.CapturedAt)
	if t.current != nil {
		if t.current.Identity().SameApp(app) {
			t.current.AppendContext(c)
			return
		}
		t.closeLocked(c.CapturedAt, ReasonSwitch)
	}
	t.openLocked(app, c)
}

func (t *Tracker) openLocked(app session.Identity, c session.Context) {
	s := session.NewSession(app, c)
	t.current = s
	t.metrics.setOpen(true)
	t.logger.Debug("session opened", "session_id", s.ID, "app", app.String())

	if t.opts.BreakAfter > 0 && t.opts.OnBreak != nil {
		id := s.ID
		t.breakTimer = t.opts.Scheduler.AfterFunc(t.opts.BreakAfter, func() { t.fireBreak(id) })
	}
}

// closeLocked runs the close sequence: end date, persist, today list, clear
// current, cancel the break reminder.
func (t *Tracker) closeLocked(at time.Time, reason CloseReason) {
	at = t.monotonicLocked(at)
	s := t.current
	s.Close(at)
	t.opts.Store.Append(s)

	t.today = append(t.today, *s.Clone())
	t.today = session.FilterSince(t.today, session.StartOfDay(at))

	t.current = nil
	if t.breakTimer != nil {
		t.breakTimer.Stop()
		t.breakTimer = nil
	}

	t.metrics.incClosed(reason)
	t.metrics.setOpen(false)
	t.logger.Debug("session closed", "session_id", s.ID, "app", s.Identity().String(),
		"reason", reason, "duration", s.Duration(at))
	t.closed = append(t.closed, closeNote{session: *s.Clone(), reason: reason})
}

// monotonicLocked returns at, or the last applied timestamp when at is
// older, and records the result.
func (t *Tracker) monotonicLocked(at time.Time) time.Time {
	if at.Before(t.lastAt) {
		t.logger.Debug("raising out-of-order event time", "at", at, "last", t.lastAt)
		return t.lastAt
	}
	t.lastAt = at
	return at
}

// unlock releases the lock and then delivers queued close callbacks.
func (t *Tracker) unlock() {
	notes := t.closed
	t.closed = nil
	t.mu.Unlock()
	if t.opts.OnClose == nil {
		return
	}
	for _, n := range notes {
		t.opts.OnClose(n.session, n.reason)
	}
}

func (t *Tracker) fireBreak(id string) {
	t.mu.Lock()
	if !t.enabled || t.current == nil || t.current.ID != id {
		t.mu.Unlock()
		return
	}
	snapshot := *t.current.Clone()
	t.breakTimer = nil
	t.mu.Unlock()

	t.opts.OnBreak(snapshot)
}

func (t *Tracker) ignored(app session.Identity) bool {
	if app.IsZero() {
		return true
	}
	if !t.opts.Self.IsZero() && t.opts.Self.SameApp(app) {
		return true
	}
	for _, pattern := range t.opts.IgnoreApps {
		if ok, _ := path.Match(pattern, app.BundleID); ok && app.BundleID != "" {
			return true
		}
		if ok, _ := path.Match(pattern, app.AppName); ok {
			return true
		}
	}
	return false
}
