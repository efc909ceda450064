// Package aggregate turns the sessions captured during an interval into
// time-weighted per-application and per-topic breakdowns.
package aggregate

import (
	"time"

	"github.com/fakeyudi/focustrail/internal/session"
)

// FocusRecord is the replay buffer of one focus block: the sessions captured
// while it ran plus its goal and, once finished, its summary.
type FocusRecord struct {
	StartDate time.Time         `json:"startDate"`
	Target    time.Duration     `json:"target"`
	EndDate   *time.Time        `json:"endDate,omitempty"`
	Sessions  []session.Session `json:"sessions"`
	Summary   string            `json:"summary,omitempty"`
	Goal      string            `json:"goal,omitempty"`
}

// NewFocusRecord starts a record for a block beginning at start.
func NewFocusRecord(start time.Time, target time.Duration, goal string) *FocusRecord {
	return &FocusRecord{
		StartDate: start,
		Target:    target,
		Goal:      goal,
		Sessions:  []session.Session{},
	}
}

// Add stores a copy of s. A session id already present is ignored.
func (r *FocusRecord) Add(s *session.Session) bool {
	for i := range r.Sessions {
		if r.Sessions[i].ID == s.ID {
			return false
		}
	}
	r.Sessions = append(r.Sessions, *s.Clone())
	return true
}

// Finish marks the block as ended at at.
func (r *FocusRecord) Finish(at time.Time, summary string) {
	if r.EndDate == nil {
		r.EndDate = &at
	}
	r.Summary = summary
}

// End returns EndDate, or asOf while the block is still running.
func (r *FocusRecord) End(asOf time.Time) time.Time {
	if r.EndDate != nil {
		return *r.EndDate
	}
	return asOf
}

// Interval is the elapsed block duration, floored to one second so it can be
// used as a divisor.
func (r *FocusRecord) Interval(asOf time.Time) time.Duration {
	return floorInterval(r.End(asOf).Sub(r.StartDate))
}

func floorInterval(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Second
	}
	return d
}
