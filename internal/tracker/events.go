package tracker

import (
	"time"

	"github.com/fakeyudi/focustrail/internal/session"
)

// EventKind names a tracker input.
type EventKind string

const (
	EventActivate  EventKind = "activate"
	EventTerminate EventKind = "terminate"
	EventTick      EventKind = "tick"
	EventEnable    EventKind = "enable"
	EventDisable   EventKind = "disable"
)

// Event is one pushed observation. Context is optional for activations;
// when nil the tracker asks its Inspector.
type Event struct {
	Kind    EventKind
	App     session.Identity
	Context *session.Context
	At      time.Time
}

// CloseReason records why a session was closed.
type CloseReason string

const (
	ReasonSwitch       CloseReason = "switch"
	ReasonTerminated   CloseReason = "terminated"
	ReasonNoForeground CloseReason = "no_foreground"
	ReasonDisabled     CloseReason = "disabled"
	ReasonShutdown     CloseReason = "shutdown"
)
