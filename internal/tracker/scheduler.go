package tracker

import (
	"context"
	"time"
)

// Timer is a pending deferred call.
type Timer interface {
	Stop() bool
}

// Scheduler supplies time to the tracker: the current instant, a fixed
// interval tick stream and one-shot deferred calls.
type Scheduler interface {
	Now() time.Time
	// Every calls fn on every tick until ctx is done, then returns.
	Every(ctx context.Context, interval time.Duration, fn func(at time.Time))
	AfterFunc(d time.Duration, fn func()) Timer
}

// Clock is the wall-clock Scheduler.
type Clock struct{}

func (Clock) Now() time.Time { return time.Now() }

func (Clock) Every(ctx context.Context, interval time.Duration, fn func(at time.Time)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case at := <-ticker.C:
			fn(at)
		}
	}
}

func (Clock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
