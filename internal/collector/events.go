package collector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fakeyudi/focustrail/internal/session"
	"github.com/fakeyudi/focustrail/internal/tracker"
)

// wireEvent is one line of the push event stream, e.g.
//
//	{"event":"activate","app":"Firefox","bundleId":"org.mozilla.firefox","title":"Go docs","at":"2024-05-06T09:00:00Z"}
type wireEvent struct {
	Event string    `json:"event"`
	At    time.Time `json:"at"`
	Probe
}

func (w wireEvent) toEvent() (tracker.Event, error) {
	ev := tracker.Event{
		Kind: tracker.EventKind(w.Event),
		App:  w.Identity(),
		At:   w.At,
	}
	switch ev.Kind {
	case tracker.EventActivate, tracker.EventTerminate:
		if ev.App.IsZero() {
			return tracker.Event{}, fmt.Errorf("%s event without application", w.Event)
		}
	case tracker.EventEnable, tracker.EventDisable, tracker.EventTick:
	default:
		return tracker.Event{}, fmt.Errorf("unknown event %q", w.Event)
	}
	if ev.Kind == tracker.EventActivate && (w.WindowTitle != "" || w.URL != "" || w.DocumentPath != "" || w.Text != "") {
		c := session.NewContext(w.WindowTitle, w.URL, w.DocumentPath, w.Text, w.At)
		ev.Context = &c
	}
	return ev, nil
}

// ReadEvents decodes JSON-lines events from r and passes each to fn until r
// is exhausted or ctx is done. Undecodable lines are skipped and counted.
// Reading happens on a separate goroutine so a quiet r never delays
// cancellation; that goroutine exits once r returns.
func ReadEvents(ctx context.Context, r io.Reader, fn func(tracker.Event)) (skipped int, err error) {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		var err error
		defer func() {
			scanErr <- err
			close(lines)
		}()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		err = scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return skipped, nil

		case line, ok := <-lines:
			if !ok {
				return skipped, <-scanErr
			}
			if ctx.Err() != nil {
				return skipped, nil
			}
			if len(line) == 0 {
				continue
			}
			var w wireEvent
			if err := json.Unmarshal(line, &w); err != nil {
				skipped++
				continue
			}
			ev, err := w.toEvent()
			if err != nil {
				skipped++
				continue
			}
			fn(ev)
		}
	}
}
