package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyLine is returned by UnmarshalLine for blank input.
var ErrEmptyLine = errors.New("empty session line")

// record is the on-disk shape of a session. Context is the legacy singular
// field written by older versions of the log.
type record struct {
	ID        string     `json:"id"`
	AppName   string     `json:"appName"`
	BundleID  string     `json:"bundleIdentifier"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Contexts  []Context  `json:"contexts,omitempty"`
	Context   *Context   `json:"context,omitempty"`
}

// MarshalLine encodes s as a single JSON line without the trailing newline.
func MarshalLine(s *Session) ([]byte, error) {
	r := record{
		ID:        s.ID,
		AppName:   s.AppName,
		BundleID:  s.BundleID,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		Contexts:  s.Contexts,
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return data, nil
}

// UnmarshalLine decodes one log line. A non-empty contexts array wins over
// the legacy singular context field; a record carrying neither decodes to a
// session with zero contexts.
func UnmarshalLine(line []byte) (*Session, error) {
	if len(line) == 0 {
		return nil, ErrEmptyLine
	}
	var r record
	if err := json.Unmarshal(line, &r); err != nil {
		return nil, fmt.Errorf("decode session line: %w", err)
	}
	if r.ID == "" {
		return nil, errors.New("decode session line: missing id")
	}

	s := &Session{
		ID:        r.ID,
		AppName:   r.AppName,
		BundleID:  r.BundleID,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
	}
	switch {
	case len(r.Contexts) > 0:
		s.Contexts = r.Contexts
	case r.Context != nil:
		s.Contexts = []Context{*r.Context}
	default:
		s.Contexts = []Context{}
	}
	return s, nil
}
