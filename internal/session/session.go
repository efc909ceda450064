package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxSnippetChars caps ContentSnippet, counted in runes.
const MaxSnippetChars = 400

// Identity is the (application name, bundle identifier) pair that
// distinguishes one application from another. Sessions never merge across
// identities.
type Identity struct {
	AppName  string `json:"appName"`
	BundleID string `json:"bundleIdentifier"`
}

// SameApp reports whether i and other name the same application.
func (i Identity) SameApp(other Identity) bool {
	return i.AppName == other.AppName && i.BundleID == other.BundleID
}

// IsZero reports whether the identity carries no application at all.
func (i Identity) IsZero() bool {
	return i.AppName == "" && i.BundleID == ""
}

func (i Identity) String() string {
	if i.BundleID == "" {
		return i.AppName
	}
	return i.AppName + " (" + i.BundleID + ")"
}

// Context is a point-in-time snapshot of what the user is looking at inside
// an application. Optional fields are empty when absent.
type Context struct {
	WindowTitle    string    `json:"windowTitle"`
	URL            string    `json:"url,omitempty"`
	DocumentPath   string    `json:"documentPath,omitempty"`
	ContentSnippet string    `json:"contentSnippet,omitempty"`
	CapturedAt     time.Time `json:"capturedAt"`
}

// NewContext builds a Context, trimming the snippet to MaxSnippetChars.
// A snippet that is blank after trimming is dropped.
func NewContext(title, url, documentPath, snippet string, capturedAt time.Time) Context {
	return Context{
		WindowTitle:    title,
		URL:            url,
		DocumentPath:   documentPath,
		ContentSnippet: TrimSnippet(snippet),
		CapturedAt:     capturedAt,
	}
}

// TrimSnippet returns the first MaxSnippetChars runes of s with surrounding
// whitespace removed.
func TrimSnippet(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > MaxSnippetChars {
		s = strings.TrimSpace(string(r[:MaxSnippetChars]))
	}
	return s
}

// SameContent reports whether c and other describe the same content.
// CapturedAt is not compared.
func (c Context) SameContent(other Context) bool {
	return c.WindowTitle == other.WindowTitle &&
		c.URL == other.URL &&
		c.DocumentPath == other.DocumentPath &&
		c.ContentSnippet == other.ContentSnippet
}

// Session is one continuous block of foreground focus on a single
// application. EndDate is nil while the session is open.
type Session struct {
	ID        string     `json:"id"`
	AppName   string     `json:"appName"`
	BundleID  string     `json:"bundleIdentifier"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Contexts  []Context  `json:"contexts"`
}

// NewSession opens a session for app, seeded with initial. The start date is
// the initial context's capture time.
func NewSession(app Identity, initial Context) *Session {
	return &Session{
		ID:        uuid.New().String(),
		AppName:   app.AppName,
		BundleID:  app.BundleID,
		StartDate: initial.CapturedAt,
		Contexts:  []Context{initial},
	}
}

// Identity returns the application identity of the session.
func (s *Session) Identity() Identity {
	return Identity{AppName: s.AppName, BundleID: s.BundleID}
}

// IsOpen reports whether the session has not been closed yet.
func (s *Session) IsOpen() bool {
	return s.EndDate == nil
}

// LatestContext returns the most recent context, or false for a degenerate
// session decoded without any.
func (s *Session) LatestContext() (Context, bool) {
	if len(s.Contexts) == 0 {
		return Context{}, false
	}
	return s.Contexts[len(s.Contexts)-1], true
}

// Duration is EndDate-StartDate for a closed session and asOf-StartDate for
// an open one. It is never negative.
func (s *Session) Duration(asOf time.Time) time.Duration {
	end := asOf
	if s.EndDate != nil {
		end = *s.EndDate
	}
	if d := end.Sub(s.StartDate); d > 0 {
		return d
	}
	return 0
}

// AppendContext records c. When c has the same content as the last stored
// context the last entry is replaced in place, refreshing its timestamp.
// Closed sessions are immutable and ignore the call.
func (s *Session) AppendContext(c Context) {
	if !s.IsOpen() {
		return
	}
	if n := len(s.Contexts); n > 0 && s.Contexts[n-1].SameContent(c) {
		s.Contexts[n-1] = c
		return
	}
	s.Contexts = append(s.Contexts, c)
}

// Close sets EndDate. Only the first call has an effect; a close time before
// StartDate is clamped to StartDate.
func (s *Session) Close(at time.Time) {
	if s.EndDate != nil {
		return
	}
	if at.Before(s.StartDate) {
		at = s.StartDate
	}
	s.EndDate = &at
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	if s.EndDate != nil {
		end := *s.EndDate
		c.EndDate = &end
	}
	c.Contexts = append([]Context(nil), s.Contexts...)
	return &c
}

// StartOfDay returns local midnight of t in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
