// Package collector is the boundary to the desktop: it samples the frontmost
// application through a user-configured probe command, enriches contexts
// with document snippets, decodes pushed activity events and watches the
// session log for changes.
package collector

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fakeyudi/focustrail/internal/session"
)

// Probe is the JSON object printed by the probe command for the frontmost
// application. Empty output means no application is in the foreground.
type Probe struct {
	AppName      string `json:"app"`
	BundleID     string `json:"bundleId"`
	WindowTitle  string `json:"title"`
	URL          string `json:"url,omitempty"`
	DocumentPath string `json:"documentPath,omitempty"`
	Text         string `json:"text,omitempty"`
}

// Identity returns the application identity reported by the probe.
func (p Probe) Identity() session.Identity {
	return session.Identity{AppName: p.AppName, BundleID: p.BundleID}
}

// ParseProbe decodes probe output. It returns nil, nil for blank output.
func ParseProbe(out string) (*Probe, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	var p Probe
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		return nil, fmt.Errorf("decoding probe output: %w", err)
	}
	if p.AppName == "" && p.BundleID == "" {
		return nil, nil
	}
	return &p, nil
}

// DefaultBrowsers lists bundle identifiers whose URLs are kept.
var DefaultBrowsers = []string{
	"com.apple.Safari",
	"com.google.Chrome",
	"org.mozilla.firefox",
	"com.microsoft.edgemac",
	"com.brave.Browser",
	"company.thebrowser.Browser",
	"firefox",
	"google-chrome",
	"chromium",
	"brave-browser",
}
