package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/fakeyudi/focustrail/internal/session"
)

// ErrNoProbeCommand is returned by Frontmost when no probe is configured.
var ErrNoProbeCommand = errors.New("no probe command configured")

// ProbeRunner executes the probe command and returns its standard output.
// This abstraction allows mocking in tests.
type ProbeRunner func(ctx context.Context, command string) (string, error)

// defaultProbeRunner runs the command through sh -c.
func defaultProbeRunner(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	out, err := cmd.Output()
	return string(out), err
}

// snippetReadLimit bounds how much of a document is read for a snippet.
const snippetReadLimit = 4 * session.MaxSnippetChars

// CommandSampler samples the desktop by running a probe command. It serves
// as both the tracker's Sampler and its Inspector.
type CommandSampler struct {
	Command  string
	Runner   ProbeRunner // if nil, runs sh -c
	Fs       afero.Fs    // if nil, the OS filesystem
	Browsers []string    // if nil, DefaultBrowsers
	Logger   *slog.Logger

	mu   sync.Mutex
	last *Probe
}

func (c *CommandSampler) run(ctx context.Context) (*Probe, error) {
	if strings.TrimSpace(c.Command) == "" {
		return nil, ErrNoProbeCommand
	}
	runner := c.Runner
	if runner == nil {
		runner = defaultProbeRunner
	}
	out, err := runner(ctx, c.Command)
	if err != nil {
		return nil, err
	}
	return ParseProbe(out)
}

// Frontmost runs the probe and reports the frontmost application.
func (c *CommandSampler) Frontmost(ctx context.Context) (session.Identity, bool, error) {
	p, err := c.run(ctx)
	if err != nil {
		return session.Identity{}, false, err
	}
	c.mu.Lock()
	c.last = p
	c.mu.Unlock()
	if p == nil {
		return session.Identity{}, false, nil
	}
	return p.Identity(), true, nil
}

// Inspect returns the context of app. It reuses the probe taken by the
// preceding Frontmost call when it names the same application, otherwise it
// probes again. When the probe fails or reports another application the
// context degrades to the app name as its title.
func (c *CommandSampler) Inspect(ctx context.Context, app session.Identity, at time.Time) session.Context {
	c.mu.Lock()
	p := c.last
	c.last = nil
	c.mu.Unlock()

	if p == nil || !p.Identity().SameApp(app) {
		var err error
		p, err = c.run(ctx)
		if err != nil {
			c.logger().Debug("context probe failed, using title only", "app", app.String(), "error", err)
			return session.NewContext(app.AppName, "", "", "", at)
		}
	}
	if p == nil || !p.Identity().SameApp(app) {
		return session.NewContext(app.AppName, "", "", "", at)
	}
	return c.contextFrom(app, p, at)
}

func (c *CommandSampler) contextFrom(app session.Identity, p *Probe, at time.Time) session.Context {
	title := p.WindowTitle
	if strings.TrimSpace(title) == "" {
		title = app.AppName
	}
	var url string
	if c.isBrowser(app.BundleID) {
		url = p.URL
	}
	snippet := p.Text
	if strings.TrimSpace(snippet) == "" && p.DocumentPath != "" {
		snippet = c.readSnippet(p.DocumentPath)
	}
	return session.NewContext(title, url, p.DocumentPath, snippet, at)
}

func (c *CommandSampler) isBrowser(bundleID string) bool {
	browsers := c.Browsers
	if browsers == nil {
		browsers = DefaultBrowsers
	}
	return bundleID != "" && slices.Contains(browsers, bundleID)
}

// readSnippet returns the leading text of a regular file, or "" on any error.
func (c *CommandSampler) readSnippet(path string) string {
	fs := c.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	info, err := fs.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return ""
	}
	f, err := fs.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf, err := io.ReadAll(io.LimitReader(f, snippetReadLimit))
	if err != nil {
		c.logger().Debug("reading document snippet failed", "path", path, "error", err)
		return ""
	}
	// The read limit may cut the last rune.
	text := strings.ToValidUTF8(string(buf), "")
	if strings.ContainsRune(text, 0) {
		return "" // binary
	}
	return text
}

func (c *CommandSampler) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// SelfIdentity returns an identity for the running process so the tracker
// can ignore its own windows.
func SelfIdentity() session.Identity {
	name := "focustrail"
	if exe, err := os.Executable(); err == nil {
		name = filepath.Base(exe)
	}
	return session.Identity{AppName: name}
}
