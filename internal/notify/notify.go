// Package notify delivers user-facing notifications. Delivery is fire and
// forget: failures are logged, never returned to the tracker.
package notify

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Notifier shows a title and body to the user.
type Notifier interface {
	Notify(ctx context.Context, title, body string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, title, body string)

func (f NotifierFunc) Notify(ctx context.Context, title, body string) { f(ctx, title, body) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(context.Context, string, string) {})

// CommandRunner runs name with args. This abstraction allows mocking in tests.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// commandTimeout bounds a single notification command.
const commandTimeout = 10 * time.Second

// CommandNotifier runs an external command such as notify-send with the
// title and body appended as the last two arguments.
type CommandNotifier struct {
	Command string // e.g. "notify-send --app-name=focustrail"
	Runner  CommandRunner
	Logger  *slog.Logger
}

func (n *CommandNotifier) Notify(ctx context.Context, title, body string) {
	fields := strings.Fields(n.Command)
	if len(fields) == 0 {
		return
	}
	runner := n.Runner
	if runner == nil {
		runner = defaultCommandRunner
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	args := append(fields[1:len(fields):len(fields)], title, body)
	if err := runner(ctx, fields[0], args...); err != nil {
		n.logger().Warn("notification command failed", "command", fields[0], "error", err)
	}
}

func (n *CommandNotifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, title, body string) {
	l := n.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("notification", "title", title, "body", body)
}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, title, body string) {
	for _, n := range m {
		n.Notify(ctx, title, body)
	}
}
