// Package serial implements the multi-session port engine: per-port
// sessions that frame byte streams into lines and self-heal with
// bounded-retry backoff, a hub that owns the session registry and
// routes commands, and a bus that fans framed lines out to any number
// of subscribers.
package serial

import (
	"fmt"
	"time"
)

// LineEvent is one framed line received from a port. The timestamp is
// capture time on this machine, not device time. Values are never
// mutated after creation and are safe to share between subscribers.
type LineEvent struct {
	Timestamp time.Time
	Port      string
	Path      string
	Text      string
}

// Level classifies a Notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// String returns "info", "warn" or "error".
func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is an operational event surfaced to the UI and logs:
// port connects/disconnects, routing problems, script lifecycle.
// Source identifies the emitting component (a port name, "hub",
// "script", ...).
type Notification struct {
	Level   Level
	Source  string
	Message string
}

// Notifier receives notifications. Implementations must not block;
// the engine calls them from session and hub goroutines.
type Notifier func(Notification)

// Notify formats and delivers a notification, tolerating a nil
// notifier so components can be wired without one in tests.
func (n Notifier) Notify(level Level, source, format string, args ...any) {
	if n == nil {
		return
	}
	n(Notification{Level: level, Source: source, Message: fmt.Sprintf(format, args...)})
}
