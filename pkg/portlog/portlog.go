// Package portlog persists received lines to disk: one log file per
// port plus a combined super.log interleaving every port in arrival
// order.
package portlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"serialtui/pkg/serial"
)

const (
	superName = "super.log"
	timeFmt   = "15:04:05.000"
)

// DefaultDir returns the log directory under the user's data home.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "serialtui", "logs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "serialtui", "logs")
	}
	return filepath.Join(home, ".local", "share", "serialtui", "logs")
}

// Writer appends line events to per-port log files. Files open
// lazily on the first line from each port and stay open until Close
// or Purge.
type Writer struct {
	dir string

	mu     sync.Mutex
	files  map[string]*os.File
	super  *os.File
	closed bool
}

// New creates the log directory and a Writer over it.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &Writer{dir: dir, files: make(map[string]*os.File)}, nil
}

// Dir returns the directory this writer logs into.
func (w *Writer) Dir() string { return w.dir }

// Write appends one line event to the port's file and to super.log.
func (w *Writer) Write(ev serial.LineEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("log writer is closed")
	}

	stamp := ev.Timestamp.Format(timeFmt)

	f, err := w.portFile(ev.Port)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "[%s] %s\n", stamp, ev.Text); err != nil {
		return fmt.Errorf("write %s log: %w", ev.Port, err)
	}

	if w.super == nil {
		w.super, err = w.open(superName)
		if err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w.super, "[%s] [%s] %s\n", stamp, ev.Port, ev.Text); err != nil {
		return fmt.Errorf("write super log: %w", err)
	}
	return nil
}

// Run drains a subscription into the logs until ctx is cancelled or
// the subscription closes. Write failures are reported once through
// notify and logging stops.
func (w *Writer) Run(ctx context.Context, sub *serial.Subscription, notify serial.Notifier) {
	defer sub.Cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := w.Write(ev); err != nil {
				notify.Notify(serial.LevelError, "log", "%v, logging stopped", err)
				return
			}
		}
	}
}

// Purge closes and deletes every log file in the directory. Logging
// continues afterwards with fresh files.
func (w *Writer) Purge() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closeAll()
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("purge logs: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, entry.Name())); err != nil {
			return fmt.Errorf("purge logs: %w", err)
		}
	}
	return nil
}

// Close flushes and closes every open file. The writer cannot be
// used afterwards.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeAll()
	w.closed = true
	return nil
}

func (w *Writer) closeAll() {
	for name, f := range w.files {
		f.Close()
		delete(w.files, name)
	}
	if w.super != nil {
		w.super.Close()
		w.super = nil
	}
}

func (w *Writer) portFile(port string) (*os.File, error) {
	if f, ok := w.files[port]; ok {
		return f, nil
	}
	f, err := w.open(fileName(port))
	if err != nil {
		return nil, err
	}
	w.files[port] = f
	return f, nil
}

func (w *Writer) open(name string) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", name, err)
	}
	return f, nil
}

// fileName maps a port name to a safe log file name.
func fileName(port string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(port) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String() + ".log"
}
