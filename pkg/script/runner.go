package script

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"serialtui/pkg/serial"
)

// ErrScriptRunning is returned by Run while a previous script is
// still executing. One script owns the ports at a time.
var ErrScriptRunning = errors.New("a script is already running")

// Runner starts and supervises script executions against a Host.
type Runner struct {
	host   Host
	notify serial.Notifier

	mu      sync.Mutex
	current *Handle
}

func NewRunner(host Host, notify serial.Notifier) *Runner {
	return &Runner{host: host, notify: notify}
}

// Handle tracks one script run.
type Handle struct {
	ID     uuid.UUID
	Name   string
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Abort cancels the run. Safe to call more than once, and after the
// run has finished.
func (h *Handle) Abort() {
	h.cancel()
}

// Done is closed when the run has fully finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the run's outcome: nil, ErrAborted, or the failure.
// Only meaningful after Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Handle) shortID() string {
	return h.ID.String()[:8]
}

// Run parses source and, if it is well formed and nothing else is
// running, starts it in a goroutine. Parse failures surface here so
// a broken script never claims the single run slot. name is used in
// lifecycle notifications; empty is fine.
func (r *Runner) Run(name, source string) (*Handle, error) {
	prog, err := Parse(source)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		select {
		case <-r.current.done:
		default:
			return nil, ErrScriptRunning
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		ID:     uuid.New(),
		Name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.current = h

	r.notify.Notify(serial.LevelInfo, "script", "run %s: %s started", h.shortID(), displayName(name))
	go r.execute(ctx, h, prog)
	return h, nil
}

func (r *Runner) execute(ctx context.Context, h *Handle, prog *Program) {
	defer close(h.done)
	defer h.cancel()

	err := NewInterp(r.host, r.notify).Run(ctx, prog)

	h.mu.Lock()
	h.err = err
	h.mu.Unlock()

	name := displayName(h.Name)
	switch {
	case err == nil:
		r.notify.Notify(serial.LevelInfo, "script", "run %s: %s finished", h.shortID(), name)
	case errors.Is(err, ErrAborted):
		r.notify.Notify(serial.LevelWarn, "script", "run %s: %s aborted", h.shortID(), name)
	default:
		r.notify.Notify(serial.LevelError, "script", "run %s: %s failed: %v", h.shortID(), name, err)
	}
}

// Abort cancels the active run, if any.
func (r *Runner) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.Abort()
	}
}

// Running reports whether a script is currently executing.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return false
	}
	select {
	case <-r.current.done:
		return false
	default:
		return true
	}
}

// Current returns the handle of the active run, or nil.
func (r *Runner) Current() *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	select {
	case <-r.current.done:
		return nil
	default:
		return r.current
	}
}

func displayName(name string) string {
	if name == "" {
		return "script"
	}
	return name
}
