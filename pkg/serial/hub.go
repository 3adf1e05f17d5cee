package serial

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrPortNotFound is returned by Connect for a name that is not in
// the configured port table.
var ErrPortNotFound = errors.New("port not configured")

// RouteError reports Send targets that had no live session. Delivery
// to the remaining targets still happened; the error is informational.
type RouteError struct {
	Unknown []string
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("no session for port(s): %s", strings.Join(e.Unknown, ", "))
}

// PortStatus is a snapshot of one configured port for display.
type PortStatus struct {
	Config  PortConfig
	State   State
	RetryIn time.Duration
}

// Connected reports whether the port currently has a live stream.
func (p PortStatus) Connected() bool {
	return p.State == StateStreaming
}

// HubOptions configures a Hub. Zero values are usable: default
// opener, default backoff, default subscriber buffers, no notifier.
type HubOptions struct {
	Notify  Notifier
	Open    OpenFunc
	Backoff Backoff
}

// Hub is the single authority over which sessions exist. The
// registry is mutated only inside the hub goroutine, which serves
// commands from a channel; callers interact through methods that
// post commands and wait for replies. Received lines fan out through
// the hub's bus.
type Hub struct {
	bus     *Bus
	notify  Notifier
	open    OpenFunc
	backoff Backoff

	configs map[string]PortConfig
	order   []string

	cmds chan hubCmd
	done chan struct{}
}

type hubCmd interface{ isHubCmd() }

type connectCmd struct {
	name  string
	reply chan error
}

type disconnectCmd struct {
	name  string
	reply chan struct{}
}

type lookupCmd struct {
	names []string
	reply chan lookupResult
}

type lookupResult struct {
	sessions []*Session
	unknown  []string
}

type snapshotCmd struct {
	reply chan []PortStatus
}

func (connectCmd) isHubCmd()    {}
func (disconnectCmd) isHubCmd() {}
func (lookupCmd) isHubCmd()     {}
func (snapshotCmd) isHubCmd()   {}

// NewHub builds a hub over the given port table. Port names and paths
// must be unique; duplicates are a configuration error.
func NewHub(configs []PortConfig, opts HubOptions) (*Hub, error) {
	byName := make(map[string]PortConfig, len(configs))
	byPath := make(map[string]string, len(configs))
	order := make([]string, 0, len(configs))

	for _, cfg := range configs {
		cfg = cfg.WithDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byName[cfg.Name]; dup {
			return nil, fmt.Errorf("duplicate port name %q", cfg.Name)
		}
		if owner, dup := byPath[cfg.Path]; dup {
			return nil, fmt.Errorf("ports %q and %q share path %q", owner, cfg.Name, cfg.Path)
		}
		byName[cfg.Name] = cfg
		byPath[cfg.Path] = cfg.Name
		order = append(order, cfg.Name)
	}

	return &Hub{
		bus:     NewBus(),
		notify:  opts.Notify,
		open:    opts.Open,
		backoff: opts.Backoff,
		configs: byName,
		order:   order,
		cmds:    make(chan hubCmd),
		done:    make(chan struct{}),
	}, nil
}

// Run serves commands until ctx is cancelled, then tears down every
// live session. Call it in its own goroutine; all other methods are
// safe to use while Run is active.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	sessions := make(map[string]*Session)
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-h.cmds:
			switch c := cmd.(type) {
			case connectCmd:
				c.reply <- h.handleConnect(sessions, c.name)
			case disconnectCmd:
				if s, ok := sessions[c.name]; ok {
					delete(sessions, c.name)
					s.Close()
					h.notify.Notify(LevelInfo, "hub", "disconnected %s", c.name)
				}
				c.reply <- struct{}{}
			case lookupCmd:
				var res lookupResult
				for _, name := range c.names {
					if s, ok := sessions[name]; ok {
						res.sessions = append(res.sessions, s)
					} else {
						res.unknown = append(res.unknown, name)
					}
				}
				c.reply <- res
			case snapshotCmd:
				statuses := make([]PortStatus, 0, len(h.order))
				for _, name := range h.order {
					st := PortStatus{Config: h.configs[name]}
					if s, ok := sessions[name]; ok {
						st.State, st.RetryIn = s.Status()
					}
					statuses = append(statuses, st)
				}
				c.reply <- statuses
			}
		}
	}
}

func (h *Hub) handleConnect(sessions map[string]*Session, name string) error {
	if _, ok := sessions[name]; ok {
		// Duplicate Connect is a no-op.
		return nil
	}
	cfg, ok := h.configs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrPortNotFound, name)
	}
	s := newSession(cfg, h.bus, h.notify, h.open, h.backoff)
	sessions[name] = s
	s.start()
	return nil
}

// Done is closed once Run has returned and all sessions are released.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Connect opens a session for a configured port. Idempotent: a second
// Connect for a live port does nothing. Open failures are not errors
// here — the session retries with backoff and reports via
// notifications.
func (h *Hub) Connect(name string) error {
	reply := make(chan error, 1)
	select {
	case h.cmds <- connectCmd{name: name, reply: reply}:
		return <-reply
	case <-h.done:
		return ErrSessionClosed
	}
}

// ConnectAll connects every configured port, reporting per-port
// failures through the notifier rather than aborting.
func (h *Hub) ConnectAll() {
	for _, name := range h.order {
		if err := h.Connect(name); err != nil {
			h.notify.Notify(LevelError, "hub", "connect %s: %v", name, err)
		}
	}
}

// Disconnect tears down the named session. Unknown names are a no-op.
func (h *Hub) Disconnect(name string) {
	reply := make(chan struct{}, 1)
	select {
	case h.cmds <- disconnectCmd{name: name, reply: reply}:
		<-reply
	case <-h.done:
	}
}

// Send enqueues data on every named port with a live session, with
// each port's configured line ending appended. Targets without a
// session are collected into a *RouteError; delivery to the rest is
// unaffected. A full outbound queue blocks the caller (bounded by
// ctx), never the hub itself.
func (h *Hub) Send(ctx context.Context, names []string, data []byte) error {
	reply := make(chan lookupResult, 1)
	select {
	case h.cmds <- lookupCmd{names: names, reply: reply}:
	case <-h.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	res := <-reply

	unknown := res.unknown
	for _, s := range res.sessions {
		payload := make([]byte, 0, len(data)+2)
		payload = append(payload, data...)
		payload = append(payload, s.Config().Ending().Bytes()...)
		if err := s.Enqueue(ctx, payload); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				// Disconnected between lookup and enqueue.
				unknown = append(unknown, s.Config().Name)
				continue
			}
			return err
		}
	}

	if len(unknown) > 0 {
		return &RouteError{Unknown: unknown}
	}
	return nil
}

// Subscribe registers a LineEvent subscriber on the hub's bus.
func (h *Hub) Subscribe(buffer int) *Subscription {
	return h.bus.Subscribe(buffer)
}

// Ports returns a status snapshot of every configured port in
// declaration order.
func (h *Hub) Ports() []PortStatus {
	reply := make(chan []PortStatus, 1)
	select {
	case h.cmds <- snapshotCmd{reply: reply}:
		return <-reply
	case <-h.done:
		return nil
	}
}

// PortNames returns the configured port names in declaration order.
func (h *Hub) PortNames() []string {
	return append([]string(nil), h.order...)
}
