package serial

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ErrSessionClosed is returned by Enqueue after the session has been
// torn down by Disconnect.
var ErrSessionClosed = errors.New("session closed")

// State describes a session's connection lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateBackoff
)

// String returns a short label for status displays.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateBackoff:
		return "backoff"
	default:
		return "idle"
	}
}

// OpenFunc opens the device behind a port config. The default opener
// uses the serial transport; tests and demo mode substitute their own.
type OpenFunc func(cfg PortConfig) (io.ReadWriteCloser, error)

// Open is the default OpenFunc.
func Open(cfg PortConfig) (io.ReadWriteCloser, error) {
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}
	return serial.Open(cfg.Path, mode)
}

// outboundQueueSize bounds the per-session write queue. A full queue
// blocks further Enqueue calls (backpressure) instead of dropping.
const outboundQueueSize = 32

// Session owns one device connection: it reads bytes, frames them
// into LineEvents on the bus, drains an outbound queue to the device,
// and reconnects with backoff after any failure until told to stop.
// All fields are owned by the session goroutine except the small
// status snapshot guarded by mu.
type Session struct {
	cfg     PortConfig
	bus     *Bus
	notify  Notifier
	open    OpenFunc
	backoff Backoff

	out    chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   State
	retryIn time.Duration
}

// newSession wires a session but does not start it; the hub calls
// start after registering it.
func newSession(cfg PortConfig, bus *Bus, notify Notifier, open OpenFunc, backoff Backoff) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	if open == nil {
		open = Open
	}
	return &Session{
		cfg:     cfg.WithDefaults(),
		bus:     bus,
		notify:  notify,
		open:    open,
		backoff: backoff,
		out:     make(chan []byte, outboundQueueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

func (s *Session) start() {
	go s.run()
}

// Config returns the immutable port config this session was opened with.
func (s *Session) Config() PortConfig {
	return s.cfg
}

// Status reports the current state and, in StateBackoff, the delay
// being waited out.
func (s *Session) Status() (State, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.retryIn
}

// Enqueue places data on the outbound queue. It blocks while the
// queue is full (backpressure) until ctx is cancelled or the session
// closes. The data slice must not be modified after the call.
func (s *Session) Enqueue(ctx context.Context, data []byte) error {
	select {
	case s.out <- data:
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the session down promptly: the read loop is unblocked
// by closing the device and the goroutine exits. Blocks until done.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

// Done is closed when the session goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) setState(st State, retryIn time.Duration) {
	s.mu.Lock()
	s.state = st
	s.retryIn = retryIn
	s.mu.Unlock()
}

// run is the session goroutine: open, stream until failure, back off,
// retry, forever — until the context is cancelled.
func (s *Session) run() {
	defer close(s.done)
	defer s.setState(StateIdle, 0)

	attempt := 0
	for {
		if s.ctx.Err() != nil {
			return
		}

		s.setState(StateConnecting, 0)
		conn, err := s.open(s.cfg)
		if err == nil {
			attempt = 0
			s.notify.Notify(LevelInfo, s.cfg.Name, "connected (%s @ %d)", s.cfg.Path, s.cfg.BaudRate)
			s.setState(StateStreaming, 0)

			streamErr := s.stream(conn)
			conn.Close()
			if s.ctx.Err() != nil {
				return
			}
			s.notify.Notify(LevelWarn, s.cfg.Name, "disconnected: %v", streamErr)
		} else {
			if s.ctx.Err() != nil {
				return
			}
			s.notify.Notify(LevelWarn, s.cfg.Name, "open %s: %v", s.cfg.Path, err)
		}

		delay := s.backoff.Delay(attempt)
		attempt++
		s.setState(StateBackoff, delay)
		s.notify.Notify(LevelInfo, s.cfg.Name, "retrying in %s", delay)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-s.ctx.Done():
			timer.Stop()
			return
		}
	}
}

// stream runs the read loop on conn and a writer goroutine draining
// the outbound queue. Returns the error that ended the stream; EOF
// counts as a disconnection. conn is closed by the caller; the writer
// and the cancellation watcher may close it early to unblock Read.
func (s *Session) stream(conn io.ReadWriteCloser) error {
	streamDone := make(chan struct{})
	defer close(streamDone)

	// A cancelled session must not stay wedged in conn.Read.
	go func() {
		select {
		case <-s.ctx.Done():
			conn.Close()
		case <-streamDone:
		}
	}()

	writeErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-streamDone:
				return
			case <-s.ctx.Done():
				return
			case data := <-s.out:
				if _, err := conn.Write(data); err != nil {
					writeErr <- err
					conn.Close()
					return
				}
				// Push the bytes out now rather than letting a
				// buffering layer delay a partial line.
				if d, ok := conn.(interface{ Drain() error }); ok {
					_ = d.Drain()
				}
			}
		}
	}()

	framer := &lineFramer{}
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			now := time.Now()
			for _, line := range framer.push(buf[:n]) {
				s.bus.Publish(LineEvent{
					Timestamp: now,
					Port:      s.cfg.Name,
					Path:      s.cfg.Path,
					Text:      line,
				})
			}
		}
		if err != nil {
			if line, ok := framer.flush(); ok {
				s.bus.Publish(LineEvent{
					Timestamp: time.Now(),
					Port:      s.cfg.Name,
					Path:      s.cfg.Path,
					Text:      line,
				})
			}
			select {
			case werr := <-writeErr:
				return werr
			default:
			}
			if err == io.EOF {
				return errors.New("end of stream")
			}
			return err
		}
		if n == 0 {
			// Some transports report read timeouts as (0, nil).
			continue
		}
	}
}
