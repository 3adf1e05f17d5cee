package serial

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeConn is a scriptable port: reads are fed through a channel and
// writes are recorded. Close unblocks a pending Read, matching how a
// real descriptor behaves when torn down.
type fakeConn struct {
	reads chan []byte

	mu     sync.Mutex
	writes [][]byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads:  make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Read(p []byte) (int, error) {
	select {
	case data, ok := <-c.reads:
		if !ok {
			return 0, io.EOF
		}
		return copy(p, data), nil
	case <-c.closed:
		return 0, errors.New("use of closed connection")
	}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, errors.New("use of closed connection")
	default:
	}
	c.mu.Lock()
	c.writes = append(c.writes, append([]byte(nil), p...))
	c.mu.Unlock()
	return len(p), nil
}

func (c *fakeConn) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

var testBackoff = Backoff{Min: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 2}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSession_StreamsFramedLines(t *testing.T) {
	conn := newFakeConn()
	bus := NewBus()
	sub := bus.Subscribe(16)
	defer sub.Cancel()

	cfg := PortConfig{Name: "GPS", Path: "/dev/fake0"}
	open := func(PortConfig) (io.ReadWriteCloser, error) { return conn, nil }
	s := newSession(cfg, bus, nil, open, testBackoff)
	s.start()
	defer s.Close()

	conn.reads <- []byte("$GPGGA,1\r\n$GPG")
	conn.reads <- []byte("SA,2\r\n")

	for _, want := range []string{"$GPGGA,1", "$GPGSA,2"} {
		select {
		case ev := <-sub.Events():
			if ev.Text != want || ev.Port != "GPS" {
				t.Fatalf("event = %q on %q, want %q on GPS", ev.Text, ev.Port, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestSession_ReconnectsAfterFailure(t *testing.T) {
	var opens atomic.Int64
	open := func(PortConfig) (io.ReadWriteCloser, error) {
		if opens.Add(1) == 1 {
			return nil, errors.New("device busy")
		}
		return newFakeConn(), nil
	}

	s := newSession(PortConfig{Name: "MODEM", Path: "/dev/fake1"}, NewBus(), nil, open, testBackoff)
	s.start()
	defer s.Close()

	waitFor(t, "second open attempt", func() bool { return opens.Load() >= 2 })
	waitFor(t, "streaming state", func() bool {
		state, _ := s.Status()
		return state == StateStreaming
	})
}

func TestSession_BackoffResetsAfterSuccess(t *testing.T) {
	bo := Backoff{Min: 10 * time.Millisecond, Max: 80 * time.Millisecond, Multiplier: 2}

	// The third open succeeds but the device disconnects immediately.
	eof := newFakeConn()
	close(eof.reads)

	var opens atomic.Int64
	open := func(PortConfig) (io.ReadWriteCloser, error) {
		if opens.Add(1) == 3 {
			return eof, nil
		}
		return nil, errors.New("device busy")
	}

	var mu sync.Mutex
	var retries []string
	notify := Notifier(func(n Notification) {
		if strings.HasPrefix(n.Message, "retrying in ") {
			mu.Lock()
			retries = append(retries, strings.TrimPrefix(n.Message, "retrying in "))
			mu.Unlock()
		}
	})

	s := newSession(PortConfig{Name: "GPS", Path: "/dev/fake5"}, NewBus(), notify, open, bo)
	s.start()
	defer s.Close()

	waitFor(t, "three retry delays", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(retries) >= 3
	})

	mu.Lock()
	got := append([]string(nil), retries[:3]...)
	mu.Unlock()
	// Two failures escalate the delay; the success in between resets
	// it, so the post-success failure waits the minimum again.
	want := []string{"10ms", "20ms", "10ms"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("retry delays = %v, want %v", got, want)
		}
	}
}

func TestSession_CloseUnblocksRead(t *testing.T) {
	conn := newFakeConn()
	open := func(PortConfig) (io.ReadWriteCloser, error) { return conn, nil }

	s := newSession(PortConfig{Name: "GPS", Path: "/dev/fake2"}, NewBus(), nil, open, testBackoff)
	s.start()
	waitFor(t, "streaming state", func() bool {
		state, _ := s.Status()
		return state == StateStreaming
	})

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return while Read was pending")
	}
}

func TestSession_EnqueueAfterCloseFails(t *testing.T) {
	conn := newFakeConn()
	open := func(PortConfig) (io.ReadWriteCloser, error) { return conn, nil }

	s := newSession(PortConfig{Name: "GPS", Path: "/dev/fake3"}, NewBus(), nil, open, testBackoff)
	s.start()
	s.Close()

	err := s.Enqueue(context.Background(), []byte("late"))
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Enqueue after close = %v, want ErrSessionClosed", err)
	}
}

func TestSession_WritesEnqueuedData(t *testing.T) {
	conn := newFakeConn()
	open := func(PortConfig) (io.ReadWriteCloser, error) { return conn, nil }

	s := newSession(PortConfig{Name: "GPS", Path: "/dev/fake4"}, NewBus(), nil, open, testBackoff)
	s.start()
	defer s.Close()

	waitFor(t, "streaming state", func() bool {
		state, _ := s.Status()
		return state == StateStreaming
	})
	if err := s.Enqueue(context.Background(), []byte("PING\n")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitFor(t, "write to reach the port", func() bool {
		for _, w := range conn.Written() {
			if string(w) == "PING\n" {
				return true
			}
		}
		return false
	})
}
