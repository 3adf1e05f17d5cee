package serial

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
)

func testHub(t *testing.T, configs []PortConfig, open OpenFunc) *Hub {
	t.Helper()
	hub, err := NewHub(configs, HubOptions{Open: open, Backoff: testBackoff})
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub
}

func TestNewHub_RejectsDuplicates(t *testing.T) {
	_, err := NewHub([]PortConfig{
		{Name: "GPS", Path: "/dev/ttyUSB0"},
		{Name: "GPS", Path: "/dev/ttyUSB1"},
	}, HubOptions{})
	if err == nil {
		t.Fatal("expected error for duplicate name")
	}

	_, err = NewHub([]PortConfig{
		{Name: "GPS", Path: "/dev/ttyUSB0"},
		{Name: "MODEM", Path: "/dev/ttyUSB0"},
	}, HubOptions{})
	if err == nil {
		t.Fatal("expected error for duplicate path")
	}
}

func TestHub_ConnectIsIdempotent(t *testing.T) {
	conns := make(chan *fakeConn, 4)
	open := func(PortConfig) (io.ReadWriteCloser, error) {
		c := newFakeConn()
		conns <- c
		return c, nil
	}
	hub := testHub(t, []PortConfig{{Name: "GPS", Path: "/dev/fake0"}}, open)

	if err := hub.Connect("GPS"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := hub.Connect("GPS"); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	waitFor(t, "one live connection", func() bool { return len(conns) == 1 })
	if len(conns) != 1 {
		t.Fatalf("opened %d connections, want 1", len(conns))
	}
}

func TestHub_ConnectUnknownPort(t *testing.T) {
	hub := testHub(t, []PortConfig{{Name: "GPS", Path: "/dev/fake0"}}, nil)
	if err := hub.Connect("NOPE"); !errors.Is(err, ErrPortNotFound) {
		t.Fatalf("Connect unknown = %v, want ErrPortNotFound", err)
	}
}

func TestHub_DisconnectUnknownIsNoOp(t *testing.T) {
	hub := testHub(t, []PortConfig{{Name: "GPS", Path: "/dev/fake0"}}, nil)
	hub.Disconnect("NOPE")
	hub.Disconnect("GPS") // configured but never connected
}

func TestHub_SendAppendsLineEndingAndRoutes(t *testing.T) {
	conn := newFakeConn()
	open := func(PortConfig) (io.ReadWriteCloser, error) { return conn, nil }
	hub := testHub(t, []PortConfig{
		{Name: "GPS", Path: "/dev/fake0", LineEnding: "crlf"},
		{Name: "MODEM", Path: "/dev/fake1"},
	}, open)

	if err := hub.Connect("GPS"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitFor(t, "streaming state", func() bool {
		for _, p := range hub.Ports() {
			if p.Config.Name == "GPS" && p.Connected() {
				return true
			}
		}
		return false
	})

	err := hub.Send(context.Background(), []string{"GPS", "MODEM"}, []byte("AT"))
	var route *RouteError
	if !errors.As(err, &route) {
		t.Fatalf("Send = %v, want *RouteError", err)
	}
	if !reflect.DeepEqual(route.Unknown, []string{"MODEM"}) {
		t.Fatalf("Unknown = %q, want [MODEM]", route.Unknown)
	}

	// Delivery to the live port still happened, with its ending.
	waitFor(t, "payload on GPS", func() bool {
		for _, w := range conn.Written() {
			if string(w) == "AT\r\n" {
				return true
			}
		}
		return false
	})
}

func TestHub_PortsSnapshotOrder(t *testing.T) {
	hub := testHub(t, []PortConfig{
		{Name: "GPS", Path: "/dev/fake0"},
		{Name: "MODEM", Path: "/dev/fake1"},
		{Name: "PLC", Path: "/dev/fake2"},
	}, nil)

	var names []string
	for _, p := range hub.Ports() {
		names = append(names, p.Config.Name)
	}
	want := []string{"GPS", "MODEM", "PLC"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("port order = %q, want %q", names, want)
	}
}
