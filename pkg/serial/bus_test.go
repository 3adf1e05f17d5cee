package serial

import (
	"fmt"
	"testing"
	"time"
)

func TestBus_FanOutPreservesOrder(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(16)
	b := bus.Subscribe(16)
	defer a.Cancel()
	defer b.Cancel()

	for i := 0; i < 5; i++ {
		bus.Publish(LineEvent{Port: "GPS", Text: fmt.Sprintf("line %d", i)})
	}

	for _, sub := range []*Subscription{a, b} {
		for i := 0; i < 5; i++ {
			select {
			case ev := <-sub.Events():
				want := fmt.Sprintf("line %d", i)
				if ev.Text != want {
					t.Fatalf("event %d = %q, want %q", i, ev.Text, want)
				}
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for event")
			}
		}
	}
}

func TestBus_DropOldestWhenFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(2)
	defer sub.Cancel()

	for i := 0; i < 5; i++ {
		bus.Publish(LineEvent{Text: fmt.Sprintf("line %d", i)})
	}

	// The two newest events survive; the rest were dropped.
	for _, want := range []string{"line 3", "line 4"} {
		ev := <-sub.Events()
		if ev.Text != want {
			t.Fatalf("got %q, want %q", ev.Text, want)
		}
	}
	if got := sub.Dropped(); got != 3 {
		t.Fatalf("Dropped() = %d, want 3", got)
	}
}

func TestBus_CancelStopsDelivery(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(4)
	sub.Cancel()
	sub.Cancel() // idempotent

	// Publishing after cancel must not panic on the closed channel.
	bus.Publish(LineEvent{Text: "late"})

	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected closed event channel")
	}
}
