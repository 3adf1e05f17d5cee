package serial

import (
	"testing"
	"time"
)

func TestBackoff_Doubling(t *testing.T) {
	b := Backoff{Min: time.Second, Max: 8 * time.Second, Multiplier: 2}
	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second,
	}
	for attempt, w := range want {
		if got := b.Delay(attempt); got != w {
			t.Errorf("Delay(%d) = %s, want %s", attempt, got, w)
		}
	}
}

func TestBackoff_ZeroValueUsesDefaults(t *testing.T) {
	var b Backoff
	if got := b.Delay(0); got != DefaultBackoff.Min {
		t.Fatalf("Delay(0) = %s, want %s", got, DefaultBackoff.Min)
	}
	if got := b.Delay(10); got != DefaultBackoff.Max {
		t.Fatalf("Delay(10) = %s, want %s", got, DefaultBackoff.Max)
	}
}
