package serial

import (
	"math"
	"time"
)

// Backoff computes the reconnect delay for a failing port session.
// It is a pure policy: the attempt counter lives with the caller and
// resets to zero on any successful connection.
type Backoff struct {
	Min        time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoff yields the sequence 1s, 2s, 4s, 8s, 8s, ...
var DefaultBackoff = Backoff{Min: time.Second, Max: 8 * time.Second, Multiplier: 2}

// Delay returns min(Max, Min * Multiplier^attempt) for attempt >= 0.
// Zero or negative fields fall back to the defaults so a zero Backoff
// is usable.
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Min <= 0 {
		b.Min = DefaultBackoff.Min
	}
	if b.Max <= 0 {
		b.Max = DefaultBackoff.Max
	}
	if b.Multiplier < 1 {
		b.Multiplier = DefaultBackoff.Multiplier
	}
	if attempt < 0 {
		attempt = 0
	}

	d := float64(b.Min) * math.Pow(b.Multiplier, float64(attempt))
	if d >= float64(b.Max) || math.IsInf(d, 1) || math.IsNaN(d) {
		return b.Max
	}
	return time.Duration(d)
}
