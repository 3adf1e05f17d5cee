package serial

import (
	"sync"
	"sync/atomic"
)

// DefaultSubscriberBuffer is the per-subscriber queue capacity used
// when Subscribe is called with a non-positive buffer size.
const DefaultSubscriberBuffer = 256

// Bus fans LineEvents out to subscribers. Each subscriber owns a
// bounded queue; when a queue is full the oldest event is dropped to
// make room, so a stalled consumer loses history but can never block
// a producer or another consumer. Events from one port reach each
// subscriber in production order.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a new subscriber with the given queue capacity
// (DefaultSubscriberBuffer if buffer <= 0). The caller must consume
// Events() and Cancel() when done.
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:  b.nextID,
		bus: b,
		ch:  make(chan LineEvent, buffer),
	}
	b.subs[sub.id] = sub
	return sub
}

// Publish delivers ev to every current subscriber. It never blocks:
// a full subscriber queue sheds its oldest event first. The lock is
// held only around non-blocking channel operations.
func (b *Bus) Publish(ev LineEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
			continue
		default:
		}
		// Queue full: drop the oldest, then retry once. The second
		// send can still lose to a racing consumer, in which case the
		// queue has room anyway.
		select {
		case <-sub.ch:
			sub.dropped.Add(1)
		default:
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Subscription is one subscriber's private queue on a Bus.
type Subscription struct {
	id      uint64
	bus     *Bus
	ch      chan LineEvent
	dropped atomic.Uint64
	once    sync.Once
}

// Events returns the receive channel. It is closed by Cancel.
func (s *Subscription) Events() <-chan LineEvent {
	return s.ch
}

// Dropped reports how many events were shed because this subscriber
// lagged behind the producers.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Cancel removes the subscription from the bus and closes the events
// channel. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		close(s.ch)
		s.bus.mu.Unlock()
	})
}
