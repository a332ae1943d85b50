// Package bus implements the process-wide broadcast fabric: one
// multi-producer bus fanned out to per-subscriber bounded backlogs. Publish
// never blocks; a subscriber whose backlog is full loses its oldest
// envelopes and learns how many on its next receive.
package bus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/conways-glider/aether-db/internal/protocol"
)

// ErrNoSubscribers is returned by Publish when no session is subscribed.
var ErrNoSubscribers = errors.New("bus: no subscribers")

// Bus fans broadcast envelopes out to every current subscriber.
type Bus struct {
	capacity int

	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// New creates a bus whose subscribers each hold a backlog of capacity
// envelopes.
func New(capacity int) *Bus {
	return &Bus{capacity: capacity, subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new receiver with its own backlog.
func (b *Bus) Subscribe() *Subscriber {
	s := &Subscriber{
		bus: b,
		ch:  make(chan protocol.BroadcastMessage, b.capacity),
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Publish delivers env to every current subscriber without blocking.
func (b *Bus) Publish(env protocol.BroadcastMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.subs) == 0 {
		return ErrNoSubscribers
	}
	for s := range b.subs {
		s.push(env)
	}
	return nil
}

// Subscribers reports the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Subscriber is one receiver handle. At most one goroutine may receive from
// it; any number of publishers may push concurrently.
type Subscriber struct {
	bus     *Bus
	ch      chan protocol.BroadcastMessage
	dropped atomic.Uint64
}

// C is the receive channel for the subscriber's backlog.
func (s *Subscriber) C() <-chan protocol.BroadcastMessage { return s.ch }

// Lagged returns and resets the number of envelopes dropped from this
// subscriber's backlog since the previous call.
func (s *Subscriber) Lagged() uint64 { return s.dropped.Swap(0) }

// Close unregisters the subscriber. The backlog channel is deliberately not
// closed so concurrent publishers stay safe; anything still queued is left
// to the garbage collector.
func (s *Subscriber) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
}

// push enqueues env, evicting the oldest queued envelope when the backlog is
// full. Each loop iteration either enqueues or frees a slot, so it
// terminates even with publishers racing.
func (s *Subscriber) push(env protocol.BroadcastMessage) {
	for {
		select {
		case s.ch <- env:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
		}
	}
}
