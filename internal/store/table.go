// Package store holds the server's shared mutable state: the expiring
// key-value Table and the per-client subscription Registry. Both are shared
// by reference across every connection.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/conways-glider/aether-db/internal/protocol"
	"github.com/rs/zerolog"
)

// Table is a concurrent key-value map with per-entry absolute expiry.
// Expiration is lazy-plus-active: Get refuses expired entries immediately,
// and a background reaper removes them, sleeping exactly until the next
// tracked expiry. Inserting a value that expires sooner than anything
// currently tracked wakes the reaper early.
type Table struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	entries map[string]protocol.Value

	// Single-slot wake signal for the reaper. Posts coalesce: the reaper
	// recomputes the next expiry on every cycle, so a missed post is safe.
	wake chan struct{}
}

func NewTable(logger zerolog.Logger) *Table {
	return &Table{
		logger:  logger,
		entries: make(map[string]protocol.Value),
		wake:    make(chan struct{}, 1),
	}
}

// StartReaper runs the expiry loop in a new goroutine until ctx is
// cancelled.
func (t *Table) StartReaper(ctx context.Context) {
	go t.reap(ctx)
}

// Get returns the value for key if it is present and not expired at read
// time. Entries past their expiry but not yet reaped are not returned.
func (t *Table) Get(key string) (protocol.Value, bool) {
	t.mu.RLock()
	v, ok := t.entries[key]
	t.mu.RUnlock()
	if !ok {
		return protocol.Value{}, false
	}
	if v.Expiry != nil && time.Now().UTC().After(*v.Expiry) {
		return protocol.Value{}, false
	}
	return v, true
}

// Set inserts or replaces key, value and expiry together. The reaper is
// woken iff the new expiry precedes the soonest expiry tracked before the
// insert (or there was none).
func (t *Table) Set(key string, value protocol.Value) {
	t.mu.Lock()
	next := t.nextExpiryLocked()
	t.entries[key] = value
	t.mu.Unlock()

	if value.Expiry != nil && (next == nil || value.Expiry.Before(*next)) {
		select {
		case t.wake <- struct{}{}:
		default:
		}
	}
}

// Delete removes key if present.
func (t *Table) Delete(key string) {
	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
}

// Len reports the number of entries, including expired-but-unreaped ones.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Table) nextExpiryLocked() *time.Time {
	var next *time.Time
	for _, v := range t.entries {
		if v.Expiry == nil {
			continue
		}
		if next == nil || v.Expiry.Before(*next) {
			e := *v.Expiry
			next = &e
		}
	}
	return next
}

// removeExpired deletes every strictly expired entry and returns the
// duration until the next expiry. ok is false when no entry has an expiry.
func (t *Table) removeExpired() (d time.Duration, ok bool) {
	now := time.Now().UTC()

	t.mu.Lock()
	removed := 0
	for k, v := range t.entries {
		if v.Expiry != nil && v.Expiry.Before(now) {
			delete(t.entries, k)
			removed++
		}
	}
	next := t.nextExpiryLocked()
	t.mu.Unlock()

	if removed > 0 {
		t.logger.Debug().Int("removed", removed).Msg("Reaped expired entries")
	}
	if next == nil {
		return 0, false
	}
	d = next.Sub(now)
	if d < 0 {
		// Floor to zero; a negative duration must never reach the timer.
		d = 0
	}
	return d, true
}

func (t *Table) reap(ctx context.Context) {
	for {
		d, ok := t.removeExpired()
		if !ok {
			// Nothing scheduled to expire; wait for a Set to wake us.
			select {
			case <-ctx.Done():
				return
			case <-t.wake:
			}
			continue
		}

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		case <-t.wake:
			timer.Stop()
		}
	}
}
