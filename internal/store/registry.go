package store

import "sync"

// SubscriptionOptions control delivery of a client's own broadcasts back to
// the client itself.
type SubscriptionOptions struct {
	SubscribeToSelf bool
}

// Registry is the process-wide, authoritative client_id → channel → options
// mapping. Subscriptions are keyed by client id, not by connection, so they
// survive reconnects under the same id. Sessions seed a local cache from
// Snapshot at upgrade and keep it in lock-step with every
// subscribe/unsubscribe command.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]map[string]SubscriptionOptions
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]map[string]SubscriptionOptions)}
}

// Add upserts one subscription.
func (r *Registry) Add(clientID, channel string, opts SubscriptionOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chans := r.subs[clientID]
	if chans == nil {
		chans = make(map[string]SubscriptionOptions)
		r.subs[clientID] = chans
	}
	chans[channel] = opts
}

// Remove deletes one subscription. Removing an absent one is a no-op.
func (r *Registry) Remove(clientID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chans := r.subs[clientID]
	delete(chans, channel)
	if len(chans) == 0 {
		delete(r.subs, clientID)
	}
}

// Snapshot returns a point-in-time copy of a client's subscriptions, safe
// for the caller to own and mutate.
func (r *Registry) Snapshot(clientID string) map[string]SubscriptionOptions {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]SubscriptionOptions, len(r.subs[clientID]))
	for ch, opts := range r.subs[clientID] {
		out[ch] = opts
	}
	return out
}

// Clear removes every subscription held for clientID.
func (r *Registry) Clear(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, clientID)
}
