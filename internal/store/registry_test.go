package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddSnapshot(t *testing.T) {
	r := NewRegistry()

	r.Add("alice", "news", SubscriptionOptions{})
	r.Add("alice", "echo", SubscriptionOptions{SubscribeToSelf: true})
	r.Add("bob", "news", SubscriptionOptions{})

	snap := r.Snapshot("alice")
	require.Len(t, snap, 2)
	assert.False(t, snap["news"].SubscribeToSelf)
	assert.True(t, snap["echo"].SubscribeToSelf)

	assert.Len(t, r.Snapshot("bob"), 1)
	assert.Empty(t, r.Snapshot("nobody"))
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	r.Add("alice", "news", SubscriptionOptions{})

	snap := r.Snapshot("alice")
	snap["rogue"] = SubscriptionOptions{}
	delete(snap, "news")

	fresh := r.Snapshot("alice")
	require.Len(t, fresh, 1)
	_, ok := fresh["news"]
	assert.True(t, ok)
}

func TestRegistryDoubleSubscribeUpdatesOptions(t *testing.T) {
	r := NewRegistry()

	r.Add("alice", "news", SubscriptionOptions{})
	r.Add("alice", "news", SubscriptionOptions{SubscribeToSelf: true})

	snap := r.Snapshot("alice")
	require.Len(t, snap, 1)
	assert.True(t, snap["news"].SubscribeToSelf)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()

	r.Add("alice", "news", SubscriptionOptions{})
	r.Remove("alice", "news")
	assert.Empty(t, r.Snapshot("alice"))

	// Removing what is not there is fine.
	r.Remove("alice", "news")
	r.Remove("nobody", "nothing")
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()

	r.Add("alice", "news", SubscriptionOptions{})
	r.Add("alice", "echo", SubscriptionOptions{})
	r.Clear("alice")

	assert.Empty(t, r.Snapshot("alice"))
}
