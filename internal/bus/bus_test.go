package bus

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conways-glider/aether-db/internal/protocol"
)

func env(n int) protocol.BroadcastMessage {
	return protocol.BroadcastMessage{
		ClientID: "sender",
		Channel:  "news",
		Message:  fmt.Sprintf("msg-%d", n),
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := New(8)
	err := b.Publish(env(1))
	assert.ErrorIs(t, err, ErrNoSubscribers)
}

func TestFanOut(t *testing.T) {
	b := New(8)
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer s1.Close()
	defer s2.Close()

	require.NoError(t, b.Publish(env(1)))
	require.NoError(t, b.Publish(env(2)))

	for _, s := range []*Subscriber{s1, s2} {
		assert.Equal(t, "msg-1", (<-s.C()).Message)
		assert.Equal(t, "msg-2", (<-s.C()).Message)
	}
	assert.Equal(t, 2, b.Subscribers())
}

func TestOverflowDropsOldest(t *testing.T) {
	b := New(2)
	s := b.Subscribe()
	defer s.Close()

	for n := 1; n <= 4; n++ {
		require.NoError(t, b.Publish(env(n)))
	}

	assert.Equal(t, "msg-3", (<-s.C()).Message)
	assert.Equal(t, "msg-4", (<-s.C()).Message)
	assert.Equal(t, uint64(2), s.Lagged())
	assert.Equal(t, uint64(0), s.Lagged(), "lag counter resets after read")
}

func TestCloseUnregisters(t *testing.T) {
	b := New(8)
	s := b.Subscribe()
	s.Close()

	assert.Equal(t, 0, b.Subscribers())
	assert.ErrorIs(t, b.Publish(env(1)), ErrNoSubscribers)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := New(1)
	slow := b.Subscribe()
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := 1; n <= 100; n++ {
			_ = b.Publish(env(n))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}
