package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conways-glider/aether-db/internal/protocol"
	"github.com/conways-glider/aether-db/internal/store"
)

func TestShouldDeliver(t *testing.T) {
	c := &session{
		clientID: "me",
		subs: map[string]store.SubscriptionOptions{
			"news": {},
			"echo": {SubscribeToSelf: true},
		},
	}

	cases := []struct {
		name string
		env  protocol.BroadcastMessage
		want bool
	}{
		{"subscribed, other sender", protocol.BroadcastMessage{ClientID: "them", Channel: "news"}, true},
		{"subscribed, own message filtered", protocol.BroadcastMessage{ClientID: "me", Channel: "news"}, false},
		{"self delivery opted in", protocol.BroadcastMessage{ClientID: "me", Channel: "echo"}, true},
		{"not subscribed", protocol.BroadcastMessage{ClientID: "them", Channel: "sports"}, false},
		{"global bypasses subscriptions", protocol.BroadcastMessage{ClientID: "them", Channel: "global"}, true},
		{"global includes own messages", protocol.BroadcastMessage{ClientID: "me", Channel: "global"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.shouldDeliver(tc.env))
		})
	}
}

func TestExpiryFromSeconds(t *testing.T) {
	t.Run("nil means no expiry", func(t *testing.T) {
		assert.Nil(t, expiryFromSeconds(nil))
	})

	t.Run("relative to now", func(t *testing.T) {
		secs := uint32(60)
		before := time.Now().UTC()
		expiry := expiryFromSeconds(&secs)
		after := time.Now().UTC()

		require.NotNil(t, expiry)
		assert.False(t, expiry.Before(before.Add(60*time.Second)))
		assert.False(t, expiry.After(after.Add(60*time.Second)))
	})

	t.Run("zero expires immediately", func(t *testing.T) {
		secs := uint32(0)
		expiry := expiryFromSeconds(&secs)
		require.NotNil(t, expiry)
		assert.False(t, expiry.After(time.Now().UTC()))
	})
}
