package server

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/conways-glider/aether-db/internal/bus"
	"github.com/conways-glider/aether-db/internal/metrics"
	"github.com/conways-glider/aether-db/internal/protocol"
	"github.com/conways-glider/aether-db/internal/store"
)

// pingProbe is sent once after upgrade to verify the transport before any
// application traffic.
var pingProbe = []byte{0x01, 0x02, 0x03}

// session is one connected client: a reader goroutine decoding commands, a
// writer goroutine multiplexing command replies, bus deliveries and status
// reports, and a supervisor tying their lifetimes together.
type session struct {
	id       int64
	clientID string
	conn     net.Conn
	server   *Server
	logger   zerolog.Logger

	// Reader to writer pipes. A full commands channel blocks the reader,
	// which is the session's backpressure.
	commands chan protocol.Command
	status   chan protocol.StatusMessage

	// Writer-owned state. sub is the session's bus backlog; subs is the
	// local subscription cache seeded from the registry at startup and
	// updated only by the writer while applying commands.
	sub  *bus.Subscriber
	subs map[string]store.SubscriptionOptions
}

func newSession(id int64, clientID string, conn net.Conn, server *Server) *session {
	return &session{
		id:       id,
		clientID: clientID,
		conn:     conn,
		server:   server,
		logger: server.logger.With().
			Int64("session", id).
			Str("client_id", clientID).
			Logger(),
		commands: make(chan protocol.Command, server.cfg.CommandBuffer),
		status:   make(chan protocol.StatusMessage, server.cfg.StatusBuffer),
	}
}

// run drives the session to completion. Whichever pump exits first triggers
// cancellation of the other; the connection is closed exactly once, after the
// writer has had its chance to send the close frame.
func (c *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	c.subs = c.server.registry.Snapshot(c.clientID)
	c.sub = c.server.bus.Subscribe()
	defer c.sub.Close()

	readerDone := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(readerDone)
		c.readPump(ctx)
	}()
	go func() {
		defer close(writerDone)
		c.writePump(ctx)
	}()

	select {
	case <-readerDone:
		cancel()
		<-writerDone
		c.conn.Close()
	case <-writerDone:
		cancel()
		c.conn.Close()
		<-readerDone
	}

	c.logger.Info().Msg("Session closed")
}

// handleCommand applies one decoded command. Runs on the writer goroutine so
// replies interleave correctly with bus deliveries.
func (c *session) handleCommand(cmd protocol.Command) error {
	metrics.CommandsExecuted.WithLabelValues(cmd.Kind()).Inc()

	switch {
	case cmd.SubscribeBroadcast != nil:
		sub := cmd.SubscribeBroadcast
		opts := store.SubscriptionOptions{SubscribeToSelf: sub.SubscribeToSelf}
		c.subs[sub.Channel] = opts
		c.server.registry.Add(c.clientID, sub.Channel, opts)
		c.logger.Debug().Str("channel", sub.Channel).Bool("subscribe_to_self", sub.SubscribeToSelf).Msg("Subscribed")

	case cmd.UnsubscribeBroadcast != nil:
		channel := *cmd.UnsubscribeBroadcast
		delete(c.subs, channel)
		c.server.registry.Remove(c.clientID, channel)
		c.logger.Debug().Str("channel", channel).Msg("Unsubscribed")

	case cmd.SendBroadcast != nil:
		send := cmd.SendBroadcast
		err := c.server.bus.Publish(protocol.BroadcastMessage{
			ClientID: c.clientID,
			Channel:  send.Channel,
			Message:  send.Message,
		})
		if err != nil {
			c.logger.Warn().Err(err).Str("channel", send.Channel).Msg("Broadcast publish failed")
		} else {
			metrics.BroadcastsPublished.Inc()
		}

	case cmd.Set != nil:
		set := cmd.Set
		c.server.table.Set(set.Key, protocol.Value{
			Data:   set.Value.Data,
			Expiry: expiryFromSeconds(set.Value.Expiry),
		})
		metrics.StoreKeys.Set(float64(c.server.table.Len()))
		return c.send(protocol.StatusOut(protocol.StatusOK()))

	case cmd.Get != nil:
		v, ok := c.server.table.Get(cmd.Get.Key)
		if !ok {
			return c.send(protocol.GetOut(nil))
		}
		return c.send(protocol.GetOut(&v))
	}
	return nil
}

// expiryFromSeconds converts a relative TTL to an absolute instant. A nil
// TTL, or one that overflows past the largest representable time, yields no
// expiry.
func expiryFromSeconds(secs *uint32) *time.Time {
	if secs == nil {
		return nil
	}
	now := time.Now().UTC()
	expiry := now.Add(time.Duration(*secs) * time.Second)
	if *secs > 0 && expiry.Before(now) {
		return nil
	}
	return &expiry
}

// shouldDeliver applies the delivery filter: global always goes through,
// otherwise the session must be subscribed to the channel and must not be
// the sender unless it opted into self-delivery.
func (c *session) shouldDeliver(env protocol.BroadcastMessage) bool {
	if env.Channel == protocol.GlobalChannel {
		return true
	}
	opts, ok := c.subs[env.Channel]
	if !ok {
		return false
	}
	return env.ClientID != c.clientID || opts.SubscribeToSelf
}
