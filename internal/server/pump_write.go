package server

import (
	"context"
	"encoding/json"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/conways-glider/aether-db/internal/metrics"
	"github.com/conways-glider/aether-db/internal/protocol"
)

// writePump is the only goroutine that writes to the connection. It probes
// the transport with a ping, announces the client id, then multiplexes three
// sources: decoded commands from the reader, bus deliveries, and status
// reports. Select order between ready sources is random, which keeps the
// sources fair under load.
func (c *session) writePump(ctx context.Context) {
	defer c.sendGoodbye()

	if err := wsutil.WriteServerMessage(c.conn, ws.OpPing, pingProbe); err != nil {
		c.logger.Warn().Err(err).Msg("Initial ping failed")
		return
	}
	if err := c.send(protocol.ClientIDMessage(c.clientID)); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-c.commands:
			if err := c.handleCommand(cmd); err != nil {
				return
			}

		case env := <-c.sub.C():
			if lag := c.sub.Lagged(); lag > 0 {
				metrics.BroadcastsDropped.Add(float64(lag))
				c.logger.Warn().Uint64("dropped", lag).Msg("Broadcast backlog overflowed")
			}
			if !c.shouldDeliver(env) {
				continue
			}
			if err := c.send(protocol.BroadcastOut(env)); err != nil {
				return
			}
			metrics.BroadcastsDelivered.Inc()

		case st := <-c.status:
			if err := c.send(protocol.StatusOut(st)); err != nil {
				return
			}
		}
	}
}

// send encodes and writes one outbound message as a text frame. An encoding
// failure drops the message and keeps the session alive; a transport failure
// ends it.
func (c *session) send(msg protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to encode outbound message")
		return nil
	}
	if err := wsutil.WriteServerMessage(c.conn, ws.OpText, data); err != nil {
		c.logger.Warn().Err(err).Msg("Write failed")
		return err
	}
	metrics.MessagesSent.Inc()
	return nil
}

// sendGoodbye attempts a normal close frame. Failure here usually just means
// the peer is already gone.
func (c *session) sendGoodbye() {
	frame := ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "Goodbye"))
	if err := ws.WriteFrame(c.conn, frame); err != nil {
		c.logger.Debug().Err(err).Msg("Could not send close frame, most likely okay")
	}
}
