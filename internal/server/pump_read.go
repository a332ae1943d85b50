package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/conways-glider/aether-db/internal/metrics"
	"github.com/conways-glider/aether-db/internal/protocol"
)

// readPump reads data frames off the connection and decodes them into
// commands for the writer. Control frames (ping, pong, close) are handled
// inside ReadClientData. Decode failures produce a status error without
// ending the session; a full commands channel blocks the reader, which is the
// intended backpressure.
func (c *session) readPump(ctx context.Context) {
	for {
		data, op, err := wsutil.ReadClientData(c.conn)
		if err != nil {
			var closed wsutil.ClosedError
			switch {
			case errors.As(err, &closed):
				c.logger.Debug().
					Int("code", int(closed.Code)).
					Str("reason", closed.Reason).
					Msg("Client closed connection")
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				c.logger.Debug().Msg("Connection closed")
			default:
				c.logger.Warn().Err(err).Msg("Read error")
			}
			return
		}

		metrics.MessagesReceived.Inc()

		var kind string
		switch op {
		case ws.OpText:
			kind = "string"
		case ws.OpBinary:
			kind = "binary"
		default:
			continue
		}

		var cmd protocol.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			metrics.DecodeErrors.Inc()
			c.logger.Debug().Err(err).Str("kind", kind).Msg("Failed to decode command")
			select {
			case c.status <- protocol.NewStatusError("Could not deserialize "+kind+" message", nil):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case c.commands <- cmd:
		case <-ctx.Done():
			return
		}
	}
}
