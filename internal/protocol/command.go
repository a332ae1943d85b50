package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SubscribeBroadcast subscribes the sending client to a channel.
// subscribe_to_self defaults to false: the client's own envelopes on that
// channel are filtered out unless it opts in.
type SubscribeBroadcast struct {
	Channel         string `json:"channel"`
	SubscribeToSelf bool   `json:"subscribe_to_self"`
}

// SendBroadcast publishes a payload to a channel on the shared bus.
type SendBroadcast struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// WriteValue is the inbound form of Value: the expiry is seconds from now
// rather than an absolute instant. Absent or null means no expiry.
type WriteValue struct {
	Data   Data    `json:"data"`
	Expiry *uint32 `json:"expiry"`
}

// SetRequest inserts or replaces one key.
type SetRequest struct {
	Key   string     `json:"key"`
	Value WriteValue `json:"value"`
}

// GetRequest reads one key.
type GetRequest struct {
	Key string `json:"key"`
}

// Command is the inbound union. Exactly one field is non-nil after a
// successful decode.
type Command struct {
	SubscribeBroadcast   *SubscribeBroadcast
	UnsubscribeBroadcast *string
	SendBroadcast        *SendBroadcast
	Set                  *SetRequest
	Get                  *GetRequest
}

// Kind returns the command's wire tag, for logging and metrics labels.
func (c Command) Kind() string {
	switch {
	case c.SubscribeBroadcast != nil:
		return "subscribe_broadcast"
	case c.UnsubscribeBroadcast != nil:
		return "unsubscribe_broadcast"
	case c.SendBroadcast != nil:
		return "send_broadcast"
	case c.Set != nil:
		return "set"
	case c.Get != nil:
		return "get"
	}
	return "unknown"
}

func (c Command) MarshalJSON() ([]byte, error) {
	switch {
	case c.SubscribeBroadcast != nil:
		return tagged("subscribe_broadcast", c.SubscribeBroadcast)
	case c.UnsubscribeBroadcast != nil:
		return tagged("unsubscribe_broadcast", c.UnsubscribeBroadcast)
	case c.SendBroadcast != nil:
		return tagged("send_broadcast", c.SendBroadcast)
	case c.Set != nil:
		return tagged("set", c.Set)
	case c.Get != nil:
		return tagged("get", c.Get)
	}
	return nil, errors.New("protocol: empty command")
}

func (c *Command) UnmarshalJSON(b []byte) error {
	tag, body, err := unionEnvelope(b)
	if err != nil {
		return err
	}
	*c = Command{}
	switch tag {
	case "subscribe_broadcast":
		v := new(SubscribeBroadcast)
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("protocol: subscribe_broadcast: %w", err)
		}
		c.SubscribeBroadcast = v
	case "unsubscribe_broadcast":
		v := new(string)
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("protocol: unsubscribe_broadcast: %w", err)
		}
		c.UnsubscribeBroadcast = v
	case "send_broadcast":
		v := new(SendBroadcast)
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("protocol: send_broadcast: %w", err)
		}
		c.SendBroadcast = v
	case "set":
		v := new(SetRequest)
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("protocol: set: %w", err)
		}
		c.Set = v
	case "get":
		v := new(GetRequest)
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("protocol: get: %w", err)
		}
		c.Get = v
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	return nil
}
