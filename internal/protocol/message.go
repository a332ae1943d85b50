package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// BroadcastMessage is the envelope carried on the bus and delivered to
// subscribed clients: who sent it, where, and the payload.
type BroadcastMessage struct {
	ClientID string `json:"client_id"`
	Channel  string `json:"channel"`
	Message  string `json:"message"`
}

// StatusError describes a failed or unparseable operation. Operation is nil
// when the command could not be decoded at all.
type StatusError struct {
	Message   string   `json:"message"`
	Operation *Command `json:"operation"`
}

// StatusMessage encodes as the literal "ok" or as {"error": {...}}.
type StatusMessage struct {
	Err *StatusError
}

// StatusOK is the acknowledgement sent after successful writes.
func StatusOK() StatusMessage { return StatusMessage{} }

// NewStatusError builds an error status, optionally attributed to the
// command that caused it.
func NewStatusError(message string, op *Command) StatusMessage {
	return StatusMessage{Err: &StatusError{Message: message, Operation: op}}
}

func (s StatusMessage) MarshalJSON() ([]byte, error) {
	if s.Err == nil {
		return json.Marshal("ok")
	}
	return tagged("error", s.Err)
}

func (s *StatusMessage) UnmarshalJSON(b []byte) error {
	var lit string
	if err := json.Unmarshal(b, &lit); err == nil {
		if lit != "ok" {
			return fmt.Errorf("%w: %q", ErrUnknownTag, lit)
		}
		*s = StatusMessage{}
		return nil
	}
	tag, body, err := unionEnvelope(b)
	if err != nil {
		return err
	}
	if tag != "error" {
		return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	e := new(StatusError)
	if err := json.Unmarshal(body, e); err != nil {
		return fmt.Errorf("protocol: status error: %w", err)
	}
	*s = StatusMessage{Err: e}
	return nil
}

// GetResult wraps the optional value of a get reply. A nil Value encodes the
// variant body as null: {"get": null}.
type GetResult struct {
	Value *Value
}

// Message is the outbound union sent from the server to clients. Exactly one
// field is non-nil.
type Message struct {
	ClientID  *string
	Broadcast *BroadcastMessage
	Get       *GetResult
	Status    *StatusMessage
}

// ClientIDMessage announces the session's resolved client identifier.
func ClientIDMessage(id string) Message { return Message{ClientID: &id} }

// BroadcastOut wraps a bus envelope for delivery.
func BroadcastOut(env BroadcastMessage) Message { return Message{Broadcast: &env} }

// GetOut wraps a get reply; v is nil when the key is absent or expired.
func GetOut(v *Value) Message { return Message{Get: &GetResult{Value: v}} }

// StatusOut wraps a status reply.
func StatusOut(s StatusMessage) Message { return Message{Status: &s} }

func (m Message) MarshalJSON() ([]byte, error) {
	switch {
	case m.ClientID != nil:
		return tagged("client_id", m.ClientID)
	case m.Broadcast != nil:
		return tagged("broadcast_message", m.Broadcast)
	case m.Get != nil:
		// Encode the optional value directly; nil becomes null.
		return tagged("get", m.Get.Value)
	case m.Status != nil:
		return tagged("status", m.Status)
	}
	return nil, errors.New("protocol: empty message")
}

func (m *Message) UnmarshalJSON(b []byte) error {
	tag, body, err := unionEnvelope(b)
	if err != nil {
		return err
	}
	*m = Message{}
	switch tag {
	case "client_id":
		v := new(string)
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("protocol: client_id: %w", err)
		}
		m.ClientID = v
	case "broadcast_message":
		v := new(BroadcastMessage)
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("protocol: broadcast_message: %w", err)
		}
		m.Broadcast = v
	case "get":
		result := new(GetResult)
		if string(body) != "null" {
			v := new(Value)
			if err := json.Unmarshal(body, v); err != nil {
				return fmt.Errorf("protocol: get: %w", err)
			}
			result.Value = v
		}
		m.Get = result
	case "status":
		v := new(StatusMessage)
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("protocol: status: %w", err)
		}
		m.Status = v
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	return nil
}
