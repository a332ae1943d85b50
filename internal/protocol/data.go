// Package protocol defines the JSON wire format shared by clients and the
// server: inbound Commands, outbound Messages, and the tagged Data variant
// they carry. Every union is externally tagged: the variant name is the sole
// top-level key and the body (if any) nests under it, e.g.
// {"set": {"key": "k", "value": {...}}}.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GlobalChannel is the reserved broadcast channel delivered to every
// connected client regardless of its subscription set.
const GlobalChannel = "global"

var (
	// ErrUnknownTag reports a union envelope whose key names no known variant.
	ErrUnknownTag = errors.New("protocol: unknown variant tag")

	// ErrBadEnvelope reports a union envelope without exactly one top-level key.
	ErrBadEnvelope = errors.New("protocol: union envelope must have exactly one key")
)

// DataKind enumerates the Data variants.
type DataKind int

const (
	KindString DataKind = iota
	KindJSON
	KindInt
)

func (k DataKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindJSON:
		return "json"
	case KindInt:
		return "int"
	}
	return fmt.Sprintf("DataKind(%d)", int(k))
}

// Data is the tagged value variant stored in the table and carried by
// set/get: {"string": s} | {"json": <any>} | {"int": i64}.
type Data struct {
	Kind DataKind
	Str  string
	JSON json.RawMessage
	Int  int64
}

func StringData(s string) Data { return Data{Kind: KindString, Str: s} }

func JSONData(doc json.RawMessage) Data { return Data{Kind: KindJSON, JSON: doc} }

func IntData(n int64) Data { return Data{Kind: KindInt, Int: n} }

func (d Data) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case KindString:
		return tagged("string", d.Str)
	case KindJSON:
		doc := d.JSON
		if doc == nil {
			doc = json.RawMessage("null")
		}
		return tagged("json", doc)
	case KindInt:
		return tagged("int", d.Int)
	}
	return nil, fmt.Errorf("protocol: cannot marshal %v", d.Kind)
}

func (d *Data) UnmarshalJSON(b []byte) error {
	tag, body, err := unionEnvelope(b)
	if err != nil {
		return err
	}
	switch tag {
	case "string":
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return fmt.Errorf("protocol: string data: %w", err)
		}
		*d = StringData(s)
	case "json":
		if !json.Valid(body) {
			return fmt.Errorf("protocol: json data: invalid document")
		}
		*d = JSONData(append(json.RawMessage(nil), body...))
	case "int":
		var n int64
		if err := json.Unmarshal(body, &n); err != nil {
			return fmt.Errorf("protocol: int data: %w", err)
		}
		*d = IntData(n)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	return nil
}

// Value pairs a Data with an optional absolute expiry instant. On the wire
// the expiry is RFC3339; values without expiry carry an explicit null.
type Value struct {
	Data   Data       `json:"data"`
	Expiry *time.Time `json:"expiry"`
}

// tagged encodes body under a single-key envelope {tag: body}.
func tagged(tag string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]json.RawMessage{tag: raw})
}

// unionEnvelope decodes an externally tagged union envelope, requiring
// exactly one top-level key.
func unionEnvelope(b []byte) (tag string, body json.RawMessage, err error) {
	var m map[string]json.RawMessage
	if err = json.Unmarshal(b, &m); err != nil {
		return "", nil, err
	}
	if len(m) != 1 {
		return "", nil, fmt.Errorf("%w, got %d", ErrBadEnvelope, len(m))
	}
	for k, v := range m {
		tag, body = k, v
	}
	return tag, body, nil
}
