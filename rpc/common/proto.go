package common

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// --------------------------------------------------------------------------
// Request Envelope
// --------------------------------------------------------------------------

// Request is the envelope of a single command sent to the server.
// The ID is assigned by the client transport right before the request is
// written, callers leave it at zero.
type Request struct {
	ID   uint64 `json:"id"`
	Code uint32 `json:"code,omitempty"` // Protocol control code, always 0 for plain requests
	Op   OpType `json:"op"`

	Key   []byte `json:"key,omitempty"`   // Used for: Put, Get
	Value *Value `json:"value,omitempty"` // Used for: Put
}

// NewPutRequest creates a new Put request
func NewPutRequest(key []byte, value *Value) *Request {
	return &Request{
		Op:    OpPut,
		Key:   key,
		Value: value,
	}
}

// NewGetRequest creates a new Get request
func NewGetRequest(key []byte) *Request {
	return &Request{
		Op:  OpGet,
		Key: key,
	}
}

// --------------------------------------------------------------------------
// Response Envelope
// --------------------------------------------------------------------------

// Response is the envelope of a single answer from the server.
// A response carrying a Value is always a success. A response without a value
// and Ok == false is an application level failure (or a miss for Get).
type Response struct {
	ID    uint64 `json:"id"`
	Code  uint32 `json:"code,omitempty"`
	Ok    bool   `json:"ok,omitempty"`
	Value *Value `json:"value,omitempty"`
}

// NewOkResponse creates a response that only carries the ok flag
func NewOkResponse(id uint64, ok bool) *Response {
	return &Response{
		ID: id,
		Ok: ok,
	}
}

// NewValueResponse creates a response carrying a value
func NewValueResponse(id uint64, value *Value) *Response {
	return &Response{
		ID:    id,
		Ok:    true,
		Value: value,
	}
}

// Failed reports whether the server rejected the request
func (r *Response) Failed() bool {
	return !r.Ok && r.Value == nil
}

// --------------------------------------------------------------------------
// Values
// --------------------------------------------------------------------------

// Value is a stored value, exactly one of Blob, String or Map is used depending on Kind
type Value struct {
	Kind   ValueKind
	Blob   []byte
	String string
	Map    map[string]*Value
}

// BlobValue creates a binary value
func BlobValue(b []byte) *Value {
	return &Value{Kind: KindBlob, Blob: b}
}

// StringValue creates a string value
func StringValue(s string) *Value {
	return &Value{Kind: KindString, String: s}
}

// MapValue creates a map value
func MapValue(m map[string]*Value) *Value {
	return &Value{Kind: KindMap, Map: m}
}

// ValueKind tells which field of a Value is set
type ValueKind uint8

const (
	KindBlob ValueKind = iota
	KindString
	KindMap
)

// Text returns a human-readable representation of the value
func (v *Value) Text() string {
	if v == nil {
		return "<nil>"
	}
	switch v.Kind {
	case KindBlob:
		return string(v.Blob)
	case KindString:
		return v.String
	case KindMap:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		sb.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s: %s", k, v.Map[k].Text()))
		}
		sb.WriteString("}")
		return sb.String()
	default:
		return fmt.Sprintf("<unknown kind %d>", v.Kind)
	}
}

// jsonValue is the external json shape of a Value, only one field is set
type jsonValue struct {
	Blob   *[]byte            `json:"blob,omitempty"`
	String *string            `json:"string,omitempty"`
	Map    *map[string]*Value `json:"map,omitempty"`
}

// MarshalJSON implements the json.Marshaller interface for Value.
// Values are written as {"blob": ...}, {"string": ...} or {"map": {...}}.
func (v Value) MarshalJSON() ([]byte, error) {
	var out jsonValue
	switch v.Kind {
	case KindBlob:
		blob := v.Blob
		if blob == nil {
			blob = []byte{}
		}
		out.Blob = &blob
	case KindString:
		out.String = &v.String
	case KindMap:
		m := v.Map
		if m == nil {
			m = map[string]*Value{}
		}
		out.Map = &m
	default:
		return nil, fmt.Errorf("unknown value kind: %d", v.Kind)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements the json.Unmarshaler interface for Value
func (v *Value) UnmarshalJSON(data []byte) error {
	var in jsonValue
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	switch {
	case in.String != nil:
		*v = Value{Kind: KindString, String: *in.String}
	case in.Map != nil:
		*v = Value{Kind: KindMap, Map: *in.Map}
	case in.Blob != nil:
		*v = Value{Kind: KindBlob, Blob: *in.Blob}
	default:
		return fmt.Errorf("value must have one of blob, string or map")
	}
	return nil
}

// ParseValue parses a value given on the command line.
// JSON objects are decoded as Value, everything else is taken as a string value.
func ParseValue(s string) (*Value, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return StringValue(s), nil
	}
	v := &Value{}
	if err := json.Unmarshal([]byte(trimmed), v); err != nil {
		return nil, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return v, nil
}

// --------------------------------------------------------------------------
// Operation Type Definition
// --------------------------------------------------------------------------

// OpType defines the command carried by a request
type OpType uint8

const (
	OpUnknown OpType = iota
	OpPut            // Store a value, answered with ok
	OpGet            // Load a value, answered with the value or nothing on a miss
)

// String returns the string representation of an OpType.
func (t OpType) String() string {
	switch t {
	case OpPut:
		return "put"
	case OpGet:
		return "get"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for OpType.
func (t OpType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for OpType.
func (t *OpType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "put":
		*t = OpPut
	case "get":
		*t = OpGet
	case "unknown":
		*t = OpUnknown
	default:
		return fmt.Errorf("unknown op type: %s", s)
	}
	return nil
}
