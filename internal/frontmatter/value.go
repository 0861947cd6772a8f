package frontmatter

import (
	"bytes"
	"encoding/json"
	"iter"
	"slices"
	"strconv"
)

// Kind distinguishes the scalar types a header value can coerce to.
type Kind uint8

// Kind values.
const (
	KindString Kind = iota
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Value is a typed header scalar. Exactly one of Text, Num, Bool is
// meaningful, selected by Kind.
type Value struct {
	Kind Kind
	Text string
	Num  float64
	Bool bool
}

// StringValue returns a string scalar.
func StringValue(s string) Value { return Value{Kind: KindString, Text: s} }

// NumberValue returns a numeric scalar.
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// BoolValue returns a boolean scalar.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// String renders the value the way it would appear in a template.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Text
	}
}

// Interface returns the value as string, float64 or bool.
func (v Value) Interface() any {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	default:
		return v.Text
	}
}

// MarshalJSON encodes the value as a native JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Header is an insertion-ordered mapping of header keys to values.
// The zero value is an empty header. A repeated key keeps its first
// position and takes the last value.
type Header struct {
	keys   []string
	values map[string]Value
}

// Get returns the value stored under key.
func (h Header) Get(key string) (Value, bool) {
	v, ok := h.values[key]
	return v, ok
}

// Len returns the number of keys.
func (h Header) Len() int { return len(h.keys) }

// Keys returns the keys in declaration order.
func (h Header) Keys() []string { return slices.Clone(h.keys) }

// All iterates keys and values in declaration order.
func (h Header) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range h.keys {
			if !yield(k, h.values[k]) {
				return
			}
		}
	}
}

// Map returns a plain map copy with native Go scalar values.
func (h Header) Map() map[string]any {
	out := make(map[string]any, len(h.keys))
	for k, v := range h.All() {
		out[k] = v.Interface()
	}
	return out
}

// MarshalJSON encodes the header as a JSON object preserving key order.
func (h Header) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range h.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := h.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (h *Header) set(key string, v Value) {
	if h.values == nil {
		h.values = make(map[string]Value)
	}
	if _, exists := h.values[key]; !exists {
		h.keys = append(h.keys, key)
	}
	h.values[key] = v
}
