// Package value defines the database-agnostic dynamic value used between
// the execution layer and the UI: DatabaseValue.
package value

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Kind identifies which variant of DatabaseValue is populated.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindBool
	KindInt32
	KindInt64
	KindFloat64
	KindDateTime
	KindObjectID
	KindArray
	KindObject

	// KindRegex only appears in documents the Plan Builder constructs to
	// send to a backend (filters, options); the execution layer never
	// produces it for a returned row, so it is not part of the inbound
	// DatabaseValue variants enumerated in the data model.
	KindRegex
)

// ObjectID is a 12-byte database identifier, the document-store analogue
// of a primary key.
type ObjectID [12]byte

func (id ObjectID) String() string {
	return hex.EncodeToString(id[:])
}

// ObjectIDFromHex decodes a 24-character hex string into an ObjectID.
func ObjectIDFromHex(s string) (ObjectID, error) {
	var id ObjectID
	if len(s) != 24 {
		return id, fmt.Errorf("invalid ObjectId %q: must be 24 hex characters", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid ObjectId %q: %w", s, err)
	}
	copy(id[:], b)
	return id, nil
}

// Value is the sum type shared by the execution layer and the UI. Object
// guarantees unique keys; Keys preserves insertion order for sources that
// have one.
type Value struct {
	Kind     Kind
	Str      string
	Bool     bool
	I32      int32
	I64      int64
	F64      float64
	Time     time.Time
	ObjectID   ObjectID
	RegexFlags string
	Array      []Value
	object   map[string]Value
	keys     []string
}

// Null is the Null variant.
var Null = Value{Kind: KindNull}

func String(s string) Value   { return Value{Kind: KindString, Str: s} }
func Bool_(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func Int32(i int32) Value     { return Value{Kind: KindInt32, I32: i} }
func Int64(i int64) Value     { return Value{Kind: KindInt64, I64: i} }
func Float64(f float64) Value { return Value{Kind: KindFloat64, F64: f} }
func DateTime(t time.Time) Value {
	return Value{Kind: KindDateTime, Time: t.UTC()}
}
func ObjectIDValue(id ObjectID) Value { return Value{Kind: KindObjectID, ObjectID: id} }
func ArrayValue(vs []Value) Value     { return Value{Kind: KindArray, Array: vs} }

// Regex builds an outbound-only regex value; Str holds the pattern and
// Bool is unused (Flags is carried separately via RegexFlags).
func Regex(pattern, flags string) Value {
	return Value{Kind: KindRegex, Str: pattern, RegexFlags: flags}
}

// NewObject builds an Object value, preserving the given key order.
func NewObject() *ObjectBuilder {
	return &ObjectBuilder{v: Value{Kind: KindObject, object: map[string]Value{}}}
}

// ObjectBuilder incrementally builds an Object Value, de-duplicating keys
// while preserving first-insertion order.
type ObjectBuilder struct {
	v Value
}

// Set inserts or replaces key. Re-setting a key keeps its original position.
func (b *ObjectBuilder) Set(key string, v Value) *ObjectBuilder {
	if _, exists := b.v.object[key]; !exists {
		b.v.keys = append(b.v.keys, key)
	}
	b.v.object[key] = v
	return b
}

// Build returns the finished Object Value.
func (b *ObjectBuilder) Build() Value {
	return b.v
}

// Keys returns the Object's keys in insertion order. Empty for non-Objects.
func (v Value) Keys() []string {
	return append([]string{}, v.keys...)
}

// Field returns the Object field named key and whether it was present.
func (v Value) Field(key string) (Value, bool) {
	if v.Kind != KindObject {
		return Value{}, false
	}
	f, ok := v.object[key]
	return f, ok
}

// SortedKeys is a convenience for callers that don't depend on
// insertion order, such as table header rendering across rows whose
// fields arrived in different orders.
func (v Value) SortedKeys() []string {
	keys := v.Keys()
	sort.Strings(keys)
	return keys
}

// MarshalJSON implements the Value -> serialized JSON half of the
// round-trip property. DateTime and ObjectID are lossily but stably
// rendered as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.Str)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInt32:
		return json.Marshal(v.I32)
	case KindInt64:
		return json.Marshal(v.I64)
	case KindFloat64:
		return json.Marshal(v.F64)
	case KindDateTime:
		return json.Marshal(v.Time.Format(time.RFC3339Nano))
	case KindObjectID:
		return json.Marshal(v.ObjectID.String())
	case KindRegex:
		return json.Marshal("/" + v.Str + "/" + v.RegexFlags)
	case KindArray:
		return json.Marshal(v.Array)
	case KindObject:
		m := make(map[string]json.RawMessage, len(v.keys))
		for _, k := range v.keys {
			raw, err := json.Marshal(v.object[k])
			if err != nil {
				return nil, err
			}
			m[k] = raw
		}
		return marshalOrderedObject(v.keys, m)
	default:
		return nil, fmt.Errorf("value: unknown kind %d", v.Kind)
	}
}

// marshalOrderedObject writes a JSON object preserving key order, since
// encoding/json's map marshaling would otherwise sort keys alphabetically.
func marshalOrderedObject(keys []string, fields map[string]json.RawMessage) ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, fields[k]...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON rebuilds a Value from JSON, completing the round-trip
// property for {String, Bool, Null, Number, Array, Object}. Decoded
// numbers without a fractional part become Int64; the Number->i32
// narrowing only happens inside the lexer (parseNumber) where the
// original literal text is available.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// FromAny converts a decoded encoding/json value (string/float64/bool/
// nil/[]any/map[string]any) into a Value.
func FromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null
	case string:
		return String(t)
	case bool:
		return Bool_(t)
	case float64:
		if t == float64(int64(t)) {
			return Int64(int64(t))
		}
		return Float64(t)
	case []any:
		vs := make([]Value, len(t))
		for i, el := range t {
			vs[i] = FromAny(el)
		}
		return ArrayValue(vs)
	case map[string]any:
		b := NewObject()
		for k, el := range t {
			b.Set(k, FromAny(el))
		}
		return b.Build()
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// Object is a row as delivered by the execution layer: an ordered map of
// field name to Value.
type Object = Value
