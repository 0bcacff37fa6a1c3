// Package value implements the tagged-union JSON-compatible value model
// that flows through node inputs, outputs, and the expression evaluator.
package value

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Kind identifies which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindDateTime
	KindBinaryRef
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindDateTime:
		return "datetime"
	case KindBinaryRef:
		return "binary"
	default:
		return "unknown"
	}
}

// BinaryRef is a handle into the binary data manager (C12); the engine
// never materializes the referenced bytes itself.
type BinaryRef struct {
	FileKey       string `json:"file_key"`
	MimeType      string `json:"mime_type,omitempty"`
	FileName      string `json:"file_name,omitempty"`
	FileExtension string `json:"file_extension,omitempty"`
}

// Value is a closed tagged union over the JSON-compatible value model
// plus DateTime and BinaryRef, per the data model's Value definition.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
	keys []string // insertion order, irrelevant to equality but kept for round-trip
	t    time.Time
	ref  BinaryRef
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Number(n float64) Value     { return Value{kind: KindNumber, n: n} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func DateTime(t time.Time) Value { return Value{kind: KindDateTime, t: t} }
func Binary(ref BinaryRef) Value { return Value{kind: KindBinaryRef, ref: ref} }

func Array(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindArray, arr: cp}
}

func ArrayFrom(items []Value) Value {
	return Array(items...)
}

// Object builds an object value from pairs; since a Go map has no order,
// its keys are recorded in sorted order. Use NewObject and Set to keep an
// explicit insertion order.
func Object(pairs map[string]Value) Value {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	obj := make(map[string]Value, len(pairs))
	for k, v := range pairs {
		obj[k] = v
	}
	return Value{kind: KindObject, obj: obj, keys: keys}
}

// NewObject starts an empty object builder; use Set to add ordered fields.
func NewObject() Value {
	return Value{kind: KindObject, obj: map[string]Value{}}
}

// Set returns a copy of the object with key set to v, appending key to the
// insertion order if it is new. Set on a non-object panics — callers must
// check Kind first.
func (v Value) Set(key string, val Value) Value {
	if v.kind != KindObject {
		panic("value: Set called on non-object Value")
	}
	obj := make(map[string]Value, len(v.obj)+1)
	for k, vv := range v.obj {
		obj[k] = vv
	}
	keys := v.keys
	if _, exists := obj[key]; !exists {
		keys = append(append([]string{}, v.keys...), key)
	}
	obj[key] = val
	return Value{kind: KindObject, obj: obj, keys: keys}
}

func (v Value) Kind() Kind           { return v.kind }
func (v Value) IsNull() bool         { return v.kind == KindNull }
func (v Value) AsBool() bool         { return v.b }
func (v Value) AsNumber() float64    { return v.n }
func (v Value) AsString() string     { return v.s }
func (v Value) AsDateTime() time.Time { return v.t }
func (v Value) AsBinaryRef() BinaryRef { return v.ref }

// AsArray returns the underlying slice. Callers must not mutate it.
func (v Value) AsArray() []Value { return v.arr }

// Keys returns object keys in insertion order.
func (v Value) Keys() []string { return v.keys }

// Get fetches an object field; returns Null, false if absent or v is not an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Null(), false
	}
	val, ok := v.obj[key]
	return val, ok
}

// Len returns the element count for Array/Object/String, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	case KindString:
		return len(v.s)
	default:
		return 0
	}
}

// Truthy implements the spec's truthiness table: Null→false, Bool→identity,
// Number→nonzero, String→nonempty, Array/Object→nonempty, DateTime/Binary→true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	case KindString:
		return v.s != ""
	case KindArray:
		return len(v.arr) > 0
	case KindObject:
		return len(v.obj) > 0
	case KindDateTime, KindBinaryRef:
		return true
	default:
		return false
	}
}

// Equal implements structural equality over the tagged union.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindDateTime:
		return a.t.Equal(b.t)
	case KindBinaryRef:
		return a.ref == b.ref
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for k, av := range a.obj {
			bv, ok := b.obj[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FromAny converts a loosely-typed Go value (as produced by encoding/json
// unmarshalling into interface{}, or supplied directly by embedders) into a
// Value, losing the originating concrete Go type by design — mirroring the
// Context data map's documented "serialize on insert" behavior.
func FromAny(in any) (Value, error) {
	switch t := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case string:
		return String(t), nil
	case time.Time:
		return DateTime(t), nil
	case BinaryRef:
		return Binary(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, el := range t {
			v, err := FromAny(el)
			if err != nil {
				return Null(), err
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := make(map[string]Value, len(t))
		for _, k := range keys {
			v, err := FromAny(t[k])
			if err != nil {
				return Null(), err
			}
			obj[k] = v
		}
		return Value{kind: KindObject, obj: obj, keys: keys}, nil
	default:
		// Fall back through JSON for any other concrete type (structs, etc).
		raw, err := json.Marshal(t)
		if err != nil {
			return Null(), fmt.Errorf("value: cannot convert %T: %w", in, err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return Null(), fmt.Errorf("value: cannot convert %T: %w", in, err)
		}
		return FromAny(generic)
	}
}

// ToAny converts back to plain Go values suitable for json.Marshal or
// handing to external libraries (e.g. go-openai request structs).
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindDateTime:
		return v.t.Format(time.RFC3339Nano)
	case KindBinaryRef:
		return v.ref
	case KindArray:
		out := make([]any, len(v.arr))
		for i, el := range v.arr {
			out[i] = el.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, val := range v.obj {
			out[k] = val.ToAny()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	parsed, err := FromAny(generic)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
