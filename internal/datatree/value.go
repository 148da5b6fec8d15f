// Package datatree models the untyped data documents that drive page
// rendering. A Value is a tagged union over the YAML data model (null,
// bool, int, float, string, sequence, mapping) with mappings keeping their
// key order, so a page's data reaches its template exactly as written.
package datatree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"sort"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSequence
	KindMapping
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is one node of a data tree. The zero Value is null.
type Value struct {
	kind Kind

	b bool
	i int64
	f float64
	s string

	// markup marks a string as trusted, already rendered HTML.
	markup bool

	seq []*Value

	keys []string
	vals map[string]*Value
}

// Null returns a null value.
func Null() *Value { return &Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) *Value { return &Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) *Value { return &Value{kind: KindInt, i: i} }

// Float returns a floating point value.
func Float(f float64) *Value { return &Value{kind: KindFloat, f: f} }

// String returns a plain string value.
func String(s string) *Value { return &Value{kind: KindString, s: s} }

// Markup returns a string value holding rendered HTML. Templates receive
// it unescaped.
func Markup(s string) *Value { return &Value{kind: KindString, s: s, markup: true} }

// NewSequence returns a sequence holding items in order.
func NewSequence(items ...*Value) *Value {
	seq := make([]*Value, len(items))
	copy(seq, items)
	return &Value{kind: KindSequence, seq: seq}
}

// NewMapping returns an empty ordered mapping.
func NewMapping() *Value {
	return &Value{kind: KindMapping, vals: make(map[string]*Value)}
}

// Kind reports the variant held by v. A nil Value is null.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsMarkup reports whether v is a string of rendered HTML.
func (v *Value) IsMarkup() bool {
	return v != nil && v.kind == KindString && v.markup
}

// AsString returns the string payload and whether v is a string.
func (v *Value) AsString() (string, bool) {
	if v.Kind() != KindString {
		return "", false
	}
	return v.s, true
}

// AsBool returns the boolean payload and whether v is a bool.
func (v *Value) AsBool() (bool, bool) {
	if v.Kind() != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt returns the integer payload and whether v is an int.
func (v *Value) AsInt() (int64, bool) {
	if v.Kind() != KindInt {
		return 0, false
	}
	return v.i, true
}

// AsFloat returns the numeric payload as a float for ints and floats.
func (v *Value) AsFloat() (float64, bool) {
	switch v.Kind() {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Len returns the number of items of a sequence or entries of a mapping.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.keys)
	default:
		return 0
	}
}

// Index returns the i-th item of a sequence.
func (v *Value) Index(i int) (*Value, bool) {
	if v.Kind() != KindSequence || i < 0 || i >= len(v.seq) {
		return nil, false
	}
	return v.seq[i], true
}

// SetIndex replaces the i-th item of a sequence in place.
func (v *Value) SetIndex(i int, item *Value) error {
	if v.Kind() != KindSequence {
		return fmt.Errorf("set index on %s", v.Kind())
	}
	if i < 0 || i >= len(v.seq) {
		return fmt.Errorf("index %d out of range [0,%d)", i, len(v.seq))
	}
	v.seq[i] = item
	return nil
}

// Append adds item to the end of a sequence.
func (v *Value) Append(item *Value) error {
	if v.Kind() != KindSequence {
		return fmt.Errorf("append on %s", v.Kind())
	}
	v.seq = append(v.seq, item)
	return nil
}

// Items returns the items of a sequence. The slice is shared.
func (v *Value) Items() []*Value {
	if v.Kind() != KindSequence {
		return nil
	}
	return v.seq
}

// Get looks up key in a mapping.
func (v *Value) Get(key string) (*Value, bool) {
	if v.Kind() != KindMapping {
		return nil, false
	}
	item, ok := v.vals[key]
	return item, ok
}

// Set stores item under key. An existing key keeps its position; a new
// key is appended.
func (v *Value) Set(key string, item *Value) error {
	if v.Kind() != KindMapping {
		return fmt.Errorf("set key %q on %s", key, v.Kind())
	}
	if _, exists := v.vals[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.vals[key] = item
	return nil
}

// Delete removes key from a mapping.
func (v *Value) Delete(key string) {
	if v.Kind() != KindMapping {
		return
	}
	if _, exists := v.vals[key]; !exists {
		return
	}
	delete(v.vals, key)
	for i, k := range v.keys {
		if k == key {
			v.keys = append(v.keys[:i], v.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the mapping keys in insertion order.
func (v *Value) Keys() []string {
	if v.Kind() != KindMapping {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Interface converts v into plain Go values for template execution:
// map[string]any, []any, bool, int, float64, string, template.HTML or nil.
func (v *Value) Interface() any {
	switch v.Kind() {
	case KindBool:
		return v.b
	case KindInt:
		if v.i >= math.MinInt && v.i <= math.MaxInt {
			return int(v.i)
		}
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		if v.markup {
			return template.HTML(v.s)
		}
		return v.s
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.vals[k].Interface()
		}
		return out
	default:
		return nil
	}
}

// String renders scalars the way they would print in a template.
// Collections render as JSON.
func (v *Value) String() string {
	switch v.Kind() {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Equal reports deep structural equality. Mapping key order and the
// markup flag are ignored: two trees are equal when they carry the same
// data.
func (v *Value) Equal(other *Value) bool {
	if v.Kind() != other.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindSequence:
		if len(v.seq) != len(other.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(other.seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(v.keys) != len(other.keys) {
			return false
		}
		for k, item := range v.vals {
			o, ok := other.vals[k]
			if !ok || !item.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON encodes v keeping mapping key order.
func (v *Value) MarshalJSON() ([]byte, error) {
	switch v.Kind() {
	case KindNull:
		return []byte("null"), nil
	case KindSequence:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindMapping:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			b, err := v.vals[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case KindString:
		return json.Marshal(v.s)
	default:
		return json.Marshal(v.Interface())
	}
}

// FromInterface builds a Value from plain Go data. Map keys are sorted so
// the result is deterministic.
func FromInterface(x any) (*Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case *Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case int32:
		return Int(int64(t)), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case string:
		return String(t), nil
	case template.HTML:
		return Markup(string(t)), nil
	case []any:
		seq := NewSequence()
		for _, item := range t {
			iv, err := FromInterface(item)
			if err != nil {
				return nil, err
			}
			seq.seq = append(seq.seq, iv)
		}
		return seq, nil
	case map[string]any:
		m := NewMapping()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			iv, err := FromInterface(t[k])
			if err != nil {
				return nil, err
			}
			_ = m.Set(k, iv)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", x)
	}
}
