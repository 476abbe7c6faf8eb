// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

import (
	"math"
	"slices"
	"strconv"
)

// ValueKind tags the payload of a [Value].
type ValueKind uint8

const (
	ValueNil ValueKind = iota
	ValueInt
	ValueFloat
	ValueBool
	ValueString
	ValueURI
)

var valueKindNames = [...]string{
	ValueNil:    "nil",
	ValueInt:    "int",
	ValueFloat:  "float",
	ValueBool:   "bool",
	ValueString: "string",
	ValueURI:    "uri",
}

// String returns the name of the kind.
func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "unknown"
}

// Value is an immutable typed property or port value.
// The zero Value is nil.
type Value struct {
	kind ValueKind
	num  float64
	i    int64
	str  string
}

// Int returns an integer Value.
func Int(v int64) Value { return Value{kind: ValueInt, i: v} }

// Float returns a floating-point Value.
func Float(v float64) Value { return Value{kind: ValueFloat, num: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value {
	if v {
		return Value{kind: ValueBool, i: 1}
	}
	return Value{kind: ValueBool}
}

// String returns a string Value.
func String(v string) Value { return Value{kind: ValueString, str: v} }

// URI returns a URI Value.
func URI(v string) Value { return Value{kind: ValueURI, str: v} }

// Kind returns the kind of v.
func (v Value) Kind() ValueKind { return v.kind }

// IsNil reports whether v carries no payload.
func (v Value) IsNil() bool { return v.kind == ValueNil }

// Int returns the integer payload.
func (v Value) Int() (int64, bool) { return v.i, v.kind == ValueInt }

// Float returns the payload as float64. Integers are converted.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case ValueFloat:
		return v.num, true
	case ValueInt:
		return float64(v.i), true
	}
	return 0, false
}

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) { return v.i != 0, v.kind == ValueBool }

// Str returns the string payload of a string or URI value.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == ValueString || v.kind == ValueURI
}

// Equal reports whether v and w have the same kind and payload.
// Two NaN floats are equal.
func (v Value) Equal(w Value) bool {
	if v.kind == ValueFloat && w.kind == ValueFloat && math.IsNaN(v.num) && math.IsNaN(w.num) {
		return true
	}
	return v == w
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.kind {
	case ValueInt:
		return strconv.FormatInt(v.i, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.i != 0)
	case ValueString:
		return strconv.Quote(v.str)
	case ValueURI:
		return "<" + v.str + ">"
	}
	return "nil"
}

// Properties is an insertion-ordered key to [Value] map.
// The zero value is an empty map ready to use.
type Properties struct {
	keys []string
	m    map[string]Value
}

// Len returns the number of properties.
func (p *Properties) Len() int { return len(p.keys) }

// Get returns the value stored under key.
func (p *Properties) Get(key string) (Value, bool) {
	v, ok := p.m[key]
	return v, ok
}

// Set stores v under key and reports whether the stored value changed.
func (p *Properties) Set(key string, v Value) bool {
	if p.m == nil {
		p.m = make(map[string]Value)
	}
	old, ok := p.m[key]
	if ok && old.Equal(v) {
		return false
	}
	if !ok {
		p.keys = append(p.keys, key)
	}
	p.m[key] = v
	return true
}

// Delete removes key and reports whether it was present.
func (p *Properties) Delete(key string) bool {
	if _, ok := p.m[key]; !ok {
		return false
	}
	delete(p.m, key)
	p.keys = slices.DeleteFunc(p.keys, func(k string) bool { return k == key })
	return true
}

// Keys returns the keys in insertion order.
func (p *Properties) Keys() []string { return slices.Clone(p.keys) }

// All calls yield for each property in insertion order until yield returns false.
func (p *Properties) All(yield func(key string, v Value) bool) {
	for _, k := range p.keys {
		if !yield(k, p.m[k]) {
			return
		}
	}
}

// Merge copies every property of q into p.
func (p *Properties) Merge(q *Properties) {
	for _, k := range q.keys {
		p.Set(k, q.m[k])
	}
}
