// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package argval holds the values a stage carries in its argument bag.
//
// Why a tagged variant instead of map[string]any?
//
// Stage arguments end up in three places: the engine's JSON document, the
// human readable Describe output and HCL pipeline files. With an explicit set
// of kinds every one of those encoders is a switch that the compiler can check
// for completeness, and a connection to another stage (Ref) stays
// distinguishable from an ordinary string until the moment it is serialized.
package argval

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vk/lasrgo/internal/stageid"
)

// Kind is the tag of a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindStrings
	KindFloats
	KindInts
	KindBools
	KindRef
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindInt:     "int",
	KindFloat:   "float",
	KindBool:    "bool",
	KindString:  "string",
	KindStrings: "list(string)",
	KindFloats:  "list(float)",
	KindInts:    "list(int)",
	KindBools:   "list(bool)",
	KindRef:     "ref",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Value is an immutable tagged argument value. The zero Value is invalid.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	ss   []string
	fs   []float64
	is   []int64
	bs   []bool
}

// Int returns an integer value.
func Int(v int) Value { return Value{kind: KindInt, i: int64(v)} }

// Float returns a floating point value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// String returns a string value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Strings returns a list-of-string value. The slice is copied.
func Strings(v ...string) Value {
	return Value{kind: KindStrings, ss: append([]string{}, v...)}
}

// Floats returns a list-of-number value. The slice is copied.
func Floats(v ...float64) Value {
	return Value{kind: KindFloats, fs: append([]float64{}, v...)}
}

// Ints returns a list-of-integer value.
func Ints(v ...int) Value {
	is := make([]int64, len(v))
	for i, x := range v {
		is[i] = int64(x)
	}
	return Value{kind: KindInts, is: is}
}

// Bools returns a list-of-boolean value. The slice is copied.
func Bools(v ...bool) Value {
	return Value{kind: KindBools, bs: append([]bool{}, v...)}
}

// Ref returns a connection to the stage identified by id.
func Ref(id stageid.ID) Value { return Value{kind: KindRef, s: string(id)} }

// Kind reports the tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v was built by one of the constructors.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsInt returns the integer held by v.
func (v Value) AsInt() (int, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return int(v.i), true
}

// AsFloat returns the number held by v. Integers are widened.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsStrings returns a copy of the list of strings held by v.
func (v Value) AsStrings() ([]string, bool) {
	if v.kind != KindStrings {
		return nil, false
	}
	return append([]string{}, v.ss...), true
}

// AsFloats returns the list of numbers held by v. Integer lists are widened.
func (v Value) AsFloats() ([]float64, bool) {
	switch v.kind {
	case KindFloats:
		return append([]float64{}, v.fs...), true
	case KindInts:
		out := make([]float64, len(v.is))
		for i, x := range v.is {
			out[i] = float64(x)
		}
		return out, true
	}
	return nil, false
}

// AsInts returns the list of integers held by v.
func (v Value) AsInts() ([]int, bool) {
	if v.kind != KindInts {
		return nil, false
	}
	out := make([]int, len(v.is))
	for i, x := range v.is {
		out[i] = int(x)
	}
	return out, true
}

// AsBools returns a copy of the list of booleans held by v.
func (v Value) AsBools() ([]bool, bool) {
	if v.kind != KindBools {
		return nil, false
	}
	return append([]bool{}, v.bs...), true
}

// AsRef returns the stage a connection value points at.
func (v Value) AsRef() (stageid.ID, bool) {
	if v.kind != KindRef {
		return "", false
	}
	return stageid.ID(v.s), true
}

// Equal reports whether v and o have the same kind and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindString, KindRef:
		return v.s == o.s
	case KindStrings:
		return equalSlices(v.ss, o.ss)
	case KindFloats:
		return equalSlices(v.fs, o.fs)
	case KindInts:
		return equalSlices(v.is, o.is)
	case KindBools:
		return equalSlices(v.bs, o.bs)
	}
	return true
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders v for humans: lists as [a, b], numbers without trailing zeros.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	case KindRef:
		return "@" + v.s
	case KindStrings:
		return "[" + strings.Join(v.ss, ", ") + "]"
	case KindFloats:
		parts := make([]string, len(v.fs))
		for i, f := range v.fs {
			parts[i] = formatFloat(f)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindInts:
		parts := make([]string, len(v.is))
		for i, x := range v.is {
			parts[i] = strconv.FormatInt(x, 10)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindBools:
		parts := make([]string, len(v.bs))
		for i, x := range v.bs {
			parts[i] = strconv.FormatBool(x)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "<invalid>"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MarshalJSON encodes v as the plain JSON the engine expects. A connection
// encodes as the bare id of its target.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("argval: %v cannot be encoded as JSON", v.f)
		}
		return json.Marshal(v.f)
	case KindBool:
		return json.Marshal(v.b)
	case KindString, KindRef:
		return json.Marshal(v.s)
	case KindStrings:
		return json.Marshal(v.ss)
	case KindFloats:
		return json.Marshal(v.fs)
	case KindInts:
		return json.Marshal(v.is)
	case KindBools:
		return json.Marshal(v.bs)
	}
	return nil, fmt.Errorf("argval: cannot encode invalid value")
}

// FromAny converts a decoded JSON value or a plain Go value into a Value.
// json.Number is split into Int or Float depending on its text; lists must be
// homogeneous. Connections cannot be recognised here; callers turn role keys
// into refs themselves.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case int:
		return Int(t), nil
	case int64:
		return Int(int(t)), nil
	case float64:
		return Float(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case stageid.ID:
		return Ref(t), nil
	case json.Number:
		return fromNumber(t)
	case []string:
		return Strings(t...), nil
	case []float64:
		return Floats(t...), nil
	case []int:
		return Ints(t...), nil
	case []bool:
		return Bools(t...), nil
	case []any:
		return fromList(t)
	case nil:
		return Value{}, fmt.Errorf("argval: null is not a supported argument value")
	}
	return Value{}, fmt.Errorf("argval: unsupported value of type %T", x)
}

func fromNumber(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(int(i)), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("argval: invalid number %q: %w", n, err)
	}
	return Float(f), nil
}

func fromList(items []any) (Value, error) {
	if len(items) == 0 {
		return Strings(), nil
	}

	switch items[0].(type) {
	case string:
		out := make([]string, len(items))
		for i, it := range items {
			s, ok := it.(string)
			if !ok {
				return Value{}, fmt.Errorf("argval: mixed list: element %d is %T, want string", i, it)
			}
			out[i] = s
		}
		return Strings(out...), nil
	case bool:
		out := make([]bool, len(items))
		for i, it := range items {
			b, ok := it.(bool)
			if !ok {
				return Value{}, fmt.Errorf("argval: mixed list: element %d is %T, want bool", i, it)
			}
			out[i] = b
		}
		return Bools(out...), nil
	}

	ints := make([]int, 0, len(items))
	floats := make([]float64, 0, len(items))
	allInts := true
	for i, it := range items {
		v, err := FromAny(it)
		if err != nil {
			return Value{}, err
		}
		f, ok := v.AsFloat()
		if !ok {
			return Value{}, fmt.Errorf("argval: mixed list: element %d is %s, want number", i, v.Kind())
		}
		if n, isInt := v.AsInt(); isInt {
			ints = append(ints, n)
		} else {
			allInts = false
		}
		floats = append(floats, f)
	}
	if allInts {
		return Ints(ints...), nil
	}
	return Floats(floats...), nil
}
