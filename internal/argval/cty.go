// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package argval

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// FromCty converts an evaluated HCL value into a Value. Numbers without a
// fractional part become Int; tuples and lists must be homogeneous lists of
// strings, numbers or booleans.
func FromCty(v cty.Value) (Value, error) {
	if v.IsNull() {
		return Value{}, fmt.Errorf("argval: null is not a supported argument value")
	}
	if !v.IsWhollyKnown() {
		return Value{}, fmt.Errorf("argval: value is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return String(v.AsString()), nil
	case ty == cty.Bool:
		return Bool(v.True()), nil
	case ty == cty.Number:
		return fromCtyNumber(v), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		items := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			ev, err := FromCty(elem)
			if err != nil {
				return Value{}, err
			}
			switch ev.kind {
			case KindString:
				items = append(items, ev.s)
			case KindInt:
				items = append(items, int(ev.i))
			case KindFloat:
				items = append(items, ev.f)
			case KindBool:
				items = append(items, ev.b)
			default:
				return Value{}, fmt.Errorf("argval: list element of kind %s is not supported", ev.kind)
			}
		}
		return fromList(items)
	}
	return Value{}, fmt.Errorf("argval: unsupported type %s", ty.FriendlyName())
}

func fromCtyNumber(v cty.Value) Value {
	bf := v.AsBigFloat()
	if bf.IsInt() {
		if i, acc := bf.Int64(); acc == 0 {
			return Int(int(i))
		}
	}
	f, _ := bf.Float64()
	return Float(f)
}

// Cty converts v into a cty.Value. A connection becomes the string id of its
// target; callers that need a traversal write it themselves.
func (v Value) Cty() cty.Value {
	switch v.kind {
	case KindInt:
		return cty.NumberIntVal(v.i)
	case KindFloat:
		return cty.NumberFloatVal(v.f)
	case KindBool:
		return cty.BoolVal(v.b)
	case KindString, KindRef:
		return cty.StringVal(v.s)
	case KindStrings:
		if len(v.ss) == 0 {
			return cty.ListValEmpty(cty.String)
		}
		vals := make([]cty.Value, len(v.ss))
		for i, s := range v.ss {
			vals[i] = cty.StringVal(s)
		}
		return cty.ListVal(vals)
	case KindFloats:
		if len(v.fs) == 0 {
			return cty.ListValEmpty(cty.Number)
		}
		vals := make([]cty.Value, len(v.fs))
		for i, f := range v.fs {
			vals[i] = cty.NumberFloatVal(f)
		}
		return cty.ListVal(vals)
	case KindInts:
		if len(v.is) == 0 {
			return cty.ListValEmpty(cty.Number)
		}
		vals := make([]cty.Value, len(v.is))
		for i, x := range v.is {
			vals[i] = cty.NumberIntVal(x)
		}
		return cty.ListVal(vals)
	case KindBools:
		if len(v.bs) == 0 {
			return cty.ListValEmpty(cty.Bool)
		}
		vals := make([]cty.Value, len(v.bs))
		for i, b := range v.bs {
			vals[i] = cty.BoolVal(b)
		}
		return cty.ListVal(vals)
	}
	return cty.NullVal(cty.DynamicPseudoType)
}
