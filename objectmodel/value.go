// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package objectmodel defines the four object kinds stored by the
// engine (blob, bundle, snapshot, tree), their canonical on-disk
// envelope, and the open value type used for metadata and opaque
// bundle payloads.
package objectmodel

import (
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the cases of Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindMap
)

// Value is an open, dynamically typed value: null, bool, integer,
// float, string, sequence, or mapping. It exists so that bundle
// payloads and object metadata — which are opaque, caller-defined data
// — can be carried and canonically encoded without the store itself
// needing to know their shape.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	m    map[string]Value
}

func Null() Value                    { return Value{kind: KindNull} }
func Bool(b bool) Value              { return Value{kind: KindBool, b: b} }
func Int(i int64) Value              { return Value{kind: KindInt, i: i} }
func Float(f float64) Value          { return Value{kind: KindFloat, f: f} }
func String(s string) Value          { return Value{kind: KindString, s: s} }
func Array(vs ...Value) Value        { return Value{kind: KindArray, arr: vs} }
func Map(m map[string]Value) Value   { return Value{kind: KindMap, m: m} }

func (v Value) Kind() ValueKind         { return v.kind }
func (v Value) BoolValue() bool         { return v.b }
func (v Value) IntValue() int64         { return v.i }
func (v Value) FloatValue() float64     { return v.f }
func (v Value) StringValue() string     { return v.s }
func (v Value) ArrayValue() []Value     { return v.arr }
func (v Value) MapValue() map[string]Value { return v.m }

func (v Value) IsNull() bool { return v.kind == KindNull }

// ToAny recursively converts v into plain Go data built from nil,
// bool, int64, float64, string, []any and map[string]any, suitable for
// JSON marshaling or canonical encoding.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.ToAny()
		}
		return out
	default:
		return nil
	}
}

// CanonicalValue implements canonical.Canonicalizer.
func (v Value) CanonicalValue() any { return v.ToAny() }

// FromAny converts plain Go data — as produced by json.Decoder with
// UseNumber enabled, or built directly by callers — into a Value tree.
// Accepted inputs are nil, bool, int, int64, float32/float64,
// json.Number, string, []any and map[string]any; other integer types
// are rejected as unsupported.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("objectmodel: invalid number %q: %w", x.String(), err)
		}
		return Float(f), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float64:
		return Float(x), nil
	case float32:
		return Float(float64(x)), nil
	case []any:
		out := make([]Value, len(x))
		for i, e := range x {
			cv, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			out[i] = cv
		}
		return Array(out...), nil
	case map[string]any:
		out := make(map[string]Value, len(x))
		for k, e := range x {
			cv, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			out[k] = cv
		}
		return Map(out), nil
	default:
		return Value{}, fmt.Errorf("objectmodel: unsupported value type %T", v)
	}
}

func valuesToAny(m map[string]Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.ToAny()
	}
	return out
}
