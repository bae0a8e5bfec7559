// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package canonical implements the bytewise-deterministic encoding used
// for content addressing. Two values that are structurally equal (map
// keys unordered, sequence elements ordered) always encode to identical
// bytes: map keys are sorted lexicographically, there is no
// insignificant whitespace, output is UTF-8 with non-ASCII left
// literal, and there is no trailing newline.
package canonical

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Canonicalizer is implemented by types that need to control their own
// canonical representation instead of being walked generically. The
// open value type in package objectmodel implements it so that package
// canonical never has to import objectmodel.
type Canonicalizer interface {
	CanonicalValue() any
}

// Encode produces the canonical byte encoding of v. v may be built from
// nil, bool, string, any Go integer type, float32/float64, json.Number,
// []any, []string, map[string]any, or any type implementing
// Canonicalizer. Other slice and map types are rejected as unsupported.
func Encode(v any) ([]byte, error) {
	var buf strings.Builder
	if err := encodeValue(&buf, v); err != nil {
		return nil, fmt.Errorf("canonical: %w", err)
	}
	return []byte(buf.String()), nil
}

// EncodeString is Encode but returns the result as a string, for
// callers that only need the textual form (e.g. for logging or tests).
func EncodeString(v any) (string, error) {
	b, err := Encode(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeValue(buf *strings.Builder, v any) error {
	if c, ok := v.(Canonicalizer); ok {
		return encodeValue(buf, c.CanonicalValue())
	}

	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		encodeString(buf, x)
		return nil
	case json.Number:
		return encodeJSONNumber(buf, x)
	case int:
		buf.WriteString(strconv.FormatInt(int64(x), 10))
		return nil
	case int8:
		buf.WriteString(strconv.FormatInt(int64(x), 10))
		return nil
	case int16:
		buf.WriteString(strconv.FormatInt(int64(x), 10))
		return nil
	case int32:
		buf.WriteString(strconv.FormatInt(int64(x), 10))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
		return nil
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(x), 10))
		return nil
	case uint8:
		buf.WriteString(strconv.FormatUint(uint64(x), 10))
		return nil
	case uint16:
		buf.WriteString(strconv.FormatUint(uint64(x), 10))
		return nil
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(x), 10))
		return nil
	case uint64:
		buf.WriteString(strconv.FormatUint(x, 10))
		return nil
	case float32:
		return encodeFloat(buf, float64(x))
	case float64:
		return encodeFloat(buf, x)
	case []any:
		return encodeArray(buf, x)
	case []string:
		arr := make([]any, len(x))
		for i, s := range x {
			arr[i] = s
		}
		return encodeArray(buf, arr)
	case map[string]any:
		return encodeMap(buf, x)
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
}

func encodeJSONNumber(buf *strings.Builder, n json.Number) error {
	if i, err := n.Int64(); err == nil {
		buf.WriteString(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", n.String(), err)
	}
	return encodeFloat(buf, f)
}

func encodeFloat(buf *strings.Builder, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("NaN and infinities cannot be canonically encoded")
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

func encodeArray(buf *strings.Builder, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeValue(buf, elem); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func encodeMap(buf *strings.Builder, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodeString(buf, k)
		buf.WriteByte(':')
		if err := encodeValue(buf, m[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

const hexDigits = "0123456789abcdef"

// encodeString writes s as a JSON string literal, escaping only what
// JSON requires. Non-ASCII bytes pass through untouched.
func encodeString(buf *strings.Builder, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[(r>>4)&0xf])
				buf.WriteByte(hexDigits[r&0xf])
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

// Validate reports whether v can be canonically encoded without
// actually retaining the output.
func Validate(v any) error {
	_, err := Encode(v)
	return err
}
