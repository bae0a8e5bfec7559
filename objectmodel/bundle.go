// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package objectmodel

import (
	"fmt"

	"github.com/strongdm/snapstore/hashing"
)

// Bundle is a leaf object wrapping an opaque mapping supplied by an
// upstream system (see package bundlesync). The store never interprets
// its fields beyond treating it as a mapping.
type Bundle struct {
	Data     map[string]Value
	Metadata map[string]Value
}

// NewBundle constructs a Bundle over data with optional metadata.
func NewBundle(data map[string]Value, metadata map[string]Value) *Bundle {
	return &Bundle{Data: data, Metadata: metadata}
}

func (b *Bundle) envelope() envelope {
	return envelope{
		Type:     KindBundle,
		Content:  valuesToAny(b.Data),
		Metadata: b.Metadata,
	}
}

// Encode renders the bundle in canonical form.
func (b *Bundle) Encode() ([]byte, error) {
	return b.envelope().Encode()
}

// Digest computes the bundle's content digest under h.
func (b *Bundle) Digest(h *hashing.Hasher) (string, error) {
	return b.envelope().Digest(h)
}

// Operations returns the bundle's "operations" field as a sequence, or
// nil if absent. This mirrors the convention upstream systems use when
// feeding operation logs through the sync adapter; the store itself
// attaches no meaning to it.
func (b *Bundle) Operations() []Value {
	v, ok := b.Data["operations"]
	if !ok || v.Kind() != KindArray {
		return nil
	}
	return v.ArrayValue()
}

// SequenceNumber returns the bundle's "sequence" field if present and
// integral.
func (b *Bundle) SequenceNumber() (int64, bool) {
	v, ok := b.Data["sequence"]
	if !ok || v.Kind() != KindInt {
		return 0, false
	}
	return v.IntValue(), true
}

// DecodeBundle reconstructs a Bundle from an already-parsed envelope.
func DecodeBundle(content any, metadata map[string]Value) (*Bundle, error) {
	m, ok := content.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("objectmodel: bundle content must be a mapping, got %T", content)
	}
	data := make(map[string]Value, len(m))
	for k, v := range m {
		cv, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("objectmodel: invalid bundle field %q: %w", k, err)
		}
		data[k] = cv
	}
	return &Bundle{Data: data, Metadata: metadata}, nil
}
