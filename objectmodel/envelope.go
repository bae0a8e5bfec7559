// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package objectmodel

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/strongdm/snapstore/canonical"
	"github.com/strongdm/snapstore/hashing"
)

// Kind identifies one of the four object kinds.
type Kind string

const (
	KindBlob     Kind = "blob"
	KindBundle   Kind = "bundle"
	KindSnapshot Kind = "snapshot"
	KindTree     Kind = "tree"
)

// Valid reports whether k is one of the four recognized object kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBlob, KindBundle, KindSnapshot, KindTree:
		return true
	default:
		return false
	}
}

// envelope is the shape every object shares on disk: a type
// discriminator, kind-specific content, and optional metadata. content
// is either a plain Go value (string, map[string]any, []any) or
// anything implementing canonical.Canonicalizer.
type envelope struct {
	Type     Kind
	Content  any
	Metadata map[string]Value
}

func (e envelope) canonicalMap() map[string]any {
	m := map[string]any{
		"type":    string(e.Type),
		"content": e.Content,
	}
	if len(e.Metadata) > 0 {
		m["metadata"] = valuesToAny(e.Metadata)
	}
	return m
}

// Encode renders the envelope in canonical form.
func (e envelope) Encode() ([]byte, error) {
	return canonical.Encode(e.canonicalMap())
}

// Digest computes the content digest of the envelope under h.
func (e envelope) Digest(h *hashing.Hasher) (string, error) {
	b, err := e.Encode()
	if err != nil {
		return "", err
	}
	return h.Sum(b), nil
}

// ParseEnvelope validates that data is a well-formed object envelope
// (a JSON object with a recognized "type", a "content" key, and a
// "metadata" key that is a mapping if present) and returns its parts
// for kind-specific decoding. Numbers are decoded with json.Number so
// the int/float distinction from the original bytes survives.
func ParseEnvelope(data []byte) (kind Kind, content any, metadata map[string]Value, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if decErr := dec.Decode(&raw); decErr != nil {
		return "", nil, nil, fmt.Errorf("malformed object: %w", decErr)
	}

	typeRaw, ok := raw["type"]
	if !ok {
		return "", nil, nil, fmt.Errorf("object missing required field %q", "type")
	}
	typeStr, ok := typeRaw.(string)
	if !ok {
		return "", nil, nil, fmt.Errorf("object field %q must be a string", "type")
	}
	k := Kind(typeStr)
	if !k.Valid() {
		return "", nil, nil, fmt.Errorf("unknown object type %q", typeStr)
	}

	contentRaw, ok := raw["content"]
	if !ok {
		return "", nil, nil, fmt.Errorf("object missing required field %q", "content")
	}

	var metaVals map[string]Value
	if metaRaw, ok := raw["metadata"]; ok {
		metaMap, ok := metaRaw.(map[string]any)
		if !ok {
			return "", nil, nil, fmt.Errorf("object field %q must be a mapping", "metadata")
		}
		metaVals = make(map[string]Value, len(metaMap))
		for key, v := range metaMap {
			mv, err := FromAny(v)
			if err != nil {
				return "", nil, nil, fmt.Errorf("invalid metadata value for %q: %w", key, err)
			}
			metaVals[key] = mv
		}
	}

	return k, contentRaw, metaVals, nil
}
