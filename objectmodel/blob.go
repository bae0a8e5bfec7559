// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package objectmodel

import (
	"encoding/base64"
	"fmt"

	"github.com/strongdm/snapstore/hashing"
)

// Blob is a leaf object holding arbitrary content. On disk its content
// is base64, so the envelope itself stays valid JSON regardless of the
// bytes it carries.
type Blob struct {
	Data     []byte
	Metadata map[string]Value
}

// NewBlob constructs a Blob over data with optional metadata.
func NewBlob(data []byte, metadata map[string]Value) *Blob {
	return &Blob{Data: data, Metadata: metadata}
}

func (b *Blob) envelope() envelope {
	return envelope{
		Type:     KindBlob,
		Content:  base64.StdEncoding.EncodeToString(b.Data),
		Metadata: b.Metadata,
	}
}

// Encode renders the blob in canonical form.
func (b *Blob) Encode() ([]byte, error) {
	return b.envelope().Encode()
}

// Digest computes the blob's content digest under h.
func (b *Blob) Digest(h *hashing.Hasher) (string, error) {
	return b.envelope().Digest(h)
}

// Size returns the number of content bytes.
func (b *Blob) Size() int { return len(b.Data) }

// DecodeBlob reconstructs a Blob from an already-parsed envelope.
// content must be the base64 string produced by Encode.
func DecodeBlob(content any, metadata map[string]Value) (*Blob, error) {
	s, ok := content.(string)
	if !ok {
		return nil, fmt.Errorf("objectmodel: blob content must be a base64 string, got %T", content)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("objectmodel: blob content is not valid base64: %w", err)
	}
	return &Blob{Data: data, Metadata: metadata}, nil
}
