// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package objectmodel

import (
	"fmt"

	"github.com/strongdm/snapstore/hashing"
)

// Object is implemented by every object kind.
type Object interface {
	Encode() ([]byte, error)
	Digest(h *hashing.Hasher) (string, error)
}

// Decode parses raw bytes into the appropriate concrete type (*Blob,
// *Bundle, *Snapshot, or *Tree) based on the envelope's "type" field.
func Decode(data []byte) (Kind, Object, error) {
	kind, content, metadata, err := ParseEnvelope(data)
	if err != nil {
		return "", nil, err
	}
	obj, err := decodeContent(kind, content, metadata)
	if err != nil {
		return "", nil, err
	}
	return kind, obj, nil
}

func decodeContent(kind Kind, content any, metadata map[string]Value) (Object, error) {
	switch kind {
	case KindBlob:
		return DecodeBlob(content, metadata)
	case KindBundle:
		return DecodeBundle(content, metadata)
	case KindSnapshot:
		return DecodeSnapshot(content, metadata)
	case KindTree:
		return DecodeTree(content, metadata)
	default:
		return nil, fmt.Errorf("objectmodel: unknown object type %q", kind)
	}
}

// References returns the digests that obj refers to directly: a
// snapshot's bundles and parent, or a tree's children. Blobs and
// bundles never reference other objects.
func References(obj Object) []string {
	switch o := obj.(type) {
	case *Snapshot:
		return o.References()
	case *Tree:
		return append([]string(nil), o.Children...)
	default:
		return nil
	}
}
