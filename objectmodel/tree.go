// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package objectmodel

import (
	"fmt"

	"github.com/strongdm/snapstore/hashing"
)

// Tree is a non-leaf object referencing a flat list of child object
// digests. Unlike a filesystem Merkle tree, the children carry no
// implied ordering semantics beyond the list order itself; an optional
// "names" metadata mapping (child digest -> display name) lets callers
// attach human-readable labels without the store needing to understand
// them.
type Tree struct {
	Children []string
	Metadata map[string]Value
}

// NewTree constructs a Tree over children with optional metadata.
func NewTree(children []string, metadata map[string]Value) *Tree {
	return &Tree{Children: children, Metadata: metadata}
}

func (t *Tree) content() map[string]any {
	children := make([]any, len(t.Children))
	for i, c := range t.Children {
		children[i] = c
	}
	return map[string]any{"children": children}
}

func (t *Tree) envelope() envelope {
	return envelope{Type: KindTree, Content: t.content(), Metadata: t.Metadata}
}

// Encode renders the tree in canonical form.
func (t *Tree) Encode() ([]byte, error) {
	return t.envelope().Encode()
}

// Digest computes the tree's content digest under h.
func (t *Tree) Digest(h *hashing.Hasher) (string, error) {
	return t.envelope().Digest(h)
}

// ChildCount returns the number of direct children.
func (t *Tree) ChildCount() int { return len(t.Children) }

// HasChildren reports whether the tree has at least one child.
func (t *Tree) HasChildren() bool { return len(t.Children) > 0 }

// ChildNames returns the digest -> name mapping stored under the
// "names" metadata key, or nil if absent or malformed.
func (t *Tree) ChildNames() map[string]string {
	v, ok := t.Metadata["names"]
	if !ok || v.Kind() != KindMap {
		return nil
	}
	names := make(map[string]string, len(v.MapValue()))
	for k, nv := range v.MapValue() {
		if nv.Kind() == KindString {
			names[k] = nv.StringValue()
		}
	}
	return names
}

// WithChild returns a copy of t with child appended, optionally
// recording a display name for it in metadata.
func (t *Tree) WithChild(child string, name string) *Tree {
	children := append(append([]string(nil), t.Children...), child)
	metadata := cloneMetadata(t.Metadata)
	if name != "" {
		names := map[string]Value{}
		if existing, ok := metadata["names"]; ok && existing.Kind() == KindMap {
			for k, v := range existing.MapValue() {
				names[k] = v
			}
		}
		names[child] = String(name)
		metadata["names"] = Map(names)
	}
	return &Tree{Children: children, Metadata: metadata}
}

// WithoutChild returns a copy of t with every occurrence of child
// removed, along with its display name if one was recorded.
func (t *Tree) WithoutChild(child string) *Tree {
	children := make([]string, 0, len(t.Children))
	for _, c := range t.Children {
		if c != child {
			children = append(children, c)
		}
	}
	metadata := cloneMetadata(t.Metadata)
	if existing, ok := metadata["names"]; ok && existing.Kind() == KindMap {
		names := map[string]Value{}
		for k, v := range existing.MapValue() {
			if k != child {
				names[k] = v
			}
		}
		metadata["names"] = Map(names)
	}
	return &Tree{Children: children, Metadata: metadata}
}

func cloneMetadata(m map[string]Value) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DecodeTree reconstructs a Tree from an already-parsed envelope.
func DecodeTree(content any, metadata map[string]Value) (*Tree, error) {
	m, ok := content.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("objectmodel: tree content must be a mapping, got %T", content)
	}
	childrenRaw, ok := m["children"]
	if !ok {
		return nil, fmt.Errorf("objectmodel: tree missing required field %q", "children")
	}
	childrenList, ok := childrenRaw.([]any)
	if !ok {
		return nil, fmt.Errorf("objectmodel: tree field %q must be a list", "children")
	}
	children := make([]string, len(childrenList))
	for i, c := range childrenList {
		s, ok := c.(string)
		if !ok {
			return nil, fmt.Errorf("objectmodel: tree child reference at index %d must be a string", i)
		}
		children[i] = s
	}
	return &Tree{Children: children, Metadata: metadata}, nil
}
