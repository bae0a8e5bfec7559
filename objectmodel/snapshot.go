// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package objectmodel

import (
	"fmt"

	"github.com/strongdm/snapstore/hashing"
)

// Snapshot is a point-in-time reference to a set of bundles and,
// optionally, a parent snapshot, forming a DAG over time.
type Snapshot struct {
	Bundles  []string
	Parent   string // empty means no parent
	Metadata map[string]Value
}

// NewSnapshot constructs a Snapshot over bundles with an optional
// parent digest (pass "" for none).
func NewSnapshot(bundles []string, parent string, metadata map[string]Value) *Snapshot {
	return &Snapshot{Bundles: bundles, Parent: parent, Metadata: metadata}
}

func (s *Snapshot) content() map[string]any {
	bundles := make([]any, len(s.Bundles))
	for i, b := range s.Bundles {
		bundles[i] = b
	}
	m := map[string]any{"bundles": bundles}
	if s.Parent != "" {
		m["parent"] = s.Parent
	}
	return m
}

func (s *Snapshot) envelope() envelope {
	return envelope{Type: KindSnapshot, Content: s.content(), Metadata: s.Metadata}
}

// Encode renders the snapshot in canonical form.
func (s *Snapshot) Encode() ([]byte, error) {
	return s.envelope().Encode()
}

// Digest computes the snapshot's content digest under h.
func (s *Snapshot) Digest(h *hashing.Hasher) (string, error) {
	return s.envelope().Digest(h)
}

// BundleCount returns the number of bundles referenced.
func (s *Snapshot) BundleCount() int { return len(s.Bundles) }

// HasParent reports whether the snapshot has a parent reference.
func (s *Snapshot) HasParent() bool { return s.Parent != "" }

// References returns every digest this snapshot refers to directly:
// its bundles, plus its parent if set.
func (s *Snapshot) References() []string {
	refs := make([]string, 0, len(s.Bundles)+1)
	refs = append(refs, s.Bundles...)
	if s.Parent != "" {
		refs = append(refs, s.Parent)
	}
	return refs
}

// WithParent returns a copy of s with its parent reference replaced.
func (s *Snapshot) WithParent(parent string) *Snapshot {
	return &Snapshot{Bundles: append([]string(nil), s.Bundles...), Parent: parent, Metadata: s.Metadata}
}

// WithAdditionalBundles returns a copy of s with bundles appended.
func (s *Snapshot) WithAdditionalBundles(bundles ...string) *Snapshot {
	merged := append(append([]string(nil), s.Bundles...), bundles...)
	return &Snapshot{Bundles: merged, Parent: s.Parent, Metadata: s.Metadata}
}

// DecodeSnapshot reconstructs a Snapshot from an already-parsed envelope.
func DecodeSnapshot(content any, metadata map[string]Value) (*Snapshot, error) {
	m, ok := content.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("objectmodel: snapshot content must be a mapping, got %T", content)
	}
	bundlesRaw, ok := m["bundles"]
	if !ok {
		return nil, fmt.Errorf("objectmodel: snapshot missing required field %q", "bundles")
	}
	bundlesList, ok := bundlesRaw.([]any)
	if !ok {
		return nil, fmt.Errorf("objectmodel: snapshot field %q must be a list", "bundles")
	}
	bundles := make([]string, len(bundlesList))
	for i, b := range bundlesList {
		s, ok := b.(string)
		if !ok {
			return nil, fmt.Errorf("objectmodel: snapshot bundle reference at index %d must be a string", i)
		}
		bundles[i] = s
	}
	var parent string
	if parentRaw, ok := m["parent"]; ok {
		p, ok := parentRaw.(string)
		if !ok {
			return nil, fmt.Errorf("objectmodel: snapshot field %q must be a string", "parent")
		}
		parent = p
	}
	return &Snapshot{Bundles: bundles, Parent: parent, Metadata: metadata}, nil
}
