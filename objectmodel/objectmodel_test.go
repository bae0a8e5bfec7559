// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package objectmodel

import (
	"testing"

	"github.com/strongdm/snapstore/hashing"
)

func mustHasher(t *testing.T) *hashing.Hasher {
	t.Helper()
	h, err := hashing.New(hashing.BLAKE3)
	if err != nil {
		t.Fatalf("hashing.New: %v", err)
	}
	return h
}

func TestBlobRoundTrip(t *testing.T) {
	h := mustHasher(t)
	b := NewBlob([]byte("hello"), map[string]Value{"note": String("greeting")})

	encoded, err := b.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	kind, obj, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if kind != KindBlob {
		t.Fatalf("got kind %q, want blob", kind)
	}
	decoded := obj.(*Blob)
	if string(decoded.Data) != "hello" {
		t.Fatalf("got data %q, want hello", decoded.Data)
	}

	d1, err := b.Digest(h)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	d2, err := decoded.Digest(h)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("digest not preserved across round trip: %s vs %s", d1, d2)
	}
}

func TestBlobContentAddressing(t *testing.T) {
	h := mustHasher(t)
	a := NewBlob([]byte("same"), nil)
	b := NewBlob([]byte("same"), nil)
	c := NewBlob([]byte("different"), nil)

	da, _ := a.Digest(h)
	db, _ := b.Digest(h)
	dc, _ := c.Digest(h)

	if da != db {
		t.Fatalf("identical content produced different digests: %s vs %s", da, db)
	}
	if da == dc {
		t.Fatalf("different content produced identical digests")
	}
}

func TestBundleFieldAccessors(t *testing.T) {
	bundle := NewBundle(map[string]Value{
		"sequence":   Int(7),
		"operations": Array(String("op1"), String("op2")),
	}, nil)

	seq, ok := bundle.SequenceNumber()
	if !ok || seq != 7 {
		t.Fatalf("got SequenceNumber() = (%d, %v), want (7, true)", seq, ok)
	}
	ops := bundle.Operations()
	if len(ops) != 2 || ops[0].StringValue() != "op1" {
		t.Fatalf("unexpected operations: %+v", ops)
	}
}

func TestBundleRoundTrip(t *testing.T) {
	bundle := NewBundle(map[string]Value{"k": String("v")}, nil)
	encoded, err := bundle.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	kind, obj, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if kind != KindBundle {
		t.Fatalf("got kind %q, want bundle", kind)
	}
	decoded := obj.(*Bundle)
	if decoded.Data["k"].StringValue() != "v" {
		t.Fatalf("field not preserved: %+v", decoded.Data)
	}
}

func TestSnapshotReferencesIncludeParentAndBundles(t *testing.T) {
	snap := NewSnapshot([]string{"b1", "b2"}, "p1", nil)
	refs := snap.References()
	if len(refs) != 3 {
		t.Fatalf("got %d references, want 3: %v", len(refs), refs)
	}
	if !snap.HasParent() {
		t.Fatalf("expected HasParent() true")
	}
}

func TestSnapshotWithoutParentOmitsField(t *testing.T) {
	snap := NewSnapshot([]string{"b1"}, "", nil)
	encoded, err := snap.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if containsSubstring(string(encoded), `"parent"`) {
		t.Fatalf("parentless snapshot should omit parent field: %s", encoded)
	}
}

func TestSnapshotImmutableBuilders(t *testing.T) {
	original := NewSnapshot([]string{"b1"}, "", nil)
	withParent := original.WithParent("p1")
	withMore := original.WithAdditionalBundles("b2")

	if original.HasParent() {
		t.Fatalf("original snapshot mutated by WithParent")
	}
	if original.BundleCount() != 1 {
		t.Fatalf("original snapshot mutated by WithAdditionalBundles")
	}
	if !withParent.HasParent() || withParent.Parent != "p1" {
		t.Fatalf("WithParent did not set parent")
	}
	if withMore.BundleCount() != 2 {
		t.Fatalf("WithAdditionalBundles did not append")
	}
}

func TestTreeWithChildAndWithoutChild(t *testing.T) {
	tree := NewTree(nil, nil)
	tree = tree.WithChild("d1", "file.txt")
	tree = tree.WithChild("d2", "")

	if tree.ChildCount() != 2 {
		t.Fatalf("got %d children, want 2", tree.ChildCount())
	}
	names := tree.ChildNames()
	if names["d1"] != "file.txt" {
		t.Fatalf("name not recorded: %+v", names)
	}
	if _, ok := names["d2"]; ok {
		t.Fatalf("unnamed child should not appear in names map")
	}

	tree = tree.WithoutChild("d1")
	if tree.ChildCount() != 1 || tree.Children[0] != "d2" {
		t.Fatalf("WithoutChild did not remove d1: %+v", tree.Children)
	}
	if _, ok := tree.ChildNames()["d1"]; ok {
		t.Fatalf("WithoutChild should also remove the child's name")
	}
}

func TestTreeRoundTrip(t *testing.T) {
	tree := NewTree([]string{"c1", "c2"}, nil)
	encoded, err := tree.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	kind, obj, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if kind != KindTree {
		t.Fatalf("got kind %q, want tree", kind)
	}
	decoded := obj.(*Tree)
	if len(decoded.Children) != 2 || decoded.Children[1] != "c2" {
		t.Fatalf("children not preserved: %+v", decoded.Children)
	}
}

func TestReferencesHelper(t *testing.T) {
	snap := NewSnapshot([]string{"b1"}, "p1", nil)
	refs := References(snap)
	if len(refs) != 2 {
		t.Fatalf("got %d references, want 2", len(refs))
	}

	blob := NewBlob([]byte("x"), nil)
	if refs := References(blob); refs != nil {
		t.Fatalf("blob should have no references, got %v", refs)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	if _, _, err := Decode([]byte(`{"type":"mystery","content":{}}`)); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestDecodeRejectsMissingContent(t *testing.T) {
	if _, _, err := Decode([]byte(`{"type":"blob"}`)); err == nil {
		t.Fatalf("expected error for missing content")
	}
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
