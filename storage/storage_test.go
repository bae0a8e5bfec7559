// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/strongdm/snapstore/hashing"
	"github.com/strongdm/snapstore/objectmodel"
	"github.com/strongdm/snapstore/storeerr"
)

func newTestStore(t *testing.T) (*Layout, *ObjectStore) {
	t.Helper()
	root := t.TempDir()
	layout := NewLayout(root)
	if err := layout.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	h, err := hashing.New(hashing.BLAKE3)
	if err != nil {
		t.Fatalf("hashing.New: %v", err)
	}
	return layout, NewObjectStore(layout, h, "")
}

func TestInitializeIsIdempotent(t *testing.T) {
	layout, _ := newTestStore(t)
	if err := layout.Initialize(); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
}

func TestPutGetBlobRoundTrip(t *testing.T) {
	_, store := newTestStore(t)
	blob := objectmodel.NewBlob([]byte("payload"), nil)

	digest, err := store.PutObject(blob)
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if !hashing.Valid(digest) {
		t.Fatalf("digest %q does not match on-disk shape", digest)
	}

	kind, obj, err := store.GetObject(digest, true)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if kind != objectmodel.KindBlob {
		t.Fatalf("got kind %q, want blob", kind)
	}
	if string(obj.(*objectmodel.Blob).Data) != "payload" {
		t.Fatalf("content not preserved")
	}
}

func TestPutIsIdempotent(t *testing.T) {
	_, store := newTestStore(t)
	blob := objectmodel.NewBlob([]byte("same"), nil)

	d1, err := store.PutObject(blob)
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	d2, err := store.PutObject(blob)
	if err != nil {
		t.Fatalf("PutObject second time: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("digest changed across idempotent puts: %s vs %s", d1, d2)
	}
}

func TestGetMissingObjectReturnsNotFound(t *testing.T) {
	_, store := newTestStore(t)
	missingDigest := "0000000000000000000000000000000000000000000000000000000000000000"[:64]
	_, _, err := store.GetObject(missingDigest, true)
	var nf *storeerr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("got %v, want *storeerr.NotFoundError", err)
	}
}

func TestGetCorruptedObjectReturnsCorrupted(t *testing.T) {
	layout, store := newTestStore(t)
	blob := objectmodel.NewBlob([]byte("original"), nil)
	digest, err := store.PutObject(blob)
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}

	path := layout.ObjectPath(digest)
	if err := os.WriteFile(path, []byte("tampered bytes"), 0o644); err != nil {
		t.Fatalf("tamper write: %v", err)
	}

	_, _, err = store.GetObject(digest, true)
	var ce *storeerr.CorruptedError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want *storeerr.CorruptedError", err)
	}
}

func TestPutSelfHealsCorruptExistingFile(t *testing.T) {
	layout, store := newTestStore(t)
	blob := objectmodel.NewBlob([]byte("healthy"), nil)
	data, _ := blob.Encode()
	h, _ := hashing.New(hashing.BLAKE3)
	digest := h.Sum(data)

	if err := layout.EnsureObjectDir(digest); err != nil {
		t.Fatalf("EnsureObjectDir: %v", err)
	}
	if err := os.WriteFile(layout.ObjectPath(digest), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	got, err := store.PutObject(blob)
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if got != digest {
		t.Fatalf("got digest %s, want %s", got, digest)
	}

	raw, err := store.GetObjectRaw(digest)
	if err != nil {
		t.Fatalf("GetObjectRaw: %v", err)
	}
	if string(raw) != string(data) {
		t.Fatalf("corrupt object was not self-healed")
	}
}

func TestDeleteObject(t *testing.T) {
	_, store := newTestStore(t)
	blob := objectmodel.NewBlob([]byte("to delete"), nil)
	digest, err := store.PutObject(blob)
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}

	deleted, err := store.DeleteObject(digest)
	if err != nil || !deleted {
		t.Fatalf("DeleteObject: deleted=%v err=%v", deleted, err)
	}
	if store.HasObject(digest) {
		t.Fatalf("object still present after delete")
	}

	deletedAgain, err := store.DeleteObject(digest)
	if err != nil || deletedAgain {
		t.Fatalf("second delete should report false, got %v err=%v", deletedAgain, err)
	}
}

func TestSnapshotRefRequiresExistingTarget(t *testing.T) {
	_, store := newTestStore(t)
	err := store.PutSnapshotRef("main", "deadbeef")
	var rm *storeerr.ReferenceMissingError
	if !errors.As(err, &rm) {
		t.Fatalf("got %v, want *storeerr.ReferenceMissingError", err)
	}
}

func TestSnapshotRefLifecycle(t *testing.T) {
	_, store := newTestStore(t)
	snap := objectmodel.NewSnapshot(nil, "", nil)
	digest, err := store.PutObject(snap)
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}

	if err := store.PutSnapshotRef("main", digest); err != nil {
		t.Fatalf("PutSnapshotRef: %v", err)
	}
	got, ok, err := store.GetSnapshotRef("main")
	if err != nil || !ok || got != digest {
		t.Fatalf("GetSnapshotRef: got=%q ok=%v err=%v", got, ok, err)
	}

	names, err := store.ListSnapshotRefs()
	if err != nil || len(names) != 1 || names[0] != "main" {
		t.Fatalf("ListSnapshotRefs: %v, err=%v", names, err)
	}

	deleted, err := store.DeleteSnapshotRef("main")
	if err != nil || !deleted {
		t.Fatalf("DeleteSnapshotRef: deleted=%v err=%v", deleted, err)
	}
	if _, ok, _ := store.GetSnapshotRef("main"); ok {
		t.Fatalf("snapshot ref still present after delete")
	}
}

func TestRefNameSanitization(t *testing.T) {
	layout, _ := newTestStore(t)
	path, err := layout.SnapshotRefPath("../../etc/passwd")
	if err != nil {
		t.Fatalf("SnapshotRefPath: %v", err)
	}
	if filepath.Dir(path) != layout.SnapshotsDir() {
		t.Fatalf("sanitized path escaped snapshots dir: %s", path)
	}

	if _, err := layout.SnapshotRefPath("..."); err == nil {
		t.Fatalf("expected error for name that sanitizes to empty")
	}
}

func TestListAllObjectsReflectsShards(t *testing.T) {
	_, store := newTestStore(t)
	a := objectmodel.NewBlob([]byte("a"), nil)
	b := objectmodel.NewBlob([]byte("b"), nil)
	da, err := store.PutObject(a)
	if err != nil {
		t.Fatalf("PutObject a: %v", err)
	}
	db, err := store.PutObject(b)
	if err != nil {
		t.Fatalf("PutObject b: %v", err)
	}

	all, err := store.ListAllObjects()
	if err != nil {
		t.Fatalf("ListAllObjects: %v", err)
	}
	seen := map[string]bool{}
	for _, d := range all {
		seen[d] = true
	}
	if !seen[da] || !seen[db] {
		t.Fatalf("ListAllObjects missing entries: %v", all)
	}
}
