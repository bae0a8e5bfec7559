// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package snapstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/strongdm/snapstore/config"
	"github.com/strongdm/snapstore/hashing"
	"github.com/strongdm/snapstore/objectmodel"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	root := t.TempDir()
	e, err := Open(config.Config{Root: root, HashAlgorithm: hashing.BLAKE3})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestOpenCreatesLayoutAndLock(t *testing.T) {
	root := t.TempDir()
	e, err := Open(config.Config{Root: root, HashAlgorithm: hashing.BLAKE3})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, lockFileName)); err != nil {
		t.Fatalf("lockfile not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "objects")); err != nil {
		t.Fatalf("objects directory not created: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpenRefusesSecondLock(t *testing.T) {
	root := t.TempDir()
	e, err := Open(config.Config{Root: root, HashAlgorithm: hashing.BLAKE3})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	if _, err := Open(config.Config{Root: root, HashAlgorithm: hashing.BLAKE3}); err == nil {
		t.Fatalf("expected second Open against a locked root to fail")
	}
}

func TestBlobRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	digest, err := e.PutBlob([]byte("hello"), nil)
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	blob, err := e.GetBlob(digest)
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if string(blob.Data) != "hello" {
		t.Fatalf("got %q, want hello", blob.Data)
	}
}

func TestGetBlobRejectsWrongKind(t *testing.T) {
	e := newTestEngine(t)
	digest, err := e.PutTree(nil, nil)
	if err != nil {
		t.Fatalf("PutTree: %v", err)
	}
	if _, err := e.GetBlob(digest); err == nil {
		t.Fatalf("expected GetBlob to reject a tree digest")
	}
}

func TestSnapshotRefAndGCRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	bundleDigest, err := e.PutBundle(map[string]objectmodel.Value{"k": objectmodel.String("v")}, nil)
	if err != nil {
		t.Fatalf("PutBundle: %v", err)
	}
	snapDigest, err := e.PutSnapshot([]string{bundleDigest}, "", nil)
	if err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}
	if err := e.CreateSnapshotRef("head", snapDigest); err != nil {
		t.Fatalf("CreateSnapshotRef: %v", err)
	}

	orphanDigest, err := e.PutBlob([]byte("orphan"), nil)
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}

	result, err := e.GarbageCollect(false)
	if err != nil {
		t.Fatalf("GarbageCollect: %v", err)
	}
	if len(result.Deleted) != 1 || result.Deleted[0] != orphanDigest {
		t.Fatalf("got Deleted=%v, want [%s]", result.Deleted, orphanDigest)
	}
	if !e.HasObject(snapDigest) || !e.HasObject(bundleDigest) {
		t.Fatalf("GC deleted a reachable object")
	}
	if e.HasObject(orphanDigest) {
		t.Fatalf("GC left the orphan blob behind")
	}
}

func TestImportSyncBundlesAndArchiveRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.ImportSyncBundles([]map[string]objectmodel.Value{
		{"sequence": objectmodel.Int(1)},
	}, "", "main", nil)
	if err != nil {
		t.Fatalf("ImportSyncBundles: %v", err)
	}

	archiveBytes, err := e.ExportArchive(result.SnapshotDigest)
	if err != nil {
		t.Fatalf("ExportArchive: %v", err)
	}

	dest := newTestEngine(t)
	importedRoot, err := dest.ImportArchive(archiveBytes)
	if err != nil {
		t.Fatalf("ImportArchive: %v", err)
	}
	if importedRoot != result.SnapshotDigest {
		t.Fatalf("got root %q, want %q", importedRoot, result.SnapshotDigest)
	}
	if !dest.HasObject(result.SnapshotDigest) {
		t.Fatalf("destination missing imported snapshot")
	}
}

func TestVerifyAllInvariantsOnHealthyStore(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.PutBlob([]byte("x"), nil); err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	report := e.VerifyAllInvariants()
	if !report.AllPassed() {
		t.Fatalf("expected all invariants to pass, got failures: %v", report.Failed)
	}
}

func TestDetectTamperingScansWholeStore(t *testing.T) {
	e := newTestEngine(t)
	good, err := e.PutBlob([]byte("untouched"), nil)
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	bad, err := e.PutBlob([]byte("will be tampered"), nil)
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}

	if err := os.WriteFile(e.store.Layout().ObjectPath(bad), []byte("corrupted bytes"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	result, err := e.DetectTampering()
	if err != nil {
		t.Fatalf("DetectTampering: %v", err)
	}
	if result.Verified != 1 {
		t.Fatalf("got Verified=%d, want 1 (only %s)", result.Verified, good)
	}
	if len(result.Tampered) != 1 || result.Tampered[0] != bad {
		t.Fatalf("got Tampered=%v, want [%s]", result.Tampered, bad)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(result.Errors))
	}
}

func TestDetectMissingObjectsScansWholeStore(t *testing.T) {
	e := newTestEngine(t)
	bundleDigest, err := e.PutBundle(map[string]objectmodel.Value{"k": objectmodel.String("v")}, nil)
	if err != nil {
		t.Fatalf("PutBundle: %v", err)
	}
	snapDigest, err := e.PutSnapshot([]string{bundleDigest}, "", nil)
	if err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}

	if err := os.Remove(e.store.Layout().ObjectPath(bundleDigest)); err != nil {
		t.Fatalf("remove: %v", err)
	}

	report, err := e.DetectMissingObjects()
	if err != nil {
		t.Fatalf("DetectMissingObjects: %v", err)
	}
	if len(report.BrokenSnapshots) != 1 || report.BrokenSnapshots[0] != snapDigest {
		t.Fatalf("got BrokenSnapshots=%v, want [%s]", report.BrokenSnapshots, snapDigest)
	}
	if len(report.MissingObjects) != 1 || report.MissingObjects[0] != bundleDigest {
		t.Fatalf("got MissingObjects=%v, want [%s]", report.MissingObjects, bundleDigest)
	}
}

func TestExportSnapshotJSON(t *testing.T) {
	e := newTestEngine(t)
	snapDigest, err := e.PutSnapshot(nil, "", nil)
	if err != nil {
		t.Fatalf("PutSnapshot: %v", err)
	}
	data, err := e.ExportSnapshotJSON(snapDigest)
	if err != nil {
		t.Fatalf("ExportSnapshotJSON: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty JSON bytes")
	}
}
