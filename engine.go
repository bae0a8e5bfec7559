// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package snapstore is a content-addressed, immutable object store
// with snapshot semantics. It accepts opaque bundle payloads, seals
// them into digest-addressed objects, composes them into ordered
// snapshots forming a DAG through parent references, and maintains
// storage integrity against corruption and tampering while reclaiming
// unreferenced objects through tracing garbage collection.
package snapstore

import (
	"log/slog"

	"github.com/strongdm/snapstore/archive"
	"github.com/strongdm/snapstore/bundlesync"
	"github.com/strongdm/snapstore/config"
	"github.com/strongdm/snapstore/gc"
	"github.com/strongdm/snapstore/hashing"
	"github.com/strongdm/snapstore/invariant"
	"github.com/strongdm/snapstore/objectmodel"
	"github.com/strongdm/snapstore/storage"
	"github.com/strongdm/snapstore/storeerr"
	"github.com/strongdm/snapstore/verify"
)

// Engine is the façade over every component: one Layout, one
// ObjectStore, one bundlesync.Adapter, one gc.Collector, and an
// invariant.Registry wired against all of them. It is the only
// component that treats PutRef as marking a GC root.
type Engine struct {
	root      string
	lockPath  string
	layout    *storage.Layout
	hasher    *hashing.Hasher
	store     *storage.ObjectStore
	verifier  *verify.Verifier
	collector *gc.Collector
	sync      *bundlesync.Adapter
	invariant *invariant.Registry
	logger    *slog.Logger
}

// Open initializes the store at cfg.Root (creating its directory
// structure if needed), acquires the advisory lockfile, and returns a
// ready Engine. Callers must call Close when done.
func Open(cfg config.Config) (*Engine, error) {
	layout := storage.NewLayout(cfg.Root)
	if err := layout.Initialize(); err != nil {
		return nil, err
	}
	lockPath, err := acquireLock(cfg.Root)
	if err != nil {
		return nil, err
	}

	hasher, err := hashing.New(cfg.HashAlgorithm)
	if err != nil {
		releaseLock(lockPath)
		return nil, err
	}

	store := storage.NewObjectStore(layout, hasher, cfg.StagingDir)
	logger := slog.Default()
	v := verify.New(store, hasher)
	collector := gc.New(store, logger)
	sync := bundlesync.New(store)

	e := &Engine{
		root:      cfg.Root,
		lockPath:  lockPath,
		layout:    layout,
		hasher:    hasher,
		store:     store,
		verifier:  v,
		collector: collector,
		sync:      sync,
		logger:    logger,
	}
	e.invariant = invariant.NewCoreRegistry(store, hasher, v, collector, e.listGCRoots)
	return e, nil
}

// Close releases the advisory lockfile. It does not close any
// in-memory resources since ObjectStore performs no buffering.
func (e *Engine) Close() error {
	return releaseLock(e.lockPath)
}

// Initialize (re-)creates the store's directory structure. Open
// already calls this during startup; it is exposed directly so
// callers can restore a deleted objects/snapshots/refs directory
// without reopening the store.
func (e *Engine) Initialize() error {
	return e.layout.Initialize()
}

// listGCRoots gathers every digest a named reference of any kind
// currently points at: snapshot refs and generic refs alike.
func (e *Engine) listGCRoots() ([]string, error) {
	var roots []string

	snapshotNames, err := e.store.ListSnapshotRefs()
	if err != nil {
		return nil, err
	}
	for _, name := range snapshotNames {
		digest, ok, err := e.store.GetSnapshotRef(name)
		if err != nil {
			return nil, err
		}
		if ok {
			roots = append(roots, digest)
		}
	}

	refNames, err := e.store.ListRefs()
	if err != nil {
		return nil, err
	}
	for _, name := range refNames {
		digest, ok, err := e.store.GetRef(name)
		if err != nil {
			return nil, err
		}
		if ok {
			roots = append(roots, digest)
		}
	}

	return roots, nil
}

// --- blob ---

// PutBlob stores raw bytes as a Blob and returns its digest.
func (e *Engine) PutBlob(data []byte, metadata map[string]objectmodel.Value) (string, error) {
	return e.store.PutObject(objectmodel.NewBlob(data, metadata))
}

// GetBlob fetches and decodes the Blob stored under digest.
func (e *Engine) GetBlob(digest string) (*objectmodel.Blob, error) {
	kind, obj, err := e.store.GetObject(digest, true)
	if err != nil {
		return nil, err
	}
	if kind != objectmodel.KindBlob {
		return nil, &storeerr.InvalidError{Digest: digest, Reason: "object is not a blob"}
	}
	return obj.(*objectmodel.Blob), nil
}

// --- bundle ---

// PutBundle stores data as a Bundle and returns its digest.
func (e *Engine) PutBundle(data map[string]objectmodel.Value, metadata map[string]objectmodel.Value) (string, error) {
	return e.sync.ImportBundle(data, metadata)
}

// GetBundle fetches and decodes the Bundle stored under digest.
func (e *Engine) GetBundle(digest string) (*objectmodel.Bundle, error) {
	kind, obj, err := e.store.GetObject(digest, true)
	if err != nil {
		return nil, err
	}
	if kind != objectmodel.KindBundle {
		return nil, &storeerr.InvalidError{Digest: digest, Reason: "object is not a bundle"}
	}
	return obj.(*objectmodel.Bundle), nil
}

// --- snapshot ---

// PutSnapshot stores a Snapshot over bundles with the given parent
// (empty for none) and returns its digest. Every bundle digest must
// already exist.
func (e *Engine) PutSnapshot(bundles []string, parent string, metadata map[string]objectmodel.Value) (string, error) {
	return e.sync.CreateSnapshotFromBundles(bundles, parent, metadata)
}

// GetSnapshot fetches and decodes the Snapshot stored under digest.
func (e *Engine) GetSnapshot(digest string) (*objectmodel.Snapshot, error) {
	kind, obj, err := e.store.GetObject(digest, true)
	if err != nil {
		return nil, err
	}
	if kind != objectmodel.KindSnapshot {
		return nil, &storeerr.InvalidError{Digest: digest, Reason: "object is not a snapshot"}
	}
	return obj.(*objectmodel.Snapshot), nil
}

// --- tree ---

// PutTree stores a Tree over children and returns its digest.
func (e *Engine) PutTree(children []string, metadata map[string]objectmodel.Value) (string, error) {
	return e.store.PutObject(objectmodel.NewTree(children, metadata))
}

// GetTree fetches and decodes the Tree stored under digest.
func (e *Engine) GetTree(digest string) (*objectmodel.Tree, error) {
	kind, obj, err := e.store.GetObject(digest, true)
	if err != nil {
		return nil, err
	}
	if kind != objectmodel.KindTree {
		return nil, &storeerr.InvalidError{Digest: digest, Reason: "object is not a tree"}
	}
	return obj.(*objectmodel.Tree), nil
}

// --- raw / existence / listing ---

// HasObject reports whether digest exists, without validating it.
func (e *Engine) HasObject(digest string) bool {
	return e.store.HasObject(digest)
}

// GetObjectRaw returns the raw canonical-JSON bytes stored under
// digest.
func (e *Engine) GetObjectRaw(digest string) ([]byte, error) {
	return e.store.GetObjectRaw(digest)
}

// ListAllObjects returns every digest currently on disk.
func (e *Engine) ListAllObjects() ([]string, error) {
	return e.store.ListAllObjects()
}

// ExportSnapshotJSON returns the canonical-JSON bytes of the snapshot
// stored under digest, verifying it is in fact a snapshot first.
func (e *Engine) ExportSnapshotJSON(digest string) ([]byte, error) {
	if _, err := e.GetSnapshot(digest); err != nil {
		return nil, err
	}
	return e.store.GetObjectRaw(digest)
}

// --- named references ---

// CreateSnapshotRef records name as pointing at snapshotDigest.
func (e *Engine) CreateSnapshotRef(name, snapshotDigest string) error {
	return e.store.PutSnapshotRef(name, snapshotDigest)
}

// GetSnapshotRef returns the digest recorded under name.
func (e *Engine) GetSnapshotRef(name string) (string, bool, error) {
	return e.store.GetSnapshotRef(name)
}

// DeleteSnapshotRef removes the named snapshot reference.
func (e *Engine) DeleteSnapshotRef(name string) (bool, error) {
	return e.store.DeleteSnapshotRef(name)
}

// ListSnapshotRefs returns every named snapshot reference.
func (e *Engine) ListSnapshotRefs() ([]string, error) {
	return e.store.ListSnapshotRefs()
}

// PutRef records name as pointing at digest under the generic refs/
// directory, marking digest as a GC root alongside named snapshots.
func (e *Engine) PutRef(name, digest string) error {
	return e.store.PutRef(name, digest)
}

// GetRef returns the digest recorded under name in refs/.
func (e *Engine) GetRef(name string) (string, bool, error) {
	return e.store.GetRef(name)
}

// DeleteRef removes the named generic reference.
func (e *Engine) DeleteRef(name string) (bool, error) {
	return e.store.DeleteRef(name)
}

// ListRefs returns every named generic reference.
func (e *Engine) ListRefs() ([]string, error) {
	return e.store.ListRefs()
}

// --- verification ---

// VerifyObject verifies the stored bytes under digest hash to digest
// and decode structurally.
func (e *Engine) VerifyObject(digest string) error {
	return e.verifier.VerifyObject(digest)
}

// VerifySnapshot recursively verifies a snapshot, its bundles, and its
// parent chain, collecting every failure rather than stopping at the
// first.
func (e *Engine) VerifySnapshot(digest string) []verify.VerifyError {
	return e.verifier.VerifySnapshot(digest)
}

// TamperScanResult partitions every object currently in the store into
// verified and tampered, for a whole-store DetectTampering pass.
type TamperScanResult struct {
	Verified int
	Tampered []string
	Errors   []string
}

// DetectTampering attempts a verifying read of every object in the
// store, partitioning digests into verified and tampered rather than
// stopping at the first failure, so a single bad object doesn't block
// a diagnostic sweep of the rest.
func (e *Engine) DetectTampering() (TamperScanResult, error) {
	digests, err := e.store.ListAllObjects()
	if err != nil {
		return TamperScanResult{}, err
	}

	var result TamperScanResult
	for _, digest := range digests {
		if err := e.verifier.VerifyObject(digest); err != nil {
			te := &storeerr.TamperDetectedError{Digest: digest, Details: err.Error()}
			result.Tampered = append(result.Tampered, digest)
			result.Errors = append(result.Errors, te.Error())
			continue
		}
		result.Verified++
	}
	return result, nil
}

// MissingObjectsReport collects every snapshot whose transitive
// closure is missing a reference, and every digest found missing,
// from a whole-store DetectMissingObjects pass.
type MissingObjectsReport struct {
	BrokenSnapshots []string
	MissingObjects  []string
}

// DetectMissingObjects enumerates every snapshot in the store and
// recursively verifies its transitive closure, collecting the
// snapshots and the referenced digests that turned out missing.
func (e *Engine) DetectMissingObjects() (MissingObjectsReport, error) {
	digests, err := e.store.ListAllObjects()
	if err != nil {
		return MissingObjectsReport{}, err
	}

	var report MissingObjectsReport
	seen := make(map[string]bool)
	for _, digest := range digests {
		kind, _, err := e.store.GetObject(digest, false)
		if err != nil || kind != objectmodel.KindSnapshot {
			continue
		}
		missing := e.verifier.DetectMissingObjects(digest)
		if len(missing) == 0 {
			continue
		}
		report.BrokenSnapshots = append(report.BrokenSnapshots, digest)
		for _, m := range missing {
			if !seen[m] {
				seen[m] = true
				report.MissingObjects = append(report.MissingObjects, m)
			}
		}
	}
	return report, nil
}

// VerifyAllInvariants runs every registered invariant check against
// the live store.
func (e *Engine) VerifyAllInvariants() invariant.Report {
	return e.invariant.VerifyAll()
}

// --- garbage collection ---

// GarbageCollect runs mark-and-sweep collection rooted at every named
// snapshot ref and generic ref currently recorded.
func (e *Engine) GarbageCollect(dryRun bool) (gc.Result, error) {
	roots, err := e.listGCRoots()
	if err != nil {
		return gc.Result{}, err
	}
	return e.collector.Collect(roots, dryRun)
}

// VerifyGCSafety reports any GC root that is missing or fails to
// load.
func (e *Engine) VerifyGCSafety() ([]string, error) {
	roots, err := e.listGCRoots()
	if err != nil {
		return nil, err
	}
	return e.collector.VerifyGCSafety(roots), nil
}

// --- sync / bundle import ---

// ImportSyncBundles imports bundles, assembles them into a snapshot
// parented on parent, and optionally publishes it under snapshotName.
func (e *Engine) ImportSyncBundles(bundles []map[string]objectmodel.Value, parent, snapshotName string, metadata map[string]objectmodel.Value) (bundlesync.ImportResult, error) {
	return e.sync.ImportAndSnapshot(bundles, parent, snapshotName, metadata)
}

// ExtendSnapshot imports newBundles as a snapshot parented on
// parentDigest, which must already exist.
func (e *Engine) ExtendSnapshot(parentDigest string, newBundles []map[string]objectmodel.Value, snapshotName string, metadata map[string]objectmodel.Value) (bundlesync.ImportResult, error) {
	return e.sync.ExtendSnapshot(parentDigest, newBundles, snapshotName, metadata)
}

// ExportSnapshotBundles returns the payload of every bundle a snapshot
// directly references, in order.
func (e *Engine) ExportSnapshotBundles(snapshotDigest string) ([]map[string]objectmodel.Value, error) {
	return e.sync.ExportSnapshotBundles(snapshotDigest)
}

// GetSnapshotChain walks snapshotDigest's parent pointers root-first.
func (e *Engine) GetSnapshotChain(snapshotDigest string) ([]string, error) {
	return e.sync.GetSnapshotChain(snapshotDigest)
}

// GetStatistics reports storage and object-kind counts.
func (e *Engine) GetStatistics() (bundlesync.Statistics, error) {
	return e.sync.GetStatistics()
}

// --- archive ---

// ExportArchive walks root's transitive closure and encodes it as
// portable msgpack bytes suitable for moving between stores.
func (e *Engine) ExportArchive(root string) ([]byte, error) {
	a, err := archive.Export(e.store, root)
	if err != nil {
		return nil, err
	}
	return archive.EncodeMsgpack(a)
}

// ImportArchive decodes data produced by ExportArchive and writes
// every object it contains into this store, returning the archive's
// root digest.
func (e *Engine) ImportArchive(data []byte) (string, error) {
	a, err := archive.DecodeMsgpack(data)
	if err != nil {
		return "", &storeerr.InvalidError{Reason: err.Error()}
	}
	return archive.Import(e.store, a)
}
