// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package bundlesync

import (
	"fmt"

	"github.com/strongdm/snapstore/objectmodel"
	"github.com/strongdm/snapstore/storeerr"
)

// ImportResult reports the outcome of an import that produces a new
// snapshot.
type ImportResult struct {
	BundleDigests  []string
	SnapshotDigest string
	IdempotencyKey string
}

// CreateSnapshotFromBundles builds a Snapshot over bundleDigests,
// verifying each one already exists before referencing it.
func (a *Adapter) CreateSnapshotFromBundles(bundleDigests []string, parent string, metadata map[string]objectmodel.Value) (string, error) {
	for _, d := range bundleDigests {
		if !a.store.HasObject(d) {
			return "", &storeerr.InvalidError{Reason: fmt.Sprintf("bundle %s does not exist", d)}
		}
	}
	return a.store.PutObject(objectmodel.NewSnapshot(bundleDigests, parent, metadata))
}

// ImportAndSnapshot imports every bundle, assembles them (plus an
// optional parent) into a new snapshot, and optionally records that
// snapshot under snapshotName. Pass "" for snapshotName to skip
// creating a named reference.
func (a *Adapter) ImportAndSnapshot(bundles []map[string]objectmodel.Value, parent, snapshotName string, metadata map[string]objectmodel.Value) (ImportResult, error) {
	bundleDigests, err := a.ImportBundles(bundles, nil)
	if err != nil {
		return ImportResult{}, err
	}
	snapshotDigest, err := a.CreateSnapshotFromBundles(bundleDigests, parent, metadata)
	if err != nil {
		return ImportResult{}, err
	}
	if snapshotName != "" {
		if err := a.store.PutSnapshotRef(snapshotName, snapshotDigest); err != nil {
			return ImportResult{}, err
		}
	}
	return ImportResult{
		BundleDigests:  bundleDigests,
		SnapshotDigest: snapshotDigest,
		IdempotencyKey: newIdempotencyKey(),
	}, nil
}

// ExtendSnapshot imports newBundles as a snapshot whose parent is
// parentDigest, which must already exist.
func (a *Adapter) ExtendSnapshot(parentDigest string, newBundles []map[string]objectmodel.Value, snapshotName string, metadata map[string]objectmodel.Value) (ImportResult, error) {
	if !a.store.HasObject(parentDigest) {
		return ImportResult{}, &storeerr.InvalidError{Digest: parentDigest, Reason: "parent snapshot does not exist"}
	}
	return a.ImportAndSnapshot(newBundles, parentDigest, snapshotName, metadata)
}

// GetSnapshotChain walks snapshotDigest's parent pointers and returns
// the chain root-first (ancestor first, snapshotDigest last). A cycle
// in the parent chain is reported as an InvalidReferenceError rather
// than looping forever. Nodes are loaded without integrity
// verification, mirroring gc.mark's deliberately non-strict load: a
// corrupt-but-present node should still surface as a cycle or a
// structural problem rather than masking both behind a premature
// CorruptedError.
func (a *Adapter) GetSnapshotChain(snapshotDigest string) ([]string, error) {
	visited := make(map[string]bool)
	var chain []string

	current := snapshotDigest
	for current != "" {
		if visited[current] {
			return nil, &storeerr.InvalidReferenceError{Reason: fmt.Sprintf("cycle detected in snapshot parent chain at %s", current)}
		}
		visited[current] = true
		chain = append(chain, current)

		kind, obj, err := a.store.GetObject(current, false)
		if err != nil {
			return nil, err
		}
		if kind != objectmodel.KindSnapshot {
			return nil, &storeerr.InvalidError{Digest: current, Reason: "object is not a snapshot"}
		}
		current = obj.(*objectmodel.Snapshot).Parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
