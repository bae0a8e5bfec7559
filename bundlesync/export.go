// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package bundlesync

import (
	"github.com/strongdm/snapstore/objectmodel"
	"github.com/strongdm/snapstore/storage"
	"github.com/strongdm/snapstore/storeerr"
)

// ExportBundle returns the raw payload of the bundle stored under
// digest.
func (a *Adapter) ExportBundle(digest string) (map[string]objectmodel.Value, error) {
	kind, obj, err := a.store.GetObject(digest, true)
	if err != nil {
		return nil, err
	}
	if kind != objectmodel.KindBundle {
		return nil, &storeerr.InvalidError{Digest: digest, Reason: "object is not a bundle"}
	}
	return obj.(*objectmodel.Bundle).Data, nil
}

// ExportSnapshotBundles returns the payload of every bundle a
// snapshot directly references, in the snapshot's bundle order.
func (a *Adapter) ExportSnapshotBundles(snapshotDigest string) ([]map[string]objectmodel.Value, error) {
	kind, obj, err := a.store.GetObject(snapshotDigest, true)
	if err != nil {
		return nil, err
	}
	if kind != objectmodel.KindSnapshot {
		return nil, &storeerr.InvalidError{Digest: snapshotDigest, Reason: "object is not a snapshot"}
	}
	snap := obj.(*objectmodel.Snapshot)

	out := make([]map[string]objectmodel.Value, len(snap.Bundles))
	for i, bundleDigest := range snap.Bundles {
		data, err := a.ExportBundle(bundleDigest)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

// Statistics augments storage-level stats with object-kind counts
// that require decoding every object to compute.
type Statistics struct {
	storage.Stats
	BundleCount   int
	SnapshotCount int
}

// GetStatistics scans the store and reports bundle/snapshot counts
// alongside the underlying storage statistics.
func (a *Adapter) GetStatistics() (Statistics, error) {
	digests, err := a.store.ListAllObjects()
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{Stats: a.store.GetStats()}
	for _, digest := range digests {
		kind, _, err := a.store.GetObject(digest, false)
		if err != nil {
			continue
		}
		switch kind {
		case objectmodel.KindBundle:
			stats.BundleCount++
		case objectmodel.KindSnapshot:
			stats.SnapshotCount++
		}
	}
	return stats, nil
}
