// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package archive provides a portable transfer envelope for moving a
// snapshot and its full transitive closure between stores. It is
// distinct from the canonical-JSON format objects are hashed and
// stored in: archive bytes are never hashed or compared against a
// digest, they just carry already-hashed object bytes across a wire.
package archive

import (
	"github.com/strongdm/snapstore/objectmodel"
	"github.com/strongdm/snapstore/storage"
	"github.com/strongdm/snapstore/storeerr"
)

// Archive holds a snapshot's full transitive closure: every object
// reachable from RootDigest, keyed by hex digest and valued by that
// object's canonical-JSON encoding exactly as stored on disk.
type Archive struct {
	RootDigest string
	Objects    map[string][]byte
}

// Export walks root's transitive closure (the snapshot itself, every
// bundle it references, and its full parent chain, recursing into any
// tree children along the way) and collects the raw bytes of every
// object visited.
func Export(store *storage.ObjectStore, root string) (*Archive, error) {
	a := &Archive{RootDigest: root, Objects: make(map[string][]byte)}
	if err := collect(store, root, a.Objects); err != nil {
		return nil, err
	}
	return a, nil
}

func collect(store *storage.ObjectStore, digest string, seen map[string][]byte) error {
	if _, ok := seen[digest]; ok {
		return nil
	}
	data, err := store.GetObjectRaw(digest)
	if err != nil {
		return err
	}
	seen[digest] = data

	_, obj, err := store.GetObject(digest, false)
	if err != nil {
		return err
	}
	for _, ref := range objectmodel.References(obj) {
		if err := collect(store, ref, seen); err != nil {
			return err
		}
	}
	return nil
}

// Import writes every object in a into store, verifying each one's
// bytes match its claimed digest before storing it, then returns
// a.RootDigest. Objects are written in the archive's iteration order;
// since every object is content-addressed and PutObject is idempotent,
// order does not affect the outcome.
func Import(store *storage.ObjectStore, a *Archive) (string, error) {
	hasher := store.Hasher()
	for digest, data := range a.Objects {
		if !hasher.Verify(data, digest) {
			return "", &storeerr.CorruptedError{Digest: digest, Expected: digest, Actual: hasher.Sum(data)}
		}
		if _, err := store.PutRawObject(digest, data); err != nil {
			return "", err
		}
	}
	if !store.HasObject(a.RootDigest) {
		return "", &storeerr.InvalidReferenceError{Reason: "archive does not contain its own root digest " + a.RootDigest}
	}
	return a.RootDigest, nil
}
