// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"fmt"

	"github.com/strongdm/snapstore/objectmodel"
	"github.com/strongdm/snapstore/storeerr"
)

// VerifyError is one structured failure found while walking a
// snapshot's transitive closure. The original implementation this
// store was modeled on recovered missing-object digests by scanning
// error message text for 64-character hex tokens; this type carries
// the digest and reason as separate fields instead, so no caller ever
// needs to parse a message to find out which object failed.
type VerifyError struct {
	Digest string
	Reason string
}

func (e VerifyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Digest, e.Reason)
}

// VerifySnapshot recursively verifies a snapshot and everything it
// transitively references: its own structure and integrity, every
// bundle it lists, and — following the parent chain — every ancestor
// snapshot. A snapshot reachable through more than one path (shared
// ancestor, or a genuine cycle) is only verified once. It returns
// every failure found rather than stopping at the first one.
func (v *Verifier) VerifySnapshot(digest string) []VerifyError {
	visited := make(map[string]bool)
	var errs []VerifyError
	v.verifySnapshotRecursive(digest, visited, &errs)
	return errs
}

func (v *Verifier) verifySnapshotRecursive(digest string, visited map[string]bool, errs *[]VerifyError) {
	if visited[digest] {
		return
	}
	visited[digest] = true

	data, err := v.store.GetObjectRaw(digest)
	if err != nil {
		*errs = append(*errs, VerifyError{Digest: digest, Reason: err.Error()})
		return
	}
	if err := v.VerifyIntegrity(digest, data); err != nil {
		*errs = append(*errs, VerifyError{Digest: digest, Reason: err.Error()})
		return
	}
	kind, obj, err := objectmodel.Decode(data)
	if err != nil {
		*errs = append(*errs, VerifyError{Digest: digest, Reason: err.Error()})
		return
	}
	if kind != objectmodel.KindSnapshot {
		*errs = append(*errs, VerifyError{Digest: digest, Reason: fmt.Sprintf("expected snapshot, got %s", kind)})
		return
	}
	snap := obj.(*objectmodel.Snapshot)

	for _, bundleDigest := range snap.Bundles {
		if err := v.VerifyObject(bundleDigest); err != nil {
			*errs = append(*errs, VerifyError{Digest: bundleDigest, Reason: err.Error()})
		}
	}

	if snap.HasParent() {
		v.verifySnapshotRecursive(snap.Parent, visited, errs)
	}
}

// DetectMissingObjects walks a snapshot's transitive closure (itself,
// its bundles, and its ancestor chain) and returns the digests of
// every reference that does not exist in the store.
func (v *Verifier) DetectMissingObjects(digest string) []string {
	visited := make(map[string]bool)
	var missing []string
	v.collectMissing(digest, visited, &missing)
	return missing
}

func (v *Verifier) collectMissing(digest string, visited map[string]bool, missing *[]string) {
	if visited[digest] {
		return
	}
	visited[digest] = true

	if !v.store.HasObject(digest) {
		*missing = append(*missing, digest)
		return
	}

	_, obj, err := v.store.GetObject(digest, false)
	if err != nil {
		return
	}
	snap, ok := obj.(*objectmodel.Snapshot)
	if !ok {
		return
	}
	for _, bundleDigest := range snap.Bundles {
		if visited[bundleDigest] {
			continue
		}
		visited[bundleDigest] = true
		if !v.store.HasObject(bundleDigest) {
			*missing = append(*missing, bundleDigest)
		}
	}
	if snap.HasParent() {
		v.collectMissing(snap.Parent, visited, missing)
	}
}

// ExtractReferences returns the digests a decoded object refers to
// directly, per the object model's reference rules (snapshot:
// bundles+parent; tree: children; blob/bundle: none).
func ExtractReferences(obj objectmodel.Object) []string {
	return objectmodel.References(obj)
}

// VerifyReferencesExist checks that every digest in refs exists
// according to exists, returning a ReferenceMissingError for the
// first one that doesn't. referencing identifies the object the
// references came from, for the error message.
func VerifyReferencesExist(referencing string, refs []string, exists func(string) bool) error {
	for _, ref := range refs {
		if !exists(ref) {
			return &storeerr.ReferenceMissingError{ReferencingDigest: referencing, MissingDigest: ref}
		}
	}
	return nil
}
