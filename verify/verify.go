// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package verify implements structural and integrity verification
// over objects and snapshot chains.
package verify

import (
	"errors"

	"github.com/strongdm/snapstore/hashing"
	"github.com/strongdm/snapstore/objectmodel"
	"github.com/strongdm/snapstore/storage"
	"github.com/strongdm/snapstore/storeerr"
)

// Verifier checks objects stored in an ObjectStore against the digest
// backend the store was opened with.
type Verifier struct {
	store  *storage.ObjectStore
	hasher *hashing.Hasher
}

// New returns a Verifier over store using hasher to recompute digests.
func New(store *storage.ObjectStore, hasher *hashing.Hasher) *Verifier {
	return &Verifier{store: store, hasher: hasher}
}

// ValidateStructure checks that data is a well-formed object envelope
// without touching its digest. It is exported standalone (rather than
// only as a Verifier method) because structural validation needs no
// store access — it applies equally to bytes that were never written
// to any store, such as an imported archive entry.
func ValidateStructure(data []byte) error {
	_, _, _, err := objectmodel.ParseEnvelope(data)
	return err
}

// VerifyIntegrity checks that data hashes to digest under this
// Verifier's backend. The returned error reports both the digest the
// object is expected to have (its own address) and the digest its
// content actually hashes to, so a caller can tell at a glance how far
// the stored bytes have drifted.
func (v *Verifier) VerifyIntegrity(digest string, data []byte) error {
	actual := v.hasher.Sum(data)
	if actual != digest {
		return &storeerr.CorruptedError{Digest: digest, Expected: digest, Actual: actual}
	}
	return nil
}

// VerifyObject loads the object stored under digest and checks both
// its structure and its integrity.
func (v *Verifier) VerifyObject(digest string) error {
	data, err := v.store.GetObjectRaw(digest)
	if err != nil {
		return err
	}
	if err := v.VerifyIntegrity(digest, data); err != nil {
		return err
	}
	return ValidateStructure(data)
}

// DetectTampering reports whether the object stored under digest no
// longer hashes to digest. Unlike VerifyObject it never returns an
// error for a missing object — a missing object cannot be "tampered",
// it is simply absent — so callers doing a broad sweep don't need to
// special-case NotFoundError.
func (v *Verifier) DetectTampering(digest string) (bool, error) {
	data, err := v.store.GetObjectRaw(digest)
	if err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return v.hasher.Sum(data) != digest, nil
}
