// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"github.com/strongdm/snapstore/objectmodel"
)

// ScanResult reports the outcome of a whole-store verification pass.
// VerifyObject returns the first failure it finds, and VerifySnapshot
// covers only one snapshot's closure; a whole-store scan instead
// collects every failure it finds and keeps going, since a single
// corrupt object should not prevent a diagnostic sweep from reporting
// the rest of the store's condition.
type ScanResult struct {
	ObjectsScanned int
	Errors         []VerifyError
}

// Sound reports whether the scan found no failures.
func (r ScanResult) Sound() bool { return len(r.Errors) == 0 }

// ScanAll verifies structure, integrity, and reference existence for
// every object currently in the store.
func (v *Verifier) ScanAll() (ScanResult, error) {
	digests, err := v.store.ListAllObjects()
	if err != nil {
		return ScanResult{}, err
	}

	exists := func(d string) bool { return v.store.HasObject(d) }

	result := ScanResult{ObjectsScanned: len(digests)}
	for _, digest := range digests {
		data, err := v.store.GetObjectRaw(digest)
		if err != nil {
			result.Errors = append(result.Errors, VerifyError{Digest: digest, Reason: err.Error()})
			continue
		}
		if err := v.VerifyIntegrity(digest, data); err != nil {
			result.Errors = append(result.Errors, VerifyError{Digest: digest, Reason: err.Error()})
			continue
		}
		_, obj, err := objectmodel.Decode(data)
		if err != nil {
			result.Errors = append(result.Errors, VerifyError{Digest: digest, Reason: err.Error()})
			continue
		}
		refs := objectmodel.References(obj)
		if err := VerifyReferencesExist(digest, refs, exists); err != nil {
			result.Errors = append(result.Errors, VerifyError{Digest: digest, Reason: err.Error()})
		}
	}
	return result, nil
}
