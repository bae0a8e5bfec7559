// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package bundlesync bridges opaque upstream bundle payloads into this
// store's object model: importing bundles, assembling them into
// snapshots, and walking or exporting the resulting chain.
package bundlesync

import (
	"github.com/google/uuid"

	"github.com/strongdm/snapstore/objectmodel"
	"github.com/strongdm/snapstore/storage"
	"github.com/strongdm/snapstore/storeerr"
)

// Adapter imports upstream bundle data into an ObjectStore and
// assembles the resulting digests into snapshots.
type Adapter struct {
	store *storage.ObjectStore
}

// New returns an Adapter over store.
func New(store *storage.ObjectStore) *Adapter {
	return &Adapter{store: store}
}

func validateBundle(data map[string]objectmodel.Value) error {
	if len(data) == 0 {
		return &storeerr.InvalidError{Reason: "bundle payload must be a non-empty mapping"}
	}
	return nil
}

// ImportBundle stores data as a Bundle and returns its digest.
func (a *Adapter) ImportBundle(data map[string]objectmodel.Value, metadata map[string]objectmodel.Value) (string, error) {
	if err := validateBundle(data); err != nil {
		return "", err
	}
	return a.store.PutObject(objectmodel.NewBundle(data, metadata))
}

// ImportBundles imports each of bundles in order, returning their
// digests in the same order. metadataFor, if non-nil, is called with
// each bundle's index to produce its metadata.
func (a *Adapter) ImportBundles(bundles []map[string]objectmodel.Value, metadataFor func(index int) map[string]objectmodel.Value) ([]string, error) {
	digests := make([]string, len(bundles))
	for i, b := range bundles {
		var metadata map[string]objectmodel.Value
		if metadataFor != nil {
			metadata = metadataFor(i)
		}
		digest, err := a.ImportBundle(b, metadata)
		if err != nil {
			return nil, err
		}
		digests[i] = digest
	}
	return digests, nil
}

// newIdempotencyKey generates an opaque key a caller can use to
// de-duplicate retried import requests on their side. The store
// itself never persists or inspects this value — threading it through
// object metadata would make two logically identical imports hash to
// different digests, breaking content addressing.
func newIdempotencyKey() string {
	return uuid.NewString()
}
