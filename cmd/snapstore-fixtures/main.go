// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Command snapstore-fixtures generates JSON fixtures describing
// canonical encodings and digests of a fixed set of objects, for
// cross-language/cross-process interop tests against this store's
// on-disk format.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/strongdm/snapstore/hashing"
	"github.com/strongdm/snapstore/objectmodel"
)

// Fixture captures one object's canonical bytes and digest under both
// supported hash backends.
type Fixture struct {
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	CanonicalBytes string `json:"canonical_bytes"`
	BLAKE3Digest   string `json:"blake3_digest"`
	SHA256Digest   string `json:"sha256_digest"`
	Notes          string `json:"notes,omitempty"`
}

func main() {
	outDir := flag.String("out", "testdata/fixtures", "output directory for fixtures")
	flag.Parse()

	blake3, err := hashing.New(hashing.BLAKE3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hashing.New(blake3): %v\n", err)
		os.Exit(1)
	}
	sha256, err := hashing.New(hashing.SHA256)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hashing.New(sha256): %v\n", err)
		os.Exit(1)
	}

	objects, err := buildObjects()
	if err != nil {
		fmt.Fprintf(os.Stderr, "buildObjects: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}

	for _, o := range objects {
		data, err := o.obj.Encode()
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode %s: %v\n", o.name, err)
			os.Exit(1)
		}
		fixture := Fixture{
			Name:           o.name,
			Kind:           o.kind,
			CanonicalBytes: string(data),
			BLAKE3Digest:   blake3.Sum(data),
			SHA256Digest:   sha256.Sum(data),
			Notes:          o.notes,
		}
		path := filepath.Join(*outDir, o.name+".json")
		out, err := json.MarshalIndent(fixture, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal %s: %v\n", o.name, err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

type namedObject struct {
	name  string
	kind  string
	obj   objectmodel.Object
	notes string
}

func buildObjects() ([]namedObject, error) {
	blob := objectmodel.NewBlob([]byte("hello"), nil)

	bundle := objectmodel.NewBundle(map[string]objectmodel.Value{
		"sequence": objectmodel.Int(1),
		"op":       objectmodel.String("upsert"),
	}, nil)
	bundleDigest, err := hasherSum(bundle)
	if err != nil {
		return nil, err
	}

	snapshot := objectmodel.NewSnapshot([]string{bundleDigest}, "", nil)

	tree := objectmodel.NewTree(nil, nil)

	return []namedObject{
		{name: "blob_basic", kind: "blob", obj: blob, notes: "single ASCII-content blob"},
		{name: "bundle_basic", kind: "bundle", obj: bundle, notes: "minimal upsert bundle"},
		{name: "snapshot_basic", kind: "snapshot", obj: snapshot, notes: "snapshot over one bundle, no parent"},
		{name: "tree_empty", kind: "tree", obj: tree, notes: "tree with no children"},
	}, nil
}

func hasherSum(obj objectmodel.Object) (string, error) {
	h, err := hashing.New(hashing.BLAKE3)
	if err != nil {
		return "", err
	}
	data, err := obj.Encode()
	if err != nil {
		return "", err
	}
	return h.Sum(data), nil
}
