// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// wireArchive mirrors Archive in a form msgpack can round-trip
// directly; Archive itself is kept free of struct tags.
type wireArchive struct {
	RootDigest string            `msgpack:"root_digest"`
	Objects    map[string][]byte `msgpack:"objects"`
}

// EncodeMsgpack serializes a as msgpack with sorted map keys, giving a
// deterministic byte-for-byte encoding for a given Archive value.
func EncodeMsgpack(a *Archive) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := msgpack.NewEncoder(buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(wireArchive{RootDigest: a.RootDigest, Objects: a.Objects}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeMsgpack parses data produced by EncodeMsgpack back into an
// Archive.
func DecodeMsgpack(data []byte) (*Archive, error) {
	var w wireArchive
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &Archive{RootDigest: w.RootDigest, Objects: w.Objects}, nil
}
