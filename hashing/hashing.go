// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package hashing computes the digests used to address objects. The
// default backend is BLAKE3, matching the rest of this module's stack;
// SHA-256 is kept as a fallback backend for stores that must interoperate
// with environments where BLAKE3 is unavailable. Digests are always
// rendered as 64 lowercase hex characters regardless of backend, so a
// store's object paths are never coupled to the algorithm that produced
// them.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"regexp"

	"github.com/zeebo/blake3"
)

// Algorithm identifies a digest backend.
type Algorithm string

const (
	BLAKE3 Algorithm = "blake3"
	SHA256 Algorithm = "sha256"
)

// DigestPattern matches the on-disk digest format: 64 lowercase hex
// characters.
var DigestPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Hasher computes digests of arbitrary byte strings using a fixed
// backend. It is safe for concurrent use; each call to Sum and NewHash
// obtains its own hash.Hash instance.
type Hasher struct {
	algorithm Algorithm
}

// New returns a Hasher for the given algorithm. An empty Algorithm
// defaults to BLAKE3.
func New(algorithm Algorithm) (*Hasher, error) {
	switch algorithm {
	case "":
		algorithm = BLAKE3
	case BLAKE3, SHA256:
	default:
		return nil, fmt.Errorf("hashing: unknown algorithm %q", algorithm)
	}
	return &Hasher{algorithm: algorithm}, nil
}

// Algorithm reports the backend this Hasher was constructed with.
func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

// newHash returns a fresh hash.Hash for streaming use (e.g. io.Copy).
func (h *Hasher) newHash() hash.Hash {
	switch h.algorithm {
	case SHA256:
		return sha256.New()
	default:
		return blake3.New()
	}
}

// NewHash exposes a streaming hash.Hash for the configured backend.
func (h *Hasher) NewHash() hash.Hash {
	return h.newHash()
}

// Sum returns the lowercase hex digest of data.
func (h *Hasher) Sum(data []byte) string {
	sum := h.newHash()
	sum.Write(data)
	return hex.EncodeToString(sum.Sum(nil))
}

// Verify reports whether data hashes to the expected digest under this
// Hasher's backend.
func (h *Hasher) Verify(data []byte, expected string) bool {
	return h.Sum(data) == expected
}

// Valid reports whether digest has the expected on-disk shape: 64
// lowercase hex characters. It does not recompute any hash.
func Valid(digest string) bool {
	return DigestPattern.MatchString(digest)
}

// Prefix returns the first n hex characters of digest, used for
// directory sharding. It panics if digest is shorter than n; callers
// are expected to have already validated the digest shape.
func Prefix(digest string, n int) string {
	return digest[:n]
}
