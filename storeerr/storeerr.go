// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package storeerr defines the error taxonomy shared by every component
// of the store. Each kind is a concrete type that carries the context
// needed to act on the failure, plus a package-level sentinel so callers
// can test with errors.Is without depending on the concrete type.
package storeerr

import (
	"errors"
	"fmt"
)

// Sentinels for use with errors.Is. Every concrete error type below
// wraps exactly one of these.
var (
	ErrNotFound           = errors.New("object not found")
	ErrCorrupted          = errors.New("object corrupted")
	ErrInvalid            = errors.New("object invalid")
	ErrVerificationFailed = errors.New("verification failed")
	ErrReferenceMissing   = errors.New("referenced object missing")
	ErrTamperDetected     = errors.New("tamper detected")
	ErrGC                 = errors.New("garbage collection error")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrStorageFailure     = errors.New("storage failure")
	ErrInvalidReference   = errors.New("invalid reference")
)

// NotFoundError reports that no object exists under a given digest.
type NotFoundError struct {
	Digest string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object not found: %s", e.Digest)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CorruptedError reports that the bytes stored under Digest do not
// hash to Digest. Expected and Actual are recorded independently of
// Digest so callers can distinguish "digest we looked up" from "digest
// we expected the content to have" when the two diverge.
type CorruptedError struct {
	Digest   string
	Expected string
	Actual   string
}

func (e *CorruptedError) Error() string {
	return fmt.Sprintf("object %s corrupted: expected digest %s, got %s", e.Digest, e.Expected, e.Actual)
}

func (e *CorruptedError) Unwrap() error { return ErrCorrupted }

// InvalidError reports that an object's structure does not conform to
// the object model (unknown type, missing content, malformed
// metadata).
type InvalidError struct {
	Digest string
	Reason string
}

func (e *InvalidError) Error() string {
	if e.Digest == "" {
		return fmt.Sprintf("invalid object: %s", e.Reason)
	}
	return fmt.Sprintf("invalid object %s: %s", e.Digest, e.Reason)
}

func (e *InvalidError) Unwrap() error { return ErrInvalid }

// VerificationFailedError reports that a snapshot (or its transitive
// closure) failed structural or integrity verification.
type VerificationFailedError struct {
	SnapshotDigest string
	Reason         string
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("snapshot %s failed verification: %s", e.SnapshotDigest, e.Reason)
}

func (e *VerificationFailedError) Unwrap() error { return ErrVerificationFailed }

// ReferenceMissingError reports that an object referenced another
// object that does not exist in the store.
type ReferenceMissingError struct {
	ReferencingDigest string
	MissingDigest     string
}

func (e *ReferenceMissingError) Error() string {
	return fmt.Sprintf("object %s references missing object %s", e.ReferencingDigest, e.MissingDigest)
}

func (e *ReferenceMissingError) Unwrap() error { return ErrReferenceMissing }

// TamperDetectedError reports that stored bytes were found to diverge
// from what the store itself would have written.
type TamperDetectedError struct {
	Digest  string
	Details string
}

func (e *TamperDetectedError) Error() string {
	return fmt.Sprintf("tampering detected for %s: %s", e.Digest, e.Details)
}

func (e *TamperDetectedError) Unwrap() error { return ErrTamperDetected }

// GCError reports a failure during a garbage collection run.
type GCError struct {
	Reason string
}

func (e *GCError) Error() string {
	return fmt.Sprintf("garbage collection failed: %s", e.Reason)
}

func (e *GCError) Unwrap() error { return ErrGC }

// InvariantViolationError reports that a named invariant check failed.
type InvariantViolationError struct {
	Invariant string
	Details   string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant %q violated: %s", e.Invariant, e.Details)
}

func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }

// StorageFailureError wraps an underlying filesystem error with the
// operation and path that triggered it.
type StorageFailureError struct {
	Op    string
	Path  string
	Cause error
}

func (e *StorageFailureError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("storage failure during %s on %s", e.Op, e.Path)
	}
	return fmt.Sprintf("storage failure during %s on %s: %v", e.Op, e.Path, e.Cause)
}

func (e *StorageFailureError) Unwrap() []error {
	return []error{ErrStorageFailure, e.Cause}
}

// InvalidReferenceError reports a malformed or cyclic reference, such
// as a snapshot whose parent chain loops back on itself.
type InvalidReferenceError struct {
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid reference: %s", e.Reason)
}

func (e *InvalidReferenceError) Unwrap() error { return ErrInvalidReference }
