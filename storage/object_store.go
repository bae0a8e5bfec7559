// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/strongdm/snapstore/hashing"
	"github.com/strongdm/snapstore/objectmodel"
	"github.com/strongdm/snapstore/storeerr"
)

// ObjectStore implements put/get/delete over a Layout using the
// digest Hasher configured for the store. It holds no in-memory
// object cache; every call touches disk, which keeps its behavior
// identical across process restarts and concurrent processes sharing
// a store root.
type ObjectStore struct {
	layout     *Layout
	hasher     *hashing.Hasher
	stagingDir string
}

// NewObjectStore returns an ObjectStore over layout using hasher to
// compute digests. stagingDir, if non-empty, is used as the directory
// for temp files during atomic writes instead of the object's own
// shard directory.
func NewObjectStore(layout *Layout, hasher *hashing.Hasher, stagingDir string) *ObjectStore {
	return &ObjectStore{layout: layout, hasher: hasher, stagingDir: stagingDir}
}

// Layout returns the underlying Layout.
func (s *ObjectStore) Layout() *Layout { return s.layout }

// Hasher returns the digest Hasher configured for the store.
func (s *ObjectStore) Hasher() *hashing.Hasher { return s.hasher }

// PutRawObject writes data verbatim under digest's object path,
// skipping the encode step PutObject performs. Callers are responsible
// for having already verified data hashes to digest; this is used by
// callers restoring already-hashed bytes from another store or an
// archive, where re-encoding would be redundant.
func (s *ObjectStore) PutRawObject(digest string, data []byte) (string, error) {
	path := s.layout.ObjectPath(digest)
	if existing, err := os.ReadFile(path); err == nil {
		if s.hasher.Verify(existing, digest) {
			return digest, nil
		}
	} else if !os.IsNotExist(err) {
		return "", &storeerr.StorageFailureError{Op: "read", Path: path, Cause: err}
	}
	if err := s.layout.EnsureObjectDir(digest); err != nil {
		return "", &storeerr.StorageFailureError{Op: "mkdir", Path: s.layout.ObjectDir(digest), Cause: err}
	}
	if err := writeFileAtomic(path, data, s.stagingDir); err != nil {
		return "", &storeerr.StorageFailureError{Op: "write", Path: path, Cause: err}
	}
	return digest, nil
}

// PutObject stores obj and returns its digest. Re-putting content that
// already hashes to the same digest is a no-op: the existing file is
// left untouched unless it turns out to be corrupt, in which case it
// is silently rewritten. This makes Put idempotent and self-healing.
func (s *ObjectStore) PutObject(obj objectmodel.Object) (string, error) {
	data, err := obj.Encode()
	if err != nil {
		return "", &storeerr.InvalidError{Reason: err.Error()}
	}
	digest := s.hasher.Sum(data)
	path := s.layout.ObjectPath(digest)

	if existing, err := os.ReadFile(path); err == nil {
		if s.hasher.Verify(existing, digest) {
			return digest, nil
		}
		// existing content doesn't hash to its own path: fall through
		// and overwrite with the bytes we just computed.
	} else if !os.IsNotExist(err) {
		return "", &storeerr.StorageFailureError{Op: "read", Path: path, Cause: err}
	}

	if err := s.layout.EnsureObjectDir(digest); err != nil {
		return "", &storeerr.StorageFailureError{Op: "mkdir", Path: s.layout.ObjectDir(digest), Cause: err}
	}
	if err := writeFileAtomic(path, data, s.stagingDir); err != nil {
		return "", &storeerr.StorageFailureError{Op: "write", Path: path, Cause: err}
	}
	return digest, nil
}

// GetObjectRaw returns the raw bytes stored under digest without
// parsing or verifying them.
func (s *ObjectStore) GetObjectRaw(digest string) ([]byte, error) {
	path := s.layout.ObjectPath(digest)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &storeerr.NotFoundError{Digest: digest}
		}
		return nil, &storeerr.StorageFailureError{Op: "read", Path: path, Cause: err}
	}
	return data, nil
}

// GetObject reads and decodes the object stored under digest. When
// verify is true, the stored bytes are checked against digest before
// decoding, returning a CorruptedError on mismatch. Bytes that are not
// valid JSON are reported as a CorruptedError; well-formed JSON that
// does not match the object model is reported as an InvalidError.
func (s *ObjectStore) GetObject(digest string, verify bool) (objectmodel.Kind, objectmodel.Object, error) {
	data, err := s.GetObjectRaw(digest)
	if err != nil {
		return "", nil, err
	}
	if verify {
		actual := s.hasher.Sum(data)
		if actual != digest {
			return "", nil, &storeerr.CorruptedError{Digest: digest, Expected: digest, Actual: actual}
		}
	}
	if !json.Valid(data) {
		return "", nil, &storeerr.CorruptedError{Digest: digest, Expected: digest, Actual: s.hasher.Sum(data)}
	}
	kind, obj, err := objectmodel.Decode(data)
	if err != nil {
		return "", nil, &storeerr.InvalidError{Digest: digest, Reason: err.Error()}
	}
	return kind, obj, nil
}

// HasObject reports whether an object exists under digest, without
// validating its contents.
func (s *ObjectStore) HasObject(digest string) bool {
	return s.layout.ObjectExists(digest)
}

// Load decodes the object stored under digest without verifying its
// bytes against digest first. This makes ObjectStore satisfy
// gc.ObjectSource directly: a present-but-corrupt object must still
// decode enough to report its references so GC treats it as reachable
// rather than collectible.
func (s *ObjectStore) Load(digest string) (objectmodel.Object, error) {
	_, obj, err := s.GetObject(digest, false)
	return obj, err
}

// Exists reports whether an object exists under digest. It is an
// alias for HasObject so ObjectStore satisfies gc.ObjectSource.
func (s *ObjectStore) Exists(digest string) bool {
	return s.HasObject(digest)
}

// DeleteObject removes the object stored under digest. It reports
// whether an object was actually present.
func (s *ObjectStore) DeleteObject(digest string) (bool, error) {
	path := s.layout.ObjectPath(digest)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &storeerr.StorageFailureError{Op: "delete", Path: path, Cause: err}
	}
	return true, nil
}

// Delete is an alias for DeleteObject so ObjectStore satisfies
// gc.ObjectSource directly.
func (s *ObjectStore) Delete(digest string) (bool, error) {
	return s.DeleteObject(digest)
}

// ListAllObjects returns every digest currently on disk.
func (s *ObjectStore) ListAllObjects() ([]string, error) {
	digests, err := s.layout.ListAllObjects()
	if err != nil {
		return nil, &storeerr.StorageFailureError{Op: "list", Path: s.layout.ObjectsDir(), Cause: err}
	}
	return digests, nil
}

// ListAll is an alias for ListAllObjects so ObjectStore satisfies
// gc.ObjectSource directly.
func (s *ObjectStore) ListAll() ([]string, error) {
	return s.ListAllObjects()
}

// PutSnapshotRef records name as pointing at snapshotDigest. The
// target object must already exist.
func (s *ObjectStore) PutSnapshotRef(name, snapshotDigest string) error {
	if !s.HasObject(snapshotDigest) {
		return &storeerr.ReferenceMissingError{ReferencingDigest: name, MissingDigest: snapshotDigest}
	}
	path, err := s.layout.SnapshotRefPath(name)
	if err != nil {
		return &storeerr.InvalidError{Reason: err.Error()}
	}
	if err := writeFileAtomic(path, []byte(snapshotDigest), s.stagingDir); err != nil {
		return &storeerr.StorageFailureError{Op: "write", Path: path, Cause: err}
	}
	return nil
}

// GetSnapshotRef returns the digest recorded under name, or ok=false
// if no such reference exists.
func (s *ObjectStore) GetSnapshotRef(name string) (digest string, ok bool, err error) {
	return readRef(name, s.layout.SnapshotRefPath)
}

// DeleteSnapshotRef removes the named snapshot reference. It reports
// whether a reference was actually present.
func (s *ObjectStore) DeleteSnapshotRef(name string) (bool, error) {
	return deleteRef(s.layout.SnapshotRefPath, name)
}

// ListSnapshotRefs returns every named snapshot reference.
func (s *ObjectStore) ListSnapshotRefs() ([]string, error) {
	refs, err := s.layout.ListSnapshotRefs()
	if err != nil {
		return nil, &storeerr.StorageFailureError{Op: "list", Path: s.layout.SnapshotsDir(), Cause: err}
	}
	return refs, nil
}

// PutRef records name as pointing at digest under the generic refs/
// directory. Like PutSnapshotRef, the target must already exist.
func (s *ObjectStore) PutRef(name, digest string) error {
	if !s.HasObject(digest) {
		return &storeerr.ReferenceMissingError{ReferencingDigest: name, MissingDigest: digest}
	}
	path, err := s.layout.RefPath(name)
	if err != nil {
		return &storeerr.InvalidError{Reason: err.Error()}
	}
	if err := writeFileAtomic(path, []byte(digest), s.stagingDir); err != nil {
		return &storeerr.StorageFailureError{Op: "write", Path: path, Cause: err}
	}
	return nil
}

// GetRef returns the digest recorded under name in refs/, or
// ok=false if no such reference exists.
func (s *ObjectStore) GetRef(name string) (digest string, ok bool, err error) {
	return readRef(name, s.layout.RefPath)
}

// DeleteRef removes the named generic reference.
func (s *ObjectStore) DeleteRef(name string) (bool, error) {
	return deleteRef(s.layout.RefPath, name)
}

// ListRefs returns every named generic reference.
func (s *ObjectStore) ListRefs() ([]string, error) {
	refs, err := s.layout.ListRefs()
	if err != nil {
		return nil, &storeerr.StorageFailureError{Op: "list", Path: s.layout.RefsDir(), Cause: err}
	}
	return refs, nil
}

func readRef(name string, pathFn func(string) (string, error)) (string, bool, error) {
	path, err := pathFn(name)
	if err != nil {
		return "", false, &storeerr.InvalidError{Reason: err.Error()}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, &storeerr.StorageFailureError{Op: "read", Path: path, Cause: err}
	}
	return strings.TrimSpace(string(data)), true, nil
}

func deleteRef(pathFn func(string) (string, error), name string) (bool, error) {
	path, err := pathFn(name)
	if err != nil {
		return false, &storeerr.InvalidError{Reason: err.Error()}
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &storeerr.StorageFailureError{Op: "delete", Path: path, Cause: err}
	}
	return true, nil
}

// GetStats reports aggregate statistics about the store.
func (s *ObjectStore) GetStats() Stats {
	return s.layout.StorageStats()
}
