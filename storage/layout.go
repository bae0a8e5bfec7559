// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package storage implements the on-disk layout and object store: a
// content-addressed directory tree plus the put/get/delete protocol
// used to read and write it atomically.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/strongdm/snapstore/hashing"
)

// Layout computes the paths used by a store rooted at Root and reads
// or creates the directories under it. It holds no state beyond Root.
type Layout struct {
	Root string
}

// NewLayout returns a Layout rooted at root.
func NewLayout(root string) *Layout {
	return &Layout{Root: root}
}

// ObjectsDir is the directory holding content-addressed objects.
func (l *Layout) ObjectsDir() string { return filepath.Join(l.Root, "objects") }

// SnapshotsDir is the directory holding named snapshot references.
func (l *Layout) SnapshotsDir() string { return filepath.Join(l.Root, "snapshots") }

// RefsDir is the directory holding non-snapshot named references.
func (l *Layout) RefsDir() string { return filepath.Join(l.Root, "refs") }

// Initialize creates the root directory structure. It is idempotent:
// calling it on an already-initialized store is a no-op.
func (l *Layout) Initialize() error {
	for _, dir := range []string{l.ObjectsDir(), l.SnapshotsDir(), l.RefsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("storage: initialize %s: %w", dir, err)
		}
	}
	return nil
}

// ObjectDir returns the prefix-sharded directory a digest's object
// file lives in.
func (l *Layout) ObjectDir(digest string) string {
	return filepath.Join(l.ObjectsDir(), hashing.Prefix(digest, 2))
}

// ObjectPath returns the full path of the object file for digest.
func (l *Layout) ObjectPath(digest string) string {
	return filepath.Join(l.ObjectDir(digest), digest)
}

// EnsureObjectDir creates the prefix-sharded directory for digest if
// it does not already exist.
func (l *Layout) EnsureObjectDir(digest string) error {
	dir := l.ObjectDir(digest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: ensure object directory %s: %w", dir, err)
	}
	return nil
}

// SnapshotRefPath returns the path of the named snapshot reference
// file for name.
func (l *Layout) SnapshotRefPath(name string) (string, error) {
	sanitized, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.SnapshotsDir(), sanitized), nil
}

// RefPath returns the path of the named generic reference file for
// name, in the refs/ directory reserved for non-snapshot pointers.
func (l *Layout) RefPath(name string) (string, error) {
	sanitized, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.RefsDir(), sanitized), nil
}

// sanitizeName rejects path traversal and empty names in user-supplied
// reference names; it never produces a path outside its target
// directory.
func sanitizeName(name string) (string, error) {
	s := strings.ReplaceAll(name, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.TrimLeft(s, ".")
	if s == "" {
		return "", fmt.Errorf("storage: reference name %q sanitizes to empty", name)
	}
	return s, nil
}

// ListAllObjects returns the digests of every object currently on
// disk, discovered by walking the prefix shards.
func (l *Layout) ListAllObjects() ([]string, error) {
	entries, err := os.ReadDir(l.ObjectsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list objects: %w", err)
	}

	var digests []string
	for _, prefixEntry := range entries {
		if !prefixEntry.IsDir() {
			continue
		}
		prefixDir := filepath.Join(l.ObjectsDir(), prefixEntry.Name())
		files, err := os.ReadDir(prefixDir)
		if err != nil {
			return nil, fmt.Errorf("storage: list objects under %s: %w", prefixDir, err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			digests = append(digests, f.Name())
		}
	}
	return digests, nil
}

// listNames lists the sanitized names present in dir, ignoring
// subdirectories and a missing directory.
func listNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ListSnapshotRefs returns every named snapshot reference currently on
// disk.
func (l *Layout) ListSnapshotRefs() ([]string, error) {
	return listNames(l.SnapshotsDir())
}

// ListRefs returns every named generic reference currently on disk.
func (l *Layout) ListRefs() ([]string, error) {
	return listNames(l.RefsDir())
}

// ObjectExists reports whether an object file exists for digest,
// without validating its contents.
func (l *Layout) ObjectExists(digest string) bool {
	_, err := os.Stat(l.ObjectPath(digest))
	return err == nil
}

// Stats summarizes the store's on-disk footprint.
type Stats struct {
	TotalObjects   int
	TotalSizeBytes int64
	SnapshotRefs   int
	Refs           int
}

// StorageStats computes aggregate statistics by walking the store.
// Individual stat errors (e.g. a file disappearing mid-walk) are
// swallowed, matching the best-effort nature of a diagnostic report.
func (l *Layout) StorageStats() Stats {
	var stats Stats

	digests, err := l.ListAllObjects()
	if err == nil {
		stats.TotalObjects = len(digests)
		for _, d := range digests {
			if info, err := os.Stat(l.ObjectPath(d)); err == nil {
				stats.TotalSizeBytes += info.Size()
			}
		}
	}
	if refs, err := l.ListSnapshotRefs(); err == nil {
		stats.SnapshotRefs = len(refs)
	}
	if refs, err := l.ListRefs(); err == nil {
		stats.Refs = len(refs)
	}
	return stats
}
