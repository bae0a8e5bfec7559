// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package snapstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/strongdm/snapstore/storeerr"
)

const lockFileName = ".snapstore.lock"

// acquireLock creates an advisory lockfile at root/.snapstore.lock
// using O_EXCL so a second process opening the same store root fails
// fast instead of racing writers. The store does not otherwise enforce
// single-writer access; this is a courtesy for cooperating processes.
func acquireLock(root string) (string, error) {
	path := filepath.Join(root, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", &storeerr.StorageFailureError{Op: "lock", Path: path, Cause: fmt.Errorf("store already locked by another process (or a stale lock from a crash): %w", err)}
		}
		return "", &storeerr.StorageFailureError{Op: "lock", Path: path, Cause: err}
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		os.Remove(path)
		return "", &storeerr.StorageFailureError{Op: "lock", Path: path, Cause: err}
	}
	return path, nil
}

func releaseLock(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &storeerr.StorageFailureError{Op: "unlock", Path: path, Cause: err}
	}
	return nil
}
