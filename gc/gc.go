// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package gc implements mark-and-sweep garbage collection over a
// store's named references.
package gc

import (
	"log/slog"

	"github.com/strongdm/snapstore/objectmodel"
	"github.com/strongdm/snapstore/storeerr"
)

// ObjectSource bundles the operations a Collector needs, decoupling
// it from package storage's concrete types so collection logic can be
// tested against a fake. Load is expected to skip integrity
// verification: a present-but-corrupt object is still reachable if
// something points at it, and GC's job is to decide what to keep, not
// to police content.
type ObjectSource interface {
	ListAll() ([]string, error)
	Load(digest string) (objectmodel.Object, error)
	Delete(digest string) (bool, error)
	Exists(digest string) bool
}

// Collector runs mark-and-sweep collection against an ObjectSource.
type Collector struct {
	source ObjectSource
	logger *slog.Logger
}

// New returns a Collector over source. A nil logger falls back to
// slog.Default().
func New(source ObjectSource, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{source: source, logger: logger}
}

// Result reports what a Collect run found and, unless DryRun, did.
type Result struct {
	Reachable int
	Deleted   []string
	DryRun    bool
	Errors    []string
}

// mark performs a breadth-first walk from roots, returning every
// digest transitively reachable from them. A root or referenced
// digest that does not exist is simply skipped rather than treated as
// an error: GC's job is to compute what is reachable among what is
// present, not to validate the graph. An object that exists but fails
// to load (corrupt bytes, unknown type) is still marked reachable
// before the load is attempted, so a corrupt-but-referenced object is
// never swept merely because the collector couldn't read it.
func mark(source ObjectSource, roots []string) map[string]bool {
	reachable := make(map[string]bool)
	queue := append([]string(nil), roots...)

	for len(queue) > 0 {
		digest := queue[0]
		queue = queue[1:]

		if reachable[digest] {
			continue
		}
		if !source.Exists(digest) {
			continue
		}
		reachable[digest] = true

		obj, err := source.Load(digest)
		if err != nil {
			continue
		}
		for _, ref := range objectmodel.References(obj) {
			if !reachable[ref] {
				queue = append(queue, ref)
			}
		}
	}
	return reachable
}

// Collect marks every object reachable from roots, then deletes
// everything else. When dryRun is true, nothing is deleted; the
// digests that would have been deleted are still reported.
func (c *Collector) Collect(roots []string, dryRun bool) (Result, error) {
	reachable := mark(c.source, roots)

	all, err := c.source.ListAll()
	if err != nil {
		return Result{}, &storeerr.GCError{Reason: err.Error()}
	}

	result := Result{Reachable: len(reachable), DryRun: dryRun}
	for _, digest := range all {
		if reachable[digest] {
			continue
		}
		if dryRun {
			result.Deleted = append(result.Deleted, digest)
			continue
		}
		deleted, err := c.source.Delete(digest)
		if err != nil {
			result.Errors = append(result.Errors, digest+": "+err.Error())
			continue
		}
		if deleted {
			result.Deleted = append(result.Deleted, digest)
		}
	}

	c.logger.Info("garbage collection complete",
		"reachable", result.Reachable,
		"deleted", len(result.Deleted),
		"errors", len(result.Errors),
		"dry_run", dryRun,
	)
	return result, nil
}

// VerifyGCSafety checks that every root is present and loadable before
// a real (non-dry-run) Collect is attempted. It returns one message
// per problem found; a nil result means collection is safe to run.
func (c *Collector) VerifyGCSafety(roots []string) []string {
	var problems []string
	for _, root := range roots {
		if !c.source.Exists(root) {
			problems = append(problems, root+": root does not exist")
			continue
		}
		if _, err := c.source.Load(root); err != nil {
			problems = append(problems, root+": root is not loadable: "+err.Error())
		}
	}
	return problems
}
