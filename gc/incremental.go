// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package gc

import "github.com/strongdm/snapstore/objectmodel"

// Incremental runs the same mark-and-sweep algorithm as Collector but
// in caller-driven batches, so a store too large to mark or sweep in
// one call can still be collected without holding up whatever else is
// sharing the process (e.g. a request-serving goroutine).
type Incremental struct {
	source     ObjectSource
	queue      []string
	reachable  map[string]bool
	sweepQueue []string
	sweepAt    int
}

// NewIncremental returns an Incremental collector over source. Call
// StartMark before the first MarkBatch.
func NewIncremental(source ObjectSource) *Incremental {
	return &Incremental{source: source, reachable: make(map[string]bool)}
}

// StartMark seeds the mark queue with roots.
func (inc *Incremental) StartMark(roots []string) {
	inc.queue = append(inc.queue, roots...)
}

// MarkBatch processes up to limit entries from the mark queue and
// reports whether marking has fully completed.
func (inc *Incremental) MarkBatch(limit int) bool {
	processed := 0
	for processed < limit && len(inc.queue) > 0 {
		digest := inc.queue[0]
		inc.queue = inc.queue[1:]
		processed++

		if inc.reachable[digest] {
			continue
		}
		if !inc.source.Exists(digest) {
			continue
		}
		inc.reachable[digest] = true

		obj, err := inc.source.Load(digest)
		if err != nil {
			continue
		}
		for _, ref := range objectmodel.References(obj) {
			if !inc.reachable[ref] {
				inc.queue = append(inc.queue, ref)
			}
		}
	}
	return len(inc.queue) == 0
}

// Reachable returns the set of digests marked so far. Only meaningful
// once MarkBatch has returned true.
func (inc *Incremental) Reachable() map[string]bool {
	return inc.reachable
}

// PrepareSweep computes the sweep queue from the current reachable
// set. Call once marking is complete.
func (inc *Incremental) PrepareSweep() error {
	all, err := inc.source.ListAll()
	if err != nil {
		return err
	}
	inc.sweepQueue = inc.sweepQueue[:0]
	for _, digest := range all {
		if !inc.reachable[digest] {
			inc.sweepQueue = append(inc.sweepQueue, digest)
		}
	}
	inc.sweepAt = 0
	return nil
}

// SweepBatch deletes up to limit digests from the sweep queue (or, if
// dryRun, just reports what would be deleted) and reports whether
// sweeping has fully completed.
func (inc *Incremental) SweepBatch(limit int, dryRun bool) (deleted []string, done bool, err error) {
	end := inc.sweepAt + limit
	if end > len(inc.sweepQueue) {
		end = len(inc.sweepQueue)
	}
	for ; inc.sweepAt < end; inc.sweepAt++ {
		digest := inc.sweepQueue[inc.sweepAt]
		if inc.reachable[digest] {
			continue
		}
		if dryRun {
			deleted = append(deleted, digest)
			continue
		}
		ok, derr := inc.source.Delete(digest)
		if derr != nil {
			return deleted, false, derr
		}
		if ok {
			deleted = append(deleted, digest)
		}
	}
	return deleted, inc.sweepAt >= len(inc.sweepQueue), nil
}
