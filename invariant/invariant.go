// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package invariant implements a registry of named, independently
// runnable checks over a store's core guarantees.
package invariant

import (
	"fmt"

	"github.com/strongdm/snapstore/storeerr"
)

// Check is a single invariant's verification logic. It returns nil
// when the invariant holds, or a descriptive error when it doesn't.
type Check func() error

// Invariant pairs a name and description with its Check.
type Invariant struct {
	Name        string
	Description string
	check       Check
}

// New constructs an Invariant.
func New(name, description string, check Check) Invariant {
	return Invariant{Name: name, Description: description, check: check}
}

// Verify runs the invariant's check, wrapping any failure (a returned
// error or a panic) in an InvariantViolationError.
func (i Invariant) Verify() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &storeerr.InvariantViolationError{Invariant: i.Name, Details: fmt.Sprintf("check panicked: %v", p)}
		}
	}()
	if err := i.check(); err != nil {
		return &storeerr.InvariantViolationError{Invariant: i.Name, Details: err.Error()}
	}
	return nil
}

// Registry holds a set of invariants and runs them individually or as
// a group.
type Registry struct {
	invariants []Invariant
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds inv to the registry.
func (r *Registry) Register(inv Invariant) {
	r.invariants = append(r.invariants, inv)
}

// List returns every registered invariant.
func (r *Registry) List() []Invariant {
	return append([]Invariant(nil), r.invariants...)
}

// Report is the result of running every registered invariant.
type Report struct {
	Passed []string
	Failed map[string]string
}

// AllPassed reports whether every invariant in the report passed.
func (r Report) AllPassed() bool { return len(r.Failed) == 0 }

// VerifyAll runs every registered invariant, continuing past failures
// so a single broken check doesn't hide the status of the rest.
func (r *Registry) VerifyAll() Report {
	report := Report{Failed: map[string]string{}}
	for _, inv := range r.invariants {
		if err := inv.Verify(); err != nil {
			report.Failed[inv.Name] = err.Error()
		} else {
			report.Passed = append(report.Passed, inv.Name)
		}
	}
	return report
}

// VerifyOne runs a single named invariant. ok is false if no
// invariant is registered under that name.
func (r *Registry) VerifyOne(name string) (err error, ok bool) {
	for _, inv := range r.invariants {
		if inv.Name == name {
			return inv.Verify(), true
		}
	}
	return nil, false
}
