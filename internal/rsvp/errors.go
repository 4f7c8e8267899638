// Package rsvp implements the response reconciliation rules: validating a
// submission against event policy, persisting it with at-most-one-record-per-
// actor semantics, recomputing aggregate counts and scheduling the host
// notification.
package rsvp

import "fmt"

// ValidationError means the submission itself is malformed (missing guest
// fields, unknown response type). Nothing was written.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// PolicyError means the submission is well-formed but the event's
// configuration disallows it. Nothing was written.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

// StorageError wraps a failure from the backing store. The operation aborted
// with no partial state; the caller may retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
