package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is wrapped by lookups that find no matching board, column or card.
var ErrNotFound = errors.New("not found")

// ValidationError is returned when input is rejected before any state changes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// OrderConsistencyError reports an order list that disagrees with the
// collection it orders. It indicates a bug in a mutator, never user error.
type OrderConsistencyError struct {
	Container string
	Missing   []string // in the collection, absent from the order list
	Extra     []string // in the order list, absent from the collection
	Duplicate []string
}

func (e *OrderConsistencyError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "unordered: "+strings.Join(e.Missing, ","))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "dangling: "+strings.Join(e.Extra, ","))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "duplicate: "+strings.Join(e.Duplicate, ","))
	}
	return fmt.Sprintf("order list of %s inconsistent (%s)", e.Container, strings.Join(parts, "; "))
}

// RemoteSyncError is returned when the store rejects an optimistic mutation.
// Before is the board as it was before the mutation was applied locally.
type RemoteSyncError struct {
	Op       string
	EntityID string
	Before   Board
	Err      error
}

func (e *RemoteSyncError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.EntityID, e.Err)
}

func (e *RemoteSyncError) Unwrap() error {
	return e.Err
}

// ETagMismatchError is returned when an etag doesn't match
type ETagMismatchError struct {
	Expected int64
	Actual   int64
}

func (e *ETagMismatchError) Error() string {
	return fmt.Sprintf("etag mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// CheckETag validates an etag against the current value
func CheckETag(expected, actual int64) error {
	if expected != actual {
		return &ETagMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
