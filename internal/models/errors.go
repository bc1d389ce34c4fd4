package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the store, planner and flow packages.
var (
	ErrNotFound              = errors.New("not found")
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrUnparseable           = errors.New("completion output could not be parsed")
	ErrNoChoices             = errors.New("no choices returned")
	ErrUnknownHabit          = errors.New("unknown habit")
	ErrHabitAlreadyCompleted = errors.New("habit already completed today")
)

// ParseError reports a completion response that could not be recovered as a JSON array.
// Raw carries the full completion text for diagnostics.
type ParseError struct {
	Raw   string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse completion (field %q): %v", e.Field, e.Err)
	}
	return fmt.Sprintf("parse completion (field %q): no JSON array found", e.Field)
}

// Unwrap lets errors.Is match ErrUnparseable.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnparseable}
	}
	return []error{ErrUnparseable, e.Err}
}

// PersistenceError reports a failed read or write against the document store.
type PersistenceError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// UpstreamError reports a completion service failure.
// StatusCode is zero when the failure happened before an HTTP status was received.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion service returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion service failed: %s", e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
