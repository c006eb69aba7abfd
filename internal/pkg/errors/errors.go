package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict signals a state transition that is not allowed from the current state.
	ErrConflict = errors.New("conflict")
	// ErrBookBusy is returned for structural or bibliography edits while a section is processing.
	ErrBookBusy = errors.New("book has a section in processing")
	// ErrResourceExhausted marks a rate-limited generation call.
	ErrResourceExhausted = errors.New("resource exhausted")
)
