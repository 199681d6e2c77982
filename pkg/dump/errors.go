package dump

import "errors"

// Common errors for dump store operations.
var (
	// ErrNotFound is returned when a dump does not exist or is owned by a
	// different user. Ownership mismatches intentionally look identical to
	// absence so the API never leaks another user's dump ids.
	ErrNotFound = errors.New("dump not found")

	// ErrInvalidFormat is returned when uploaded bytes match no known dump
	// format (minidump, ELF core, Mach-O core).
	ErrInvalidFormat = errors.New("not a recognized dump format")

	// ErrTooLarge is returned when an upload exceeds the configured size cap.
	ErrTooLarge = errors.New("dump exceeds maximum allowed size")

	// ErrBadID is returned when a user id, dump id, or file name fails path
	// segment validation.
	ErrBadID = errors.New("invalid identifier")

	// ErrInUse is returned by Delete while a live session has the dump open.
	ErrInUse = errors.New("dump is open in an active session")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("dump store is closed")
)
