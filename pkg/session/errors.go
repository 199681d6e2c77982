package session

import "errors"

var (
	// ErrNotFound indicates no session with the given id exists.
	ErrNotFound = errors.New("session not found")

	// ErrUnauthorized indicates the session exists but belongs to a
	// different user.
	ErrUnauthorized = errors.New("session owned by another user")

	// ErrQuotaExceeded indicates the user already holds the maximum
	// number of concurrent sessions.
	ErrQuotaExceeded = errors.New("session quota exceeded")

	// ErrNoDump indicates the operation needs an open dump and the
	// session has none.
	ErrNoDump = errors.New("no dump open in session")

	// ErrDumpOpen indicates the session already has a dump open on a
	// live debugger; it must be closed before another open.
	ErrDumpOpen = errors.New("session already has a dump open")

	// ErrWatchNotFound indicates no watch with the given id exists.
	ErrWatchNotFound = errors.New("watch not found")
)
