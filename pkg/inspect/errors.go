package inspect

import "errors"

var (
	// ErrNotFound indicates no module or object at the given address.
	ErrNotFound = errors.New("not found in dump")

	// ErrManagedUnavailable indicates the dump has no reachable managed
	// runtime state (native-only dump, or SOS unavailable).
	ErrManagedUnavailable = errors.New("managed runtime state unavailable")

	// ErrUnsupportedDump indicates the dump container cannot be parsed
	// directly.
	ErrUnsupportedDump = errors.New("unsupported dump container")
)
