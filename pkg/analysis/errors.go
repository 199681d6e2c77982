package analysis

import "errors"

var (
	// ErrManagedRequired is returned by managed-runtime analyses when the
	// dump has no managed runtime loaded.
	ErrManagedRequired = errors.New("analysis requires a managed runtime")

	// ErrNoExecutor is returned when the target has no command executor,
	// i.e. no dump is open in the session.
	ErrNoExecutor = errors.New("no debugger available for analysis")
)
