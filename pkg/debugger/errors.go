package debugger

import "errors"

var (
	// ErrDebuggerDied indicates the debugger subprocess is gone (killed
	// after repeated timeouts or exited on its own). The driver stays in
	// this state until the next Open spawns a fresh process.
	ErrDebuggerDied = errors.New("debugger process died")

	// ErrTimeout indicates a command did not complete within its timeout.
	// The driver has interrupted the debugger and marked it suspect.
	ErrTimeout = errors.New("debugger command timed out")

	// ErrNotReady indicates no dump is open on this driver.
	ErrNotReady = errors.New("no dump open")

	// ErrLoadFailed indicates the debugger could not load the dump.
	ErrLoadFailed = errors.New("failed to load dump")

	// ErrUnsupported indicates the debugger kind cannot run on this host.
	ErrUnsupported = errors.New("debugger not supported on this host")
)
