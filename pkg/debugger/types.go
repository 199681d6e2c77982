package debugger

import "time"

// Kind identifies the debugger backend.
type Kind string

const (
	KindLLDB Kind = "lldb"
	KindCDB  Kind = "cdb"
)

// State is the driver's lifecycle state.
//
// Idle has no subprocess. Loading covers spawn plus dump load. Ready
// accepts commands. Suspect means the last command timed out and an
// interrupt was sent; a successful command returns to Ready, another
// timeout promotes to Failed. Failed answers every call with
// ErrDebuggerDied until the next Open.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateSuspect State = "suspect"
	StateFailed  State = "failed"
)

// Config holds driver configuration.
type Config struct {
	// Kind selects the backend.
	Kind Kind

	// Path is the debugger binary. Empty uses the kind's default name
	// resolved via PATH.
	Path string

	// SOSPluginPath overrides the SOS plugin location for managed dumps.
	// Empty relies on the debugger's own resolution.
	SOSPluginPath string

	// SpawnTimeout bounds process startup plus dump load.
	SpawnTimeout time.Duration

	// DefaultTimeout applies to Execute calls that pass zero.
	DefaultTimeout time.Duration
}

// OpenOptions describes the dump to load.
type OpenOptions struct {
	// DumpPath is the raw dump file (required).
	DumpPath string

	// ExecutablePath is the companion binary, when one was uploaded.
	ExecutablePath string

	// SymbolDirs are local symbol directories, searched first.
	SymbolDirs []string

	// SymbolServers are symbol server URLs, searched after local dirs.
	SymbolServers []string

	// LoadSOS requests the managed-runtime plugin. Failure to load it is
	// non-fatal and surfaces as a warning.
	LoadSOS bool
}

const (
	defaultSpawnTimeout   = 30 * time.Second
	defaultExecuteTimeout = 300 * time.Second
)
