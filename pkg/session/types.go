package session

import (
	"sync"
	"time"

	"github.com/coredock/coredock/pkg/debugger"
	"github.com/coredock/coredock/pkg/inspect"
)

// WatchKind distinguishes how a watch expression is evaluated.
type WatchKind string

const (
	// WatchCommand runs the expression as a debugger command.
	WatchCommand WatchKind = "command"

	// WatchMemory reads memory at the expression's address.
	WatchMemory WatchKind = "memory"
)

// Watch is one persisted watch expression.
type Watch struct {
	ID         int       `json:"id"`
	Kind       WatchKind `json:"kind"`
	Expression string    `json:"expression"`
	Label      string    `json:"label,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// WatchResult is one evaluated watch.
type WatchResult struct {
	Watch
	Value string `json:"value"`
	Error string `json:"error,omitempty"`
}

// state is the persisted part of a session, one JSON file per session.
type state struct {
	SchemaVersion int       `json:"schemaVersion"`
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	CreatedAt     time.Time `json:"createdAt"`
	LastActivity  time.Time `json:"lastActivity"`
	CurrentDumpID string    `json:"currentDumpId,omitempty"`
	SymbolPaths   []string  `json:"symbolPaths,omitempty"`
	Watches       []Watch   `json:"watches,omitempty"`
	NextWatchID   int       `json:"nextWatchId"`
}

const stateSchemaVersion = 1

// Session is one live debugging session: persisted state plus runtime
// handles (driver, inspector) that never touch disk.
//
// The session mutex guards state, watches, symbol paths, and the runtime
// handles. Driver I/O happens outside it; the driver serialises itself.
type Session struct {
	mu sync.Mutex

	state state

	driver    *debugger.Driver
	inspector inspect.Inspector
}

// Summary is the listing view of a session.
type Summary struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	CreatedAt     time.Time `json:"createdAt"`
	LastActivity  time.Time `json:"lastActivity"`
	CurrentDumpID string    `json:"currentDumpId,omitempty"`
	DebuggerState string    `json:"debuggerState"`
	WatchCount    int       `json:"watchCount"`
}

// DebuggerInfo describes the session's driver for diagnostics.
type DebuggerInfo struct {
	Kind          string   `json:"kind"`
	State         string   `json:"state"`
	PID           int      `json:"pid,omitempty"`
	CurrentDumpID string   `json:"currentDumpId,omitempty"`
	SymbolPaths   []string `json:"symbolPaths,omitempty"`
}

func (s *Session) touchLocked() {
	s.state.LastActivity = time.Now().UTC()
}

func (s *Session) summaryLocked() Summary {
	st := "idle"
	if s.driver != nil {
		st = string(s.driver.State())
	}
	return Summary{
		ID:            s.state.ID,
		UserID:        s.state.UserID,
		CreatedAt:     s.state.CreatedAt,
		LastActivity:  s.state.LastActivity,
		CurrentDumpID: s.state.CurrentDumpID,
		DebuggerState: st,
		WatchCount:    len(s.state.Watches),
	}
}
