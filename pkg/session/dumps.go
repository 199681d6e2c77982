package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coredock/coredock/internal/logger"
	"github.com/coredock/coredock/pkg/debugger"
	"github.com/coredock/coredock/pkg/dump"
	"github.com/coredock/coredock/pkg/inspect"
)

// OpenResult reports a completed dump open.
type OpenResult struct {
	DumpID   string      `json:"dumpId"`
	Format   dump.Format `json:"format"`
	Arch     dump.Arch   `json:"arch"`
	Managed  bool        `json:"managed"`
	Warnings []string    `json:"warnings,omitempty"`
}

// OpenDump loads the dump into the session's debugger, spawning it
// lazily. A session whose dump is already open on a live debugger
// answers ErrDumpOpen; after close_dump, after a debugger death (which
// detaches the dump), or on a restored session the open proceeds, so
// re-open is idempotent against a dead debugger.
func (m *Manager) OpenDump(ctx context.Context, sessionID, userID, dumpID string) (*OpenResult, error) {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	info, err := m.dumps.Get(userID, dumpID)
	if err != nil {
		return nil, err
	}
	path, err := m.dumps.Path(userID, dumpID)
	if err != nil {
		return nil, err
	}
	exePath, err := m.dumps.ExecutablePath(userID, dumpID)
	if err != nil && !errors.Is(err, dump.ErrNotFound) {
		return nil, err
	}

	searchDirs, err := m.symbols.SearchPath(dumpID)
	if err != nil {
		return nil, err
	}

	managed := isManaged(info, path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.CurrentDumpID != "" && s.driver != nil {
		switch s.driver.State() {
		case debugger.StateLoading, debugger.StateReady, debugger.StateSuspect:
			return nil, ErrDumpOpen
		}
	}

	if s.driver == nil {
		s.driver = debugger.New(m.cfg.Debugger)
	}
	if s.inspector != nil {
		closeInspector(s.inspector)
		s.inspector = nil
	}

	dirs, servers := m.splitSymbolPaths(s)
	warnings, err := s.driver.Open(ctx, debugger.OpenOptions{
		DumpPath:       path,
		ExecutablePath: exePath,
		SymbolDirs:     append(searchDirs, dirs...),
		SymbolServers:  servers,
		LoadSOS:        managed,
	})
	if err != nil {
		return nil, err
	}
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.RecordSpawn(string(s.driver.Kind()))
	}

	insp, err := inspect.New(path, info.Format, s.driver)
	if err != nil {
		warnings = append(warnings, "structured inspection unavailable: "+err.Error())
	} else {
		s.inspector = insp
	}

	s.state.CurrentDumpID = dumpID
	s.touchLocked()
	if err := m.persistLocked(s); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "dump opened in session",
		logger.SessionID(sessionID),
		logger.DumpID(dumpID),
		logger.Format(string(info.Format)),
		logger.Debugger(string(s.driver.Kind())))
	return &OpenResult{
		DumpID:   dumpID,
		Format:   info.Format,
		Arch:     info.Arch,
		Managed:  managed,
		Warnings: warnings,
	}, nil
}

// CloseDump detaches the session from its dump and terminates the
// debugger process.
func (m *Manager) CloseDump(sessionID, userID string) error {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.CurrentDumpID == "" {
		return ErrNoDump
	}
	if s.driver != nil {
		s.driver.Close()
	}
	if s.inspector != nil {
		closeInspector(s.inspector)
		s.inspector = nil
	}
	s.state.CurrentDumpID = ""
	s.touchLocked()
	return m.persistLocked(s)
}

// Execute runs one debugger command in the session. A zero timeout uses
// the configured tool timeout. When the debugger dies the session's dump
// is detached, so the caller can recover by re-opening it.
func (m *Manager) Execute(ctx context.Context, sessionID, userID, cmd string, timeout time.Duration) (string, error) {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return "", err
	}
	if timeout <= 0 {
		timeout = m.cfg.ToolTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.CurrentDumpID == "" || s.driver == nil {
		return "", ErrNoDump
	}

	start := time.Now()
	out, err := s.driver.Execute(ctx, cmd, timeout)
	// Activity advances with command completion, not submission, so a
	// long-running command cannot be idle-evicted mid-flight.
	s.touchLocked()
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.RecordCommand(string(s.driver.Kind()), time.Since(start), commandErrorCode(err))
	}
	if errors.Is(err, debugger.ErrDebuggerDied) {
		if m.cfg.Metrics != nil {
			m.cfg.Metrics.RecordDeath(string(s.driver.Kind()))
		}
		s.state.CurrentDumpID = ""
		if perr := m.persistLocked(s); perr != nil {
			logger.Warn("persisting session after debugger death failed",
				logger.SessionID(sessionID), logger.Err(perr))
		}
	}
	return out, err
}

func commandErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, debugger.ErrTimeout):
		return "DebuggerTimeout"
	case errors.Is(err, debugger.ErrDebuggerDied):
		return "DebuggerDied"
	default:
		return "Internal"
	}
}

// Inspector returns the session's structured-query interface. Requires
// an open dump.
func (m *Manager) Inspector(sessionID, userID string) (inspect.Inspector, error) {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentDumpID == "" || s.inspector == nil {
		return nil, ErrNoDump
	}
	s.touchLocked()
	return s.inspector, nil
}

// CurrentDump returns the id of the session's open dump, empty when none.
func (m *Manager) CurrentDump(sessionID, userID string) (string, error) {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentDumpID, nil
}

// DebuggerInfo reports the session's driver state for diagnostics.
func (m *Manager) DebuggerInfo(sessionID, userID string) (*DebuggerInfo, error) {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info := &DebuggerInfo{
		Kind:          string(m.cfg.Debugger.Kind),
		State:         string(debugger.StateIdle),
		CurrentDumpID: s.state.CurrentDumpID,
		SymbolPaths:   append([]string(nil), s.state.SymbolPaths...),
	}
	if s.driver != nil {
		info.Kind = string(s.driver.Kind())
		info.State = string(s.driver.State())
		info.PID = s.driver.PID()
	}
	return info, nil
}

// AddSymbolPath records a user-supplied symbol directory or server URL
// and reapplies the search path when a dump is open.
func (m *Manager) AddSymbolPath(ctx context.Context, sessionID, userID, path string) error {
	if path == "" {
		return fmt.Errorf("symbol path is required")
	}
	s, err := m.get(sessionID, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.state.SymbolPaths {
		if existing == path {
			return nil // already configured
		}
	}
	s.state.SymbolPaths = append(s.state.SymbolPaths, path)
	s.touchLocked()
	if err := m.persistLocked(s); err != nil {
		return err
	}
	return m.reloadSymbolsLocked(ctx, s)
}

// ReloadSymbols reapplies the full symbol search path on the live
// debugger.
func (m *Manager) ReloadSymbols(ctx context.Context, sessionID, userID string) error {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentDumpID == "" || s.driver == nil {
		return ErrNoDump
	}
	s.touchLocked()
	return m.reloadSymbolsLocked(ctx, s)
}

// ClearSymbolPaths drops the session's user-added symbol paths.
func (m *Manager) ClearSymbolPaths(ctx context.Context, sessionID, userID string) error {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SymbolPaths = nil
	s.touchLocked()
	if err := m.persistLocked(s); err != nil {
		return err
	}
	return m.reloadSymbolsLocked(ctx, s)
}

// reloadSymbolsLocked recomputes the search path and pushes it to the
// driver. A session without an open dump is a no-op. Caller holds s.mu.
func (m *Manager) reloadSymbolsLocked(ctx context.Context, s *Session) error {
	if s.state.CurrentDumpID == "" || s.driver == nil {
		return nil
	}

	searchDirs, err := m.symbols.SearchPath(s.state.CurrentDumpID)
	if err != nil {
		return err
	}
	dirs, servers := m.splitSymbolPaths(s)
	return s.driver.ReloadSymbols(ctx, append(searchDirs, dirs...), servers)
}

// splitSymbolPaths separates the session's user-added entries into local
// directories and server URLs, appending the configured default server
// last. Local paths always precede servers in the search order. Caller
// holds s.mu.
func (m *Manager) splitSymbolPaths(s *Session) (dirs, servers []string) {
	for _, p := range s.state.SymbolPaths {
		if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
			servers = append(servers, p)
		} else {
			dirs = append(dirs, p)
		}
	}
	if m.cfg.DefaultSymbolServer != "" {
		servers = append(servers, m.cfg.DefaultSymbolServer)
	}
	return dirs, servers
}

// isManaged reports whether the dump holds a managed runtime, from the
// upload-time runtime detection or the dump's own module list.
func isManaged(info *dump.Info, path string) bool {
	if info.RuntimeVersion != "" {
		return true
	}

	insp, err := inspect.New(path, info.Format, nil)
	if err != nil {
		return false
	}
	defer closeInspector(insp)

	modules, err := insp.ListModules(context.Background())
	if err != nil {
		return false
	}
	for _, mod := range modules {
		name := strings.ToLower(mod.Name)
		if name == "libcoreclr.so" || name == "coreclr.dll" || name == "clr.dll" {
			return true
		}
	}
	return false
}

func closeInspector(insp inspect.Inspector) {
	if c, ok := insp.(interface{ Close() error }); ok {
		c.Close()
	}
}
