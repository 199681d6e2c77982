// Package session manages debugging sessions across users: lifecycle,
// quotas, persistence, idle eviction, and the ownership check every tool
// call funnels through.
//
// One JSON file per session lives under <root>/sessions/. Files are
// written atomically on every mutation; at startup surviving sessions are
// listed again but no debugger process is spawned until a dump is opened.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coredock/coredock/internal/logger"
	"github.com/coredock/coredock/pkg/debugger"
	"github.com/coredock/coredock/pkg/dump"
	"github.com/coredock/coredock/pkg/ident"
	"github.com/coredock/coredock/pkg/metrics"
)

// DumpStore is the slice of the dump store the manager needs.
type DumpStore interface {
	Get(userID, dumpID string) (*dump.Info, error)
	Path(userID, dumpID string) (string, error)
	ExecutablePath(userID, dumpID string) (string, error)
}

// SymbolStore is the slice of the symbol store the manager needs.
type SymbolStore interface {
	SearchPath(dumpID string) ([]string, error)
}

// Config holds manager configuration.
type Config struct {
	// Root is the storage root; session files live under Root/sessions.
	Root string

	// MaxPerUser caps concurrent sessions per user.
	MaxPerUser int

	// IdleTTL evicts sessions whose last activity is older than this.
	IdleTTL time.Duration

	// ToolTimeout is the default Execute timeout.
	ToolTimeout time.Duration

	// TickInterval is the eviction loop period.
	TickInterval time.Duration

	// Debugger configures each session's driver.
	Debugger debugger.Config

	// DefaultSymbolServer is appended after session symbol servers.
	DefaultSymbolServer string

	// Metrics observes debugger spawns, deaths, and commands. Nil
	// disables collection.
	Metrics metrics.DebuggerMetrics
}

// Manager owns the session table.
//
// The table mutex is never held across driver I/O; per-session work
// happens under the session's own mutex.
type Manager struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*Session

	dumps   DumpStore
	symbols SymbolStore
}

// NewManager creates the manager and reloads persisted sessions.
func NewManager(cfg Config, dumps DumpStore, symbols SymbolStore) (*Manager, error) {
	if cfg.MaxPerUser <= 0 {
		cfg.MaxPerUser = 3
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 300 * time.Second
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if err := os.MkdirAll(filepath.Join(cfg.Root, "sessions"), 0755); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}

	m := &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		dumps:    dumps,
		symbols:  symbols,
	}
	if err := m.loadSessions(); err != nil {
		return nil, err
	}
	return m, nil
}

// Create registers a new session for the user, enforcing the per-user
// quota.
func (m *Manager) Create(ctx context.Context, userID string) (Summary, error) {
	if err := ident.ValidateID(userID); err != nil {
		return Summary{}, fmt.Errorf("user id: %w", err)
	}

	m.mu.Lock()
	owned := 0
	for _, s := range m.sessions {
		if s.state.UserID == userID {
			owned++
		}
	}
	if owned >= m.cfg.MaxPerUser {
		m.mu.Unlock()
		return Summary{}, fmt.Errorf("%w: maximum number of sessions reached (%d of %d)",
			ErrQuotaExceeded, owned, m.cfg.MaxPerUser)
	}

	now := time.Now().UTC()
	s := &Session{state: state{
		SchemaVersion: stateSchemaVersion,
		ID:            ident.NewSessionID(),
		UserID:        userID,
		CreatedAt:     now,
		LastActivity:  now,
		NextWatchID:   1,
	}}
	m.sessions[s.state.ID] = s
	m.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := m.persistLocked(s); err != nil {
		m.removeFromTable(s.state.ID)
		return Summary{}, err
	}

	logger.InfoCtx(ctx, "session created",
		logger.SessionID(s.state.ID), logger.UserID(userID))
	return s.summaryLocked(), nil
}

// Get returns the session summary after the ownership check. Every tool
// call goes through get(); there is no other authorization boundary.
func (m *Manager) Get(sessionID, userID string) (Summary, error) {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return Summary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked(), nil
}

// List returns the user's sessions, most recently active first.
func (m *Manager) List(userID string) []Summary {
	m.mu.RLock()
	var owned []*Session
	for _, s := range m.sessions {
		if s.state.UserID == userID {
			owned = append(owned, s)
		}
	}
	m.mu.RUnlock()

	summaries := make([]Summary, 0, len(owned))
	for _, s := range owned {
		s.mu.Lock()
		summaries = append(summaries, s.summaryLocked())
		s.mu.Unlock()
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})
	return summaries
}

// Close terminates the session's driver and removes its persisted state.
func (m *Manager) Close(sessionID, userID string) error {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.driver != nil {
		s.driver.Close()
		s.driver = nil
	}
	if s.inspector != nil {
		closeInspector(s.inspector)
		s.inspector = nil
	}
	s.mu.Unlock()

	m.removeFromTable(sessionID)
	if err := os.Remove(m.sessionFile(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file: %w", err)
	}

	logger.Info("session closed",
		logger.SessionID(sessionID), logger.UserID(userID))
	return nil
}

// Restore touches the session and returns its current state. It never
// spawns a debugger; callers must re-open their dump.
func (m *Manager) Restore(sessionID, userID string) (Summary, error) {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return Summary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if err := m.persistLocked(s); err != nil {
		return Summary{}, err
	}
	return s.summaryLocked(), nil
}

// Tick closes every session idle longer than the TTL. Returns the number
// of sessions evicted.
func (m *Manager) Tick(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-m.cfg.IdleTTL)

	m.mu.RLock()
	var idle []*Session
	for _, s := range m.sessions {
		s.mu.Lock()
		if s.state.LastActivity.Before(cutoff) {
			idle = append(idle, s)
		}
		s.mu.Unlock()
	}
	m.mu.RUnlock()

	for _, s := range idle {
		logger.InfoCtx(ctx, "evicting idle session",
			logger.SessionID(s.state.ID), logger.UserID(s.state.UserID))
		if err := m.Close(s.state.ID, s.state.UserID); err != nil {
			logger.Warn("idle eviction failed",
				logger.SessionID(s.state.ID), logger.Err(err))
		}
	}
	return len(idle)
}

// Run drives the eviction loop until the context is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Shutdown terminates every driver without removing persisted state, so
// sessions survive a restart.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.mu.Lock()
		if s.driver != nil {
			s.driver.Close()
			s.driver = nil
		}
		if s.inspector != nil {
			closeInspector(s.inspector)
			s.inspector = nil
		}
		s.mu.Unlock()
	}
}

// SessionCount returns the number of registered sessions across users.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// DumpInUse reports whether any live session has the dump open. This is
// the dump store's delete guard.
func (m *Manager) DumpInUse(dumpID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		s.mu.Lock()
		open := s.state.CurrentDumpID == dumpID
		s.mu.Unlock()
		if open {
			return true
		}
	}
	return false
}

// get performs the lookup plus ownership check.
func (m *Manager) get(sessionID, userID string) (*Session, error) {
	if err := ident.ValidateID(sessionID); err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	if err := ident.ValidateID(userID); err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}

	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if s.state.UserID != userID {
		return nil, ErrUnauthorized
	}
	return s, nil
}

func (m *Manager) removeFromTable(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// ============================================================================
// Persistence
// ============================================================================

func (m *Manager) sessionFile(sessionID string) string {
	return filepath.Join(m.cfg.Root, "sessions", sessionID+".json")
}

// persistLocked writes the session file atomically. Caller holds s.mu.
func (m *Manager) persistLocked(s *Session) error {
	data, err := json.MarshalIndent(&s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}

	path := m.sessionFile(s.state.ID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("placing session state: %w", err)
	}
	return nil
}

// loadSessions reloads the table from disk at startup. Corrupt files are
// skipped with a warning, never fatal.
func (m *Manager) loadSessions() error {
	dir := filepath.Join(m.cfg.Root, "sessions")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading sessions directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("skipping unreadable session file",
				logger.Path(name), logger.Err(err))
			continue
		}
		var st state
		if err := json.Unmarshal(data, &st); err != nil || st.ID == "" {
			logger.Warn("skipping corrupt session file",
				logger.Path(name), logger.Err(err))
			continue
		}
		m.sessions[st.ID] = &Session{state: st}
	}

	logger.Info("sessions restored", "count", len(m.sessions))
	return nil
}
