package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/coredock/coredock/internal/logger"
	"github.com/coredock/coredock/pkg/debugger"
)

// AddWatch appends a watch expression to the session. Ids are monotonic
// within the session and never reused. An empty kind is inferred: a hex
// address becomes a memory watch, anything else a command watch.
func (m *Manager) AddWatch(ctx context.Context, sessionID, userID string, kind WatchKind, expression, label string) (Watch, error) {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return Watch{}, err
	}
	if expression == "" {
		return Watch{}, errors.New("watch expression is required")
	}
	if kind == "" {
		kind = inferWatchKind(expression)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w := Watch{
		ID:         s.state.NextWatchID,
		Kind:       kind,
		Expression: expression,
		Label:      label,
		CreatedAt:  time.Now().UTC(),
	}
	s.state.NextWatchID++
	s.state.Watches = append(s.state.Watches, w)
	s.touchLocked()
	if err := m.persistLocked(s); err != nil {
		return Watch{}, err
	}

	logger.InfoCtx(ctx, "watch added",
		logger.SessionID(sessionID), logger.WatchID(w.ID))
	return w, nil
}

// ListWatches returns the session's watches in insertion order.
func (m *Manager) ListWatches(sessionID, userID string) ([]Watch, error) {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Watch(nil), s.state.Watches...), nil
}

// RemoveWatch deletes one watch by id.
func (m *Manager) RemoveWatch(sessionID, userID string, watchID int) error {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.state.Watches {
		if w.ID == watchID {
			s.state.Watches = append(s.state.Watches[:i], s.state.Watches[i+1:]...)
			s.touchLocked()
			return m.persistLocked(s)
		}
	}
	return ErrWatchNotFound
}

// ClearWatches empties the session's watch list. Ids keep advancing so
// a later Add never reuses a cleared id.
func (m *Manager) ClearWatches(sessionID, userID string) error {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Watches = nil
	s.touchLocked()
	return m.persistLocked(s)
}

// EvalWatch evaluates one watch by id.
func (m *Manager) EvalWatch(ctx context.Context, sessionID, userID string, watchID int) (WatchResult, error) {
	s, err := m.get(sessionID, userID)
	if err != nil {
		return WatchResult{}, err
	}

	s.mu.Lock()
	var target *Watch
	for i := range s.state.Watches {
		if s.state.Watches[i].ID == watchID {
			target = &s.state.Watches[i]
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return WatchResult{}, ErrWatchNotFound
	}
	w := *target
	s.mu.Unlock()

	return m.evalOne(ctx, sessionID, userID, w), nil
}

// EvalWatches evaluates every watch, returning results in watch order.
// Individual failures land in the result's Error field; the batch never
// fails because one expression does.
func (m *Manager) EvalWatches(ctx context.Context, sessionID, userID string) ([]WatchResult, error) {
	watches, err := m.ListWatches(sessionID, userID)
	if err != nil {
		return nil, err
	}

	results := make([]WatchResult, 0, len(watches))
	for _, w := range watches {
		results = append(results, m.evalOne(ctx, sessionID, userID, w))
	}
	return results, nil
}

func (m *Manager) evalOne(ctx context.Context, sessionID, userID string, w Watch) WatchResult {
	res := WatchResult{Watch: w}

	cmd := w.Expression
	if w.Kind == WatchMemory {
		cmd = memoryReadCommand(m.cfg.Debugger.Kind, w.Expression)
	}

	out, err := m.Execute(ctx, sessionID, userID, cmd, 0)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Value = out
	return res
}

func inferWatchKind(expression string) WatchKind {
	if strings.HasPrefix(strings.ToLower(expression), "0x") {
		return WatchMemory
	}
	return WatchCommand
}

func memoryReadCommand(kind debugger.Kind, addr string) string {
	if kind == debugger.KindCDB {
		return "dq " + addr
	}
	return "memory read " + addr
}
