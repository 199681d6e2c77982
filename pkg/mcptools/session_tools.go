package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coredock/coredock/pkg/session"
)

// SessionRef identifies a session on behalf of its owner. Every
// session-scoped tool embeds it.
type SessionRef struct {
	SessionID string `json:"sessionId" jsonschema:"The session identifier"`
	UserID    string `json:"userId" jsonschema:"The user that owns the session"`
}

type CreateSessionInput struct {
	UserID string `json:"userId" jsonschema:"The user the session belongs to"`
}

type ListSessionsInput struct {
	UserID string `json:"userId" jsonschema:"The user whose sessions to list"`
}

type SessionListOutput struct {
	Sessions []session.Summary `json:"sessions"`
	Count    int               `json:"count"`
}

type ClosedOutput struct {
	SessionID string `json:"sessionId"`
	Closed    bool   `json:"closed"`
}

func (s *Server) registerSessionTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "create_session",
		Description: "Create a new debugging session for a user. Sessions persist across server restarts and are evicted after the idle TTL.",
	}, tool(s, "create_session", func(ctx context.Context, in CreateSessionInput) (session.Summary, error) {
		return s.deps.Sessions.Create(ctx, in.UserID)
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List a user's debugging sessions, most recently active first.",
	}, tool(s, "list_sessions", func(ctx context.Context, in ListSessionsInput) (SessionListOutput, error) {
		sessions := s.deps.Sessions.List(in.UserID)
		if sessions == nil {
			sessions = []session.Summary{}
		}
		return SessionListOutput{Sessions: sessions, Count: len(sessions)}, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "close_session",
		Description: "Close a session, terminating its debugger and removing its persisted state.",
	}, tool(s, "close_session", func(ctx context.Context, in SessionRef) (ClosedOutput, error) {
		if err := s.deps.Sessions.Close(in.SessionID, in.UserID); err != nil {
			return ClosedOutput{}, err
		}
		return ClosedOutput{SessionID: in.SessionID, Closed: true}, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "restore_session",
		Description: "Touch a persisted session and return its current state. Never spawns a debugger; re-open the dump to resume debugging.",
	}, tool(s, "restore_session", func(ctx context.Context, in SessionRef) (session.Summary, error) {
		return s.deps.Sessions.Restore(in.SessionID, in.UserID)
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_debugger_info",
		Description: "Report the session's debugger kind, process state, PID, open dump, and configured symbol paths.",
	}, tool(s, "get_debugger_info", func(ctx context.Context, in SessionRef) (*session.DebuggerInfo, error) {
		return s.deps.Sessions.DebuggerInfo(in.SessionID, in.UserID)
	}))
}
