package mcptools

import (
	"context"
	"strings"
	"time"

	"github.com/coredock/coredock/pkg/analysis"
	"github.com/coredock/coredock/pkg/debugger"
	"github.com/coredock/coredock/pkg/dump"
	"github.com/coredock/coredock/pkg/inspect"
	"github.com/coredock/coredock/pkg/session"
)

// sessionExecutor binds analysis command execution to one session, going
// through the manager so ownership, activity tracking, and death
// handling all apply.
type sessionExecutor struct {
	server *Server
	ref    SessionRef
}

func (e sessionExecutor) Execute(ctx context.Context, cmd string, timeout time.Duration) (string, error) {
	return e.server.deps.Sessions.Execute(ctx, e.ref.SessionID, e.ref.UserID, cmd, timeout)
}

// target assembles the analysis view of a session with an open dump.
func (s *Server) target(ctx context.Context, ref SessionRef) (analysis.Target, *dump.Info, error) {
	dumpID, err := s.deps.Sessions.CurrentDump(ref.SessionID, ref.UserID)
	if err != nil {
		return analysis.Target{}, nil, err
	}
	if dumpID == "" {
		return analysis.Target{}, nil, session.ErrNoDump
	}

	info, err := s.deps.Dumps.Get(ref.UserID, dumpID)
	if err != nil {
		return analysis.Target{}, nil, err
	}

	// Structured inspection can be unavailable for exotic containers; the
	// analyses degrade rather than fail.
	insp, err := s.deps.Sessions.Inspector(ref.SessionID, ref.UserID)
	if err != nil {
		insp = nil
	}

	dbg, err := s.deps.Sessions.DebuggerInfo(ref.SessionID, ref.UserID)
	if err != nil {
		return analysis.Target{}, nil, err
	}

	return analysis.Target{
		Exec:     sessionExecutor{server: s, ref: ref},
		Insp:     insp,
		Debugger: debugger.Kind(dbg.Kind),
		Managed:  isManagedDump(ctx, info, insp),
	}, info, nil
}

// isManagedDump reports whether the dump carries a managed runtime, from
// upload-time detection or the module list.
func isManagedDump(ctx context.Context, info *dump.Info, insp inspect.Inspector) bool {
	if info.RuntimeVersion != "" {
		return true
	}
	if insp == nil {
		return false
	}
	modules, err := insp.ListModules(ctx)
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
