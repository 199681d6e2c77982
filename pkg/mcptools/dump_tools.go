package mcptools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coredock/coredock/pkg/session"
)

type OpenDumpInput struct {
	SessionRef
	DumpID string `json:"dumpId" jsonschema:"The dump to load into the session"`
}

type CloseDumpOutput struct {
	SessionID string `json:"sessionId"`
	Closed    bool   `json:"closed"`
}

type ExecuteCommandInput struct {
	SessionRef
	Command string `json:"command" jsonschema:"The raw debugger command to run"`

	// TimeoutSeconds overrides the configured tool timeout, zero keeps it.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty" jsonschema:"Command timeout in seconds, 0 for the server default"`
}

type ExecuteCommandOutput struct {
	Output string `json:"output"`
}

func (s *Server) registerDumpTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "open_dump",
		Description: "Load a dump into the session's debugger, spawning it lazily. " +
			"Re-opening replaces the debugger process, so this also recovers from a dead debugger.",
	}, tool(s, "open_dump", func(ctx context.Context, in OpenDumpInput) (*session.OpenResult, error) {
		return s.deps.Sessions.OpenDump(ctx, in.SessionID, in.UserID, in.DumpID)
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "close_dump",
		Description: "Detach the session from its open dump and terminate the debugger process.",
	}, tool(s, "close_dump", func(ctx context.Context, in SessionRef) (CloseDumpOutput, error) {
		if err := s.deps.Sessions.CloseDump(in.SessionID, in.UserID); err != nil {
			return CloseDumpOutput{}, err
		}
		return CloseDumpOutput{SessionID: in.SessionID, Closed: true}, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "execute_command",
		Description: "Run one raw debugger command in the session and return its output. " +
			"Commands on the same session serialise; use analyze_* tools for structured results.",
	}, tool(s, "execute_command", func(ctx context.Context, in ExecuteCommandInput) (ExecuteCommandOutput, error) {
		out, err := s.deps.Sessions.Execute(ctx, in.SessionID, in.UserID,
			in.Command, time.Duration(in.TimeoutSeconds)*time.Second)
		if err != nil {
			return ExecuteCommandOutput{}, err
		}
		return ExecuteCommandOutput{Output: out}, nil
	}))
}
