// Package mcptools exposes the debugging service as an MCP tool
// catalogue: session lifecycle, dump loading, raw command execution,
// structured inspection, symbols, analyses, comparisons, watches, and
// report generation.
//
// Every tool authorizes through the session manager's ownership check
// and returns either a structured success payload or an error envelope
// {code, message}. Errors never terminate the session except a dead
// debugger, which detaches the dump so open_dump can recover.
package mcptools

import (
	"context"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coredock/coredock/internal/logger"
	"github.com/coredock/coredock/pkg/analysis"
	"github.com/coredock/coredock/pkg/dump"
	"github.com/coredock/coredock/pkg/hostinfo"
	"github.com/coredock/coredock/pkg/metrics"
	"github.com/coredock/coredock/pkg/session"
)

// Deps carries the shared services every tool dispatches into.
type Deps struct {
	Sessions *session.Manager
	Dumps    *dump.Store

	// Host identifies this server in report headers.
	Host hostinfo.Info

	// Version is the server build version, reported in the MCP handshake.
	Version string

	// Tools records per-call metrics, nil to disable.
	Tools metrics.ToolMetrics

	// Advisories is the CVE dataset analyze_security scans against.
	// Nil uses the built-in dataset.
	Advisories []analysis.CVE
}

// Server is the MCP tool dispatcher.
type Server struct {
	deps Deps
	mcp  *mcp.Server
}

// New builds the MCP server and registers the full tool catalogue.
func New(deps Deps) *Server {
	if deps.Advisories == nil {
		deps.Advisories = defaultAdvisories
	}
	s := &Server{deps: deps}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "coredock",
		Version: deps.Version,
	}, &mcp.ServerOptions{
		Instructions: "Create a session with create_session, open a dump with " +
			"open_dump, then run execute_command, the analyze_* tools, or " +
			"generate_report. Sessions are owned by the creating userId.",
	})

	s.registerSessionTools()
	s.registerDumpTools()
	s.registerInspectTools()
	s.registerSymbolTools()
	s.registerWatchTools()
	s.registerAnalysisTools()
	s.registerReportTools()
	return s
}

// HTTPHandler returns the streamable HTTP transport for mounting at
// /mcp.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}

// MCP exposes the underlying server for stdio transports and tests.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// tool adapts a plain handler into the SDK shape, recording metrics and
// translating domain errors into the error envelope.
func tool[In, Out any](s *Server, name string, fn func(ctx context.Context, in In) (Out, error)) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		out, err := fn(ctx, in)

		code := ""
		if err != nil {
			code = errorCode(err)
		}
		if s.deps.Tools != nil {
			s.deps.Tools.RecordCall(name, time.Since(start), code)
		}
		if err != nil {
			logger.WarnCtx(ctx, "tool call failed",
				logger.Tool(name), logger.ErrorCode(code), logger.Err(err))
			var zero Out
			return errResult(code, err), zero, nil
		}
		return nil, out, nil
	}
}
