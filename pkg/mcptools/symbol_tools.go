package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ConfigureSymbolsInput struct {
	SessionRef
	Path string `json:"path" jsonschema:"A local directory or an http(s) symbol server URL to add to the search path"`
}

type SymbolsOutput struct {
	SessionID string `json:"sessionId"`
	Applied   bool   `json:"applied"`
}

func (s *Server) registerSymbolTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "configure_additional_symbols",
		Description: "Add a symbol directory or server URL to the session's search path. " +
			"Applied immediately when a dump is open and persisted with the session.",
	}, tool(s, "configure_additional_symbols", func(ctx context.Context, in ConfigureSymbolsInput) (SymbolsOutput, error) {
		if err := s.deps.Sessions.AddSymbolPath(ctx, in.SessionID, in.UserID, in.Path); err != nil {
			return SymbolsOutput{}, err
		}
		return SymbolsOutput{SessionID: in.SessionID, Applied: true}, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reload_symbols",
		Description: "Reapply the full symbol search path on the session's live debugger, picking up newly uploaded symbols.",
	}, tool(s, "reload_symbols", func(ctx context.Context, in SessionRef) (SymbolsOutput, error) {
		if err := s.deps.Sessions.ReloadSymbols(ctx, in.SessionID, in.UserID); err != nil {
			return SymbolsOutput{}, err
		}
		return SymbolsOutput{SessionID: in.SessionID, Applied: true}, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_symbol_cache",
		Description: "Drop the session's user-added symbol paths and reapply the default search path.",
	}, tool(s, "clear_symbol_cache", func(ctx context.Context, in SessionRef) (SymbolsOutput, error) {
		if err := s.deps.Sessions.ClearSymbolPaths(ctx, in.SessionID, in.UserID); err != nil {
			return SymbolsOutput{}, err
		}
		return SymbolsOutput{SessionID: in.SessionID, Applied: true}, nil
	}))
}
