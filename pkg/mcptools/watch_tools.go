package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coredock/coredock/pkg/session"
)

type AddWatchInput struct {
	SessionRef
	Expression string `json:"expression" jsonschema:"A debugger command or a hex memory address"`
	Kind       string `json:"kind,omitempty" jsonschema:"command or memory, inferred from the expression when empty"`
	Label      string `json:"label,omitempty" jsonschema:"Optional display label"`
}

type WatchListOutput struct {
	Watches []session.Watch `json:"watches"`
	Count   int             `json:"count"`
}

type WatchIDInput struct {
	SessionRef
	WatchID int `json:"watchId" jsonschema:"The watch identifier"`
}

type WatchResultsOutput struct {
	Results []session.WatchResult `json:"results"`
}

type WatchesClearedOutput struct {
	SessionID string `json:"sessionId"`
	Cleared   bool   `json:"cleared"`
}

func (s *Server) registerWatchTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "add_watch",
		Description: "Add a watch expression to the session. Hex addresses become memory watches, " +
			"anything else a command watch. Watches persist with the session.",
	}, tool(s, "add_watch", func(ctx context.Context, in AddWatchInput) (session.Watch, error) {
		return s.deps.Sessions.AddWatch(ctx, in.SessionID, in.UserID,
			session.WatchKind(in.Kind), in.Expression, in.Label)
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_watches",
		Description: "List the session's watches in insertion order.",
	}, tool(s, "list_watches", func(ctx context.Context, in SessionRef) (WatchListOutput, error) {
		watches, err := s.deps.Sessions.ListWatches(in.SessionID, in.UserID)
		if err != nil {
			return WatchListOutput{}, err
		}
		if watches == nil {
			watches = []session.Watch{}
		}
		return WatchListOutput{Watches: watches, Count: len(watches)}, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "eval_watch",
		Description: "Evaluate one watch by id against the session's open dump.",
	}, tool(s, "eval_watch", func(ctx context.Context, in WatchIDInput) (session.WatchResult, error) {
		return s.deps.Sessions.EvalWatch(ctx, in.SessionID, in.UserID, in.WatchID)
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "eval_watches",
		Description: "Evaluate every watch in the session. Individual failures are reported " +
			"per watch; the batch never fails because one expression does.",
	}, tool(s, "eval_watches", func(ctx context.Context, in SessionRef) (WatchResultsOutput, error) {
		results, err := s.deps.Sessions.EvalWatches(ctx, in.SessionID, in.UserID)
		if err != nil {
			return WatchResultsOutput{}, err
		}
		if results == nil {
			results = []session.WatchResult{}
		}
		return WatchResultsOutput{Results: results}, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "remove_watch",
		Description: "Remove one watch by id.",
	}, tool(s, "remove_watch", func(ctx context.Context, in WatchIDInput) (WatchesClearedOutput, error) {
		if err := s.deps.Sessions.RemoveWatch(in.SessionID, in.UserID, in.WatchID); err != nil {
			return WatchesClearedOutput{}, err
		}
		return WatchesClearedOutput{SessionID: in.SessionID, Cleared: true}, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_watches",
		Description: "Remove every watch from the session. Watch ids are never reused afterwards.",
	}, tool(s, "clear_watches", func(ctx context.Context, in SessionRef) (WatchesClearedOutput, error) {
		if err := s.deps.Sessions.ClearWatches(in.SessionID, in.UserID); err != nil {
			return WatchesClearedOutput{}, err
		}
		return WatchesClearedOutput{SessionID: in.SessionID, Cleared: true}, nil
	}))
}
