package mcptools

import (
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coredock/coredock/pkg/debugger"
	"github.com/coredock/coredock/pkg/dump"
	"github.com/coredock/coredock/pkg/ident"
	"github.com/coredock/coredock/pkg/session"
	"github.com/coredock/coredock/pkg/symbols"
)

// errorEnvelope is the failure body of every tool call.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// errResult packages a domain error as a tool error result instead of a
// protocol failure, so clients see the taxonomy code.
func errResult(code string, err error) *mcp.CallToolResult {
	body, merr := json.Marshal(errorEnvelope{Code: code, Message: err.Error()})
	if merr != nil {
		body = []byte(`{"code":"Internal","message":"error encoding failure"}`)
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}
}

// errorCode maps a domain error onto the taxonomy shared with the REST
// surface.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ident.ErrInvalid),
		errors.Is(err, dump.ErrBadID),
		errors.Is(err, symbols.ErrBadID),
		errors.Is(err, session.ErrNoDump):
		return "Validation"
	case errors.Is(err, dump.ErrInvalidFormat),
		errors.Is(err, symbols.ErrInvalidFormat),
		errors.Is(err, symbols.ErrBadArchive):
		return "FormatInvalid"
	case errors.Is(err, dump.ErrTooLarge):
		return "TooLarge"
	case errors.Is(err, dump.ErrNotFound),
		errors.Is(err, symbols.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrWatchNotFound):
		return "NotFound"
	case errors.Is(err, session.ErrUnauthorized):
		return "Auth"
	case errors.Is(err, dump.ErrInUse),
		errors.Is(err, session.ErrDumpOpen),
		errors.Is(err, session.ErrQuotaExceeded):
		return "Conflict"
	case errors.Is(err, debugger.ErrTimeout):
		return "DebuggerTimeout"
	case errors.Is(err, debugger.ErrDebuggerDied):
		return "DebuggerDied"
	default:
		return "Internal"
	}
}
