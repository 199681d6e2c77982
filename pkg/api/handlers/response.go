package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coredock/coredock/internal/logger"
	"github.com/coredock/coredock/pkg/debugger"
	"github.com/coredock/coredock/pkg/dump"
	"github.com/coredock/coredock/pkg/ident"
	"github.com/coredock/coredock/pkg/session"
	"github.com/coredock/coredock/pkg/symbols"
)

// Problem is the error body every endpoint returns on failure.
type Problem struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode,omitempty"`
	Details   string `json:"details,omitempty"`
}

// errValidation marks request-shape failures (missing form fields, bad
// multipart bodies) so classify maps them to 400.
var errValidation = errors.New("invalid request")

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encoding response failed", logger.Err(err))
	}
}

// Error maps a domain error onto the REST status and error-code taxonomy
// and writes the Problem body. Unclassified errors are logged and masked.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if code == "Internal" {
		logger.WarnCtx(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, logger.Err(err))
		msg = "internal error"
	}
	JSON(w, status, Problem{Error: msg, ErrorCode: code})
}

func classify(err error) (status int, code string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, ident.ErrInvalid),
		errors.Is(err, dump.ErrBadID),
		errors.Is(err, symbols.ErrBadID),
		errors.Is(err, session.ErrNoDump),
		errors.Is(err, errValidation):
		return http.StatusBadRequest, "Validation"
	case errors.Is(err, dump.ErrInvalidFormat),
		errors.Is(err, symbols.ErrInvalidFormat),
		errors.Is(err, symbols.ErrBadArchive):
		return http.StatusBadRequest, "FormatInvalid"
	case errors.Is(err, dump.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "TooLarge"
	case errors.Is(err, dump.ErrNotFound),
		errors.Is(err, symbols.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrWatchNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, session.ErrUnauthorized):
		return http.StatusForbidden, "Auth"
	case errors.Is(err, dump.ErrInUse),
		errors.Is(err, session.ErrDumpOpen),
		errors.Is(err, session.ErrQuotaExceeded):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, debugger.ErrTimeout):
		return http.StatusInternalServerError, "DebuggerTimeout"
	case errors.Is(err, debugger.ErrDebuggerDied):
		return http.StatusInternalServerError, "DebuggerDied"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}
