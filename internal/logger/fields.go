package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so that sessions,
// dumps, and tool calls can be correlated during log aggregation.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Debugging Domain
	// ========================================================================
	KeyTool      = "tool"       // MCP tool or HTTP operation name
	KeySessionID = "session_id" // Debug session identifier
	KeyUserID    = "user_id"    // Owning user identifier
	KeyDumpID    = "dump_id"    // Dump identifier
	KeyFormat    = "format"     // Dump format (minidump, elf-core, macho-core)
	KeyArch      = "arch"       // Processor architecture (x64, arm64, ...)
	KeyDebugger  = "debugger"   // Debugger kind (lldb, cdb)
	KeyCommand   = "command"    // Debugger command text
	KeyState     = "state"      // Driver state (idle, loading, ready, suspect, failed)
	KeyPID       = "pid"        // Debugger subprocess PID
	KeyWatchID   = "watch_id"   // Watch expression identifier
	KeyAnalysis  = "analysis"   // Analysis kind (crash, contention, ...)

	// ========================================================================
	// Storage
	// ========================================================================
	KeyPath     = "path"     // Filesystem path inside the storage root
	KeyFilename = "filename" // Uploaded file name (basename)
	KeySize     = "size"     // Size in bytes

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP  = "client_ip"  // Client IP address
	KeyRequestID = "request_id" // HTTP request ID

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Error code (taxonomy kind)
	KeyTimeout    = "timeout"     // Effective timeout for the operation
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Tool returns a slog.Attr for MCP tool or HTTP operation name
func Tool(name string) slog.Attr {
	return slog.String(KeyTool, name)
}

// SessionID returns a slog.Attr for session identifier
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// UserID returns a slog.Attr for user identifier
func UserID(id string) slog.Attr {
	return slog.String(KeyUserID, id)
}

// DumpID returns a slog.Attr for dump identifier
func DumpID(id string) slog.Attr {
	return slog.String(KeyDumpID, id)
}

// Format returns a slog.Attr for dump format
func Format(f string) slog.Attr {
	return slog.String(KeyFormat, f)
}

// Arch returns a slog.Attr for processor architecture
func Arch(a string) slog.Attr {
	return slog.String(KeyArch, a)
}

// Debugger returns a slog.Attr for debugger kind
func Debugger(kind string) slog.Attr {
	return slog.String(KeyDebugger, kind)
}

// Command returns a slog.Attr for a debugger command
func Command(cmd string) slog.Attr {
	return slog.String(KeyCommand, cmd)
}

// State returns a slog.Attr for driver state
func State(s string) slog.Attr {
	return slog.String(KeyState, s)
}

// PID returns a slog.Attr for a subprocess PID
func PID(pid int) slog.Attr {
	return slog.Int(KeyPID, pid)
}

// WatchID returns a slog.Attr for a watch identifier
func WatchID(id int) slog.Attr {
	return slog.Int(KeyWatchID, id)
}

// Analysis returns a slog.Attr for an analysis kind
func Analysis(kind string) slog.Attr {
	return slog.String(KeyAnalysis, kind)
}

// Path returns a slog.Attr for a storage path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Filename returns a slog.Attr for an uploaded file name
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// Size returns a slog.Attr for a size in bytes
func Size(s int64) slog.Attr {
	return slog.Int64(KeySize, s)
}

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// RequestID returns a slog.Attr for HTTP request ID
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for an error taxonomy code
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}
