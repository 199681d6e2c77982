package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for debugging operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// ========================================================================
	// Session attributes
	// ========================================================================
	AttrSessionID = "session.id"
	AttrUserID    = "user.id"
	AttrWatchID   = "session.watch_id"

	// ========================================================================
	// Dump attributes
	// ========================================================================
	AttrDumpID     = "dump.id"
	AttrDumpFormat = "dump.format"
	AttrDumpArch   = "dump.arch"
	AttrDumpSize   = "dump.size"
	AttrFilename   = "dump.filename"

	// ========================================================================
	// Debugger attributes
	// ========================================================================
	AttrDebuggerKind  = "debugger.kind" // lldb, cdb
	AttrDebuggerState = "debugger.state"
	AttrDebuggerPID   = "debugger.pid"
	AttrCommand       = "debugger.command"

	// ========================================================================
	// Tool/API attributes
	// ========================================================================
	AttrTool      = "tool.name" // MCP tool or HTTP operation name
	AttrAnalysis  = "analysis.kind"
	AttrErrorCode = "error.code"

	// ========================================================================
	// Storage attributes
	// ========================================================================
	AttrStorePath = "store.path"
	AttrStoreKind = "store.kind" // dumps, symbols, sessions
)

// Span names for operations.
// Format: <component>.<operation>
const (
	SpanToolCall = "tool.call"

	SpanDumpPut    = "dump.put"
	SpanDumpGet    = "dump.get"
	SpanDumpDelete = "dump.delete"
	SpanDumpList   = "dump.list"

	SpanSymbolPut    = "symbols.put"
	SpanSymbolPutZip = "symbols.put_zip"

	SpanSessionCreate  = "session.create"
	SpanSessionClose   = "session.close"
	SpanSessionRestore = "session.restore"

	SpanDebuggerSpawn   = "debugger.spawn"
	SpanDebuggerOpen    = "debugger.open"
	SpanDebuggerExecute = "debugger.execute"

	SpanAnalysisRun = "analysis.run"
	SpanReportBuild = "report.build"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// SessionIDAttr returns an attribute for session identifier
func SessionIDAttr(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// UserIDAttr returns an attribute for user identifier
func UserIDAttr(id string) attribute.KeyValue {
	return attribute.String(AttrUserID, id)
}

// WatchID returns an attribute for a watch identifier
func WatchID(id int) attribute.KeyValue {
	return attribute.Int(AttrWatchID, id)
}

// DumpID returns an attribute for dump identifier
func DumpID(id string) attribute.KeyValue {
	return attribute.String(AttrDumpID, id)
}

// DumpFormat returns an attribute for dump format
func DumpFormat(format string) attribute.KeyValue {
	return attribute.String(AttrDumpFormat, format)
}

// DumpArch returns an attribute for dump architecture
func DumpArch(arch string) attribute.KeyValue {
	return attribute.String(AttrDumpArch, arch)
}

// DumpSize returns an attribute for dump size in bytes
func DumpSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrDumpSize, size)
}

// Filename returns an attribute for an uploaded file name
func Filename(name string) attribute.KeyValue {
	return attribute.String(AttrFilename, name)
}

// DebuggerKind returns an attribute for debugger kind
func DebuggerKind(kind string) attribute.KeyValue {
	return attribute.String(AttrDebuggerKind, kind)
}

// DebuggerState returns an attribute for driver state
func DebuggerState(state string) attribute.KeyValue {
	return attribute.String(AttrDebuggerState, state)
}

// DebuggerPID returns an attribute for debugger subprocess PID
func DebuggerPID(pid int) attribute.KeyValue {
	return attribute.Int(AttrDebuggerPID, pid)
}

// Command returns an attribute for a debugger command
func Command(cmd string) attribute.KeyValue {
	return attribute.String(AttrCommand, cmd)
}

// Tool returns an attribute for MCP tool or HTTP operation name
func Tool(name string) attribute.KeyValue {
	return attribute.String(AttrTool, name)
}

// Analysis returns an attribute for analysis kind
func Analysis(kind string) attribute.KeyValue {
	return attribute.String(AttrAnalysis, kind)
}

// ErrorCode returns an attribute for an error taxonomy code
func ErrorCode(code string) attribute.KeyValue {
	return attribute.String(AttrErrorCode, code)
}

// StorePath returns an attribute for a storage path
func StorePath(path string) attribute.KeyValue {
	return attribute.String(AttrStorePath, path)
}

// StoreKind returns an attribute for a store kind
func StoreKind(kind string) attribute.KeyValue {
	return attribute.String(AttrStoreKind, kind)
}

// StartToolSpan starts a span for an MCP tool or HTTP operation.
// This is a convenience function that sets common attributes.
func StartToolSpan(ctx context.Context, tool string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Tool(tool),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "tool."+tool, trace.WithAttributes(allAttrs...))
}

// StartSessionSpan starts a span for a session manager operation.
func StartSessionSpan(ctx context.Context, operation, sessionID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		SessionIDAttr(sessionID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "session."+operation, trace.WithAttributes(allAttrs...))
}

// StartDebuggerSpan starts a span for a debugger driver operation.
func StartDebuggerSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "debugger."+operation, trace.WithAttributes(attrs...))
}

// StartStoreSpan starts a span for a dump or symbol store operation.
func StartStoreSpan(ctx context.Context, kind, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		StoreKind(kind),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, kind+"."+operation, trace.WithAttributes(allAttrs...))
}
