package metrics

import "time"

// HTTPMetrics observes the REST surface. Pass nil to disable with zero
// overhead.
type HTTPMetrics interface {
	// RecordRequest records a completed HTTP request.
	RecordRequest(method, route string, status int, duration time.Duration)

	// RecordRequestStart and RecordRequestEnd track in-flight requests.
	RecordRequestStart(method, route string)
	RecordRequestEnd(method, route string)
}

// ToolMetrics observes MCP tool dispatch. Pass nil to disable.
type ToolMetrics interface {
	// RecordCall records a completed tool call; errorCode is empty on
	// success, otherwise the taxonomy code returned to the client.
	RecordCall(tool string, duration time.Duration, errorCode string)
}

// DebuggerMetrics observes debugger subprocess lifecycle and commands.
// Pass nil to disable.
type DebuggerMetrics interface {
	RecordSpawn(kind string)
	RecordDeath(kind string)
	RecordCommand(kind string, duration time.Duration, errorCode string)
}
