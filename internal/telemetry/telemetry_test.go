package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "coredock", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, ClientIP("192.168.1.1"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ClientIP", func(t *testing.T) {
		attr := ClientIP("192.168.1.100")
		assert.Equal(t, AttrClientIP, string(attr.Key))
		assert.Equal(t, "192.168.1.100", attr.Value.AsString())
	})

	t.Run("ClientAddr", func(t *testing.T) {
		attr := ClientAddr("192.168.1.100:12345")
		assert.Equal(t, AttrClientAddr, string(attr.Key))
		assert.Equal(t, "192.168.1.100:12345", attr.Value.AsString())
	})

	t.Run("SessionID", func(t *testing.T) {
		attr := SessionIDAttr("sess-1234")
		assert.Equal(t, AttrSessionID, string(attr.Key))
		assert.Equal(t, "sess-1234", attr.Value.AsString())
	})

	t.Run("UserID", func(t *testing.T) {
		attr := UserIDAttr("alice")
		assert.Equal(t, AttrUserID, string(attr.Key))
		assert.Equal(t, "alice", attr.Value.AsString())
	})

	t.Run("DumpID", func(t *testing.T) {
		attr := DumpID("0123456789abcdef0123456789abcdef")
		assert.Equal(t, AttrDumpID, string(attr.Key))
		assert.Equal(t, "0123456789abcdef0123456789abcdef", attr.Value.AsString())
	})

	t.Run("DumpFormat", func(t *testing.T) {
		attr := DumpFormat("elf-core")
		assert.Equal(t, AttrDumpFormat, string(attr.Key))
		assert.Equal(t, "elf-core", attr.Value.AsString())
	})

	t.Run("DumpArch", func(t *testing.T) {
		attr := DumpArch("arm64")
		assert.Equal(t, AttrDumpArch, string(attr.Key))
		assert.Equal(t, "arm64", attr.Value.AsString())
	})

	t.Run("DumpSize", func(t *testing.T) {
		attr := DumpSize(1048576)
		assert.Equal(t, AttrDumpSize, string(attr.Key))
		assert.Equal(t, int64(1048576), attr.Value.AsInt64())
	})

	t.Run("DebuggerKind", func(t *testing.T) {
		attr := DebuggerKind("lldb")
		assert.Equal(t, AttrDebuggerKind, string(attr.Key))
		assert.Equal(t, "lldb", attr.Value.AsString())
	})

	t.Run("DebuggerState", func(t *testing.T) {
		attr := DebuggerState("ready")
		assert.Equal(t, AttrDebuggerState, string(attr.Key))
		assert.Equal(t, "ready", attr.Value.AsString())
	})

	t.Run("DebuggerPID", func(t *testing.T) {
		attr := DebuggerPID(4242)
		assert.Equal(t, AttrDebuggerPID, string(attr.Key))
		assert.Equal(t, int64(4242), attr.Value.AsInt64())
	})

	t.Run("Command", func(t *testing.T) {
		attr := Command("bt all")
		assert.Equal(t, AttrCommand, string(attr.Key))
		assert.Equal(t, "bt all", attr.Value.AsString())
	})

	t.Run("Tool", func(t *testing.T) {
		attr := Tool("execute_command")
		assert.Equal(t, AttrTool, string(attr.Key))
		assert.Equal(t, "execute_command", attr.Value.AsString())
	})

	t.Run("Analysis", func(t *testing.T) {
		attr := Analysis("crash")
		assert.Equal(t, AttrAnalysis, string(attr.Key))
		assert.Equal(t, "crash", attr.Value.AsString())
	})

	t.Run("ErrorCode", func(t *testing.T) {
		attr := ErrorCode("CommandTimeout")
		assert.Equal(t, AttrErrorCode, string(attr.Key))
		assert.Equal(t, "CommandTimeout", attr.Value.AsString())
	})

	t.Run("WatchID", func(t *testing.T) {
		attr := WatchID(3)
		assert.Equal(t, AttrWatchID, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("StorePath", func(t *testing.T) {
		attr := StorePath("dumps/abc/dump.bin")
		assert.Equal(t, AttrStorePath, string(attr.Key))
		assert.Equal(t, "dumps/abc/dump.bin", attr.Value.AsString())
	})
}

func TestStartToolSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartToolSpan(ctx, "open_dump")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartToolSpan(ctx, "execute_command", SessionIDAttr("sess-1"), Command("k"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartSessionSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartSessionSpan(ctx, "create", "sess-123")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartSessionSpan(ctx, "close", "sess-456", UserIDAttr("bob"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartStoreSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartStoreSpan(ctx, "dumps", "put", DumpSize(1024))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartStoreSpan(ctx, "symbols", "list")
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}
