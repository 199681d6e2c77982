package mcptools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coredock/coredock/pkg/debugger"
	"github.com/coredock/coredock/pkg/dump"
	"github.com/coredock/coredock/pkg/hostinfo"
	"github.com/coredock/coredock/pkg/ident"
	"github.com/coredock/coredock/pkg/session"
	"github.com/coredock/coredock/pkg/symbols"
)

// TestFakeDebugger is the fake debugger subprocess for driver-backed
// tests; see the debugger package for the protocol it speaks.
func TestFakeDebugger(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	signal.Ignore(os.Interrupt)
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "script print(") && strings.HasSuffix(line, ")"):
			inner := strings.TrimSuffix(strings.TrimPrefix(line, "script print("), ")")
			if token, err := strconv.Unquote(inner); err == nil {
				fmt.Println(token)
			}
		case strings.HasPrefix(line, "target create"):
			fmt.Println("Core file was loaded.")
		default:
			fmt.Println("echo:" + line)
		}
	}
}

func fakeDebuggerPath(t *testing.T) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "fake-lldb")
	content := "#!/bin/sh\nGO_WANT_HELPER_PROCESS=1 exec '" + os.Args[0] +
		"' -test.run='^TestFakeDebugger$' -- \"$@\"\n"
	if err := os.WriteFile(script, []byte(content), 0755); err != nil {
		t.Fatalf("Failed to write fake debugger script: %v", err)
	}
	return script
}

func testMinidump() []byte {
	buf := make([]byte, 64)
	copy(buf, "MDMP")
	binary.LittleEndian.PutUint32(buf[8:], 0)
	binary.LittleEndian.PutUint32(buf[12:], 16)
	return buf
}

type env struct {
	server *Server
	dumps  *dump.Store
	mgr    *session.Manager
}

func newEnv(t *testing.T, maxPerUser int) *env {
	t.Helper()
	root := t.TempDir()

	ds, err := dump.New(dump.Config{
		Root:          filepath.Join(root, "dumps"),
		InMemoryIndex: true,
	})
	if err != nil {
		t.Fatalf("Failed to create dump store: %v", err)
	}
	t.Cleanup(func() { ds.Close() })

	ss, err := symbols.New(filepath.Join(root, "symbols"))
	if err != nil {
		t.Fatalf("Failed to create symbol store: %v", err)
	}

	mgr, err := session.NewManager(session.Config{
		Root:       root,
		MaxPerUser: maxPerUser,
		Debugger: debugger.Config{
			Kind:           debugger.KindLLDB,
			Path:           fakeDebuggerPath(t),
			SpawnTimeout:   10 * time.Second,
			DefaultTimeout: 10 * time.Second,
		},
	}, ds, ss)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(mgr.Shutdown)

	server := New(Deps{
		Sessions: mgr,
		Dumps:    ds,
		Host:     hostinfo.Probe(""),
		Version:  "test",
	})
	return &env{server: server, dumps: ds, mgr: mgr}
}

// connect dials the server over the in-memory transport.
func (e *env) connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := e.server.MCP().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("Server connect failed: %v", err)
	}
	t.Cleanup(func() { serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Client connect failed: %v", err)
	}
	t.Cleanup(func() { clientSession.Close() })
	return clientSession
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool %s failed: %v", name, err)
	}
	return res
}

// resultText concatenates the text content of a tool result.
func resultText(res *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	if res.IsError {
		t.Fatalf("Tool returned error: %s", resultText(res))
	}
	if err := json.Unmarshal([]byte(resultText(res)), v); err != nil {
		t.Fatalf("Failed to decode tool result %q: %v", resultText(res), err)
	}
}

func TestToolCatalogue(t *testing.T) {
	e := newEnv(t, 3)
	cs := e.connect(t)

	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	found := make(map[string]bool, len(res.Tools))
	for _, tool := range res.Tools {
		found[tool.Name] = true
	}
	for _, name := range []string{
		"create_session", "list_sessions", "close_session", "restore_session",
		"get_debugger_info", "open_dump", "close_dump", "execute_command",
		"inspect_object", "dump_module", "list_modules", "name2ee", "clr_stack",
		"configure_additional_symbols", "reload_symbols", "clear_symbol_cache",
		"analyze_crash", "analyze_dotnet", "analyze_perf", "analyze_cpu",
		"analyze_allocations", "analyze_gc", "analyze_contention", "analyze_security",
		"compare_dumps", "compare_heaps", "compare_threads", "compare_modules",
		"add_watch", "list_watches", "eval_watch", "eval_watches",
		"remove_watch", "clear_watches",
		"generate_report", "generate_summary_report",
	} {
		if !found[name] {
			t.Errorf("Tool %q missing from catalogue", name)
		}
	}
}

func TestCreateSessionAndQuota(t *testing.T) {
	e := newEnv(t, 2)
	cs := e.connect(t)

	var first session.Summary
	decodeResult(t, callTool(t, cs, "create_session", map[string]any{"userId": "bob"}), &first)
	if first.ID == "" || first.UserID != "bob" {
		t.Fatalf("Unexpected session summary: %+v", first)
	}
	callTool(t, cs, "create_session", map[string]any{"userId": "bob"})

	res := callTool(t, cs, "create_session", map[string]any{"userId": "bob"})
	if !res.IsError {
		t.Fatal("Third create should exceed the quota")
	}
	var env errorEnvelope
	if err := json.Unmarshal([]byte(resultText(res)), &env); err != nil {
		t.Fatalf("Error envelope not JSON: %q", resultText(res))
	}
	if env.Code != "Conflict" {
		t.Errorf("Code = %q, want Conflict", env.Code)
	}
	if !strings.Contains(env.Message, "maximum number of sessions") {
		t.Errorf("Message = %q, want it to name the session maximum", env.Message)
	}
}

func TestOpenDumpWrongUser(t *testing.T) {
	e := newEnv(t, 3)
	cs := e.connect(t)

	info, err := e.dumps.Put(context.Background(), "alice", "crash.dmp",
		bytes.NewReader(testMinidump()), "")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	var sess session.Summary
	decodeResult(t, callTool(t, cs, "create_session", map[string]any{"userId": "alice"}), &sess)

	res := callTool(t, cs, "open_dump", map[string]any{
		"sessionId": sess.ID, "userId": "mallory", "dumpId": info.ID,
	})
	if !res.IsError {
		t.Fatal("Open with the wrong user should fail")
	}
	var env errorEnvelope
	json.Unmarshal([]byte(resultText(res)), &env)
	if env.Code != "Auth" {
		t.Errorf("Code = %q, want Auth", env.Code)
	}

	// Session state is unchanged
	var restored session.Summary
	decodeResult(t, callTool(t, cs, "restore_session",
		map[string]any{"sessionId": sess.ID, "userId": "alice"}), &restored)
	if restored.CurrentDumpID != "" {
		t.Errorf("CurrentDumpID = %q, want empty", restored.CurrentDumpID)
	}
}

func TestExecuteCommandEndToEnd(t *testing.T) {
	e := newEnv(t, 3)
	cs := e.connect(t)

	info, err := e.dumps.Put(context.Background(), "alice", "crash.dmp",
		bytes.NewReader(testMinidump()), "")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	var sess session.Summary
	decodeResult(t, callTool(t, cs, "create_session", map[string]any{"userId": "alice"}), &sess)

	var opened session.OpenResult
	decodeResult(t, callTool(t, cs, "open_dump", map[string]any{
		"sessionId": sess.ID, "userId": "alice", "dumpId": info.ID,
	}), &opened)
	if opened.Format != dump.FormatMinidump {
		t.Errorf("Format = %q, want minidump", opened.Format)
	}

	var out ExecuteCommandOutput
	decodeResult(t, callTool(t, cs, "execute_command", map[string]any{
		"sessionId": sess.ID, "userId": "alice", "command": "thread list",
	}), &out)
	if !strings.Contains(out.Output, "echo:thread list") {
		t.Errorf("Output = %q, want the fake debugger echo", out.Output)
	}
}

func TestExecuteWithoutDumpIsValidation(t *testing.T) {
	e := newEnv(t, 3)
	cs := e.connect(t)

	var sess session.Summary
	decodeResult(t, callTool(t, cs, "create_session", map[string]any{"userId": "alice"}), &sess)

	res := callTool(t, cs, "execute_command", map[string]any{
		"sessionId": sess.ID, "userId": "alice", "command": "bt",
	})
	if !res.IsError {
		t.Fatal("Execute without an open dump should fail")
	}
	var env errorEnvelope
	json.Unmarshal([]byte(resultText(res)), &env)
	if env.Code != "Validation" {
		t.Errorf("Code = %q, want Validation", env.Code)
	}
}

func TestWatchToolsRoundTrip(t *testing.T) {
	e := newEnv(t, 3)
	cs := e.connect(t)

	var sess session.Summary
	decodeResult(t, callTool(t, cs, "create_session", map[string]any{"userId": "alice"}), &sess)

	var w session.Watch
	decodeResult(t, callTool(t, cs, "add_watch", map[string]any{
		"sessionId": sess.ID, "userId": "alice", "expression": "0x7f00beef",
	}), &w)
	if w.Kind != session.WatchMemory {
		t.Errorf("Kind = %q, want memory inferred from hex", w.Kind)
	}

	var listing WatchListOutput
	decodeResult(t, callTool(t, cs, "list_watches",
		map[string]any{"sessionId": sess.ID, "userId": "alice"}), &listing)
	if listing.Count != 1 {
		t.Fatalf("Count = %d, want 1", listing.Count)
	}

	res := callTool(t, cs, "remove_watch", map[string]any{
		"sessionId": sess.ID, "userId": "alice", "watchId": 99,
	})
	if !res.IsError {
		t.Fatal("Removing an unknown watch should fail")
	}
	var env errorEnvelope
	json.Unmarshal([]byte(resultText(res)), &env)
	if env.Code != "NotFound" {
		t.Errorf("Code = %q, want NotFound", env.Code)
	}
}

func TestErrorCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ident.ErrInvalid, "Validation"},
		{session.ErrNoDump, "Validation"},
		{dump.ErrInvalidFormat, "FormatInvalid"},
		{dump.ErrTooLarge, "TooLarge"},
		{session.ErrNotFound, "NotFound"},
		{session.ErrUnauthorized, "Auth"},
		{dump.ErrInUse, "Conflict"},
		{session.ErrDumpOpen, "Conflict"},
		{session.ErrQuotaExceeded, "Conflict"},
		{debugger.ErrTimeout, "DebuggerTimeout"},
		{debugger.ErrDebuggerDied, "DebuggerDied"},
		{errors.New("boom"), "Internal"},
	}
	for _, tt := range tests {
		if got := errorCode(tt.err); got != tt.want {
			t.Errorf("errorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestParseAddr(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0x1a2b", 0x1a2b, false},
		{"1A2B", 0x1a2b, false},
		{" 0xff ", 0xff, false},
		{"", 0, true},
		{"not-hex", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAddr(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAddr(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAddr(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestGatherOrderedPreservesRoles(t *testing.T) {
	in := CompareInput{
		BaselineSessionID: "zzz", BaselineUserID: "alice",
		TargetSessionID: "aaa", TargetUserID: "alice",
	}
	var order []string
	base, tgt, err := gatherOrdered(context.Background(), in,
		func(_ context.Context, ref SessionRef) (string, error) {
			order = append(order, ref.SessionID)
			return ref.SessionID, nil
		})
	if err != nil {
		t.Fatal(err)
	}
	// Visited in id order, but roles preserved in the result.
	if order[0] != "aaa" || order[1] != "zzz" {
		t.Errorf("Visit order = %v, want [aaa zzz]", order)
	}
	if base != "zzz" || tgt != "aaa" {
		t.Errorf("base=%q tgt=%q, want roles preserved", base, tgt)
	}
}
