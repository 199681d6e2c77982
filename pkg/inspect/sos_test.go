package inspect

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/coredock/coredock/pkg/dump"
)

// fakeExecutor returns canned debugger output keyed by command prefix.
type fakeExecutor struct {
	responses map[string]string
	commands  []string
}

func (f *fakeExecutor) Execute(_ context.Context, cmd string, _ time.Duration) (string, error) {
	f.commands = append(f.commands, cmd)
	for prefix, out := range f.responses {
		if strings.HasPrefix(cmd, prefix) {
			return out, nil
		}
	}
	return "", errors.New("unexpected command: " + cmd)
}

const dumpObjOutput = `Name:        System.String
MethodTable: 00007f3bb3d0f6e0
EEClass:     00007f3bb3cf29e8
Size:        112(0x70) bytes
File:        /usr/share/dotnet/shared/Microsoft.NETCore.App/8.0.3/System.Private.CoreLib.dll
String:      connection pool exhausted
Fields:
              MT    Field   Offset                 Type VT     Attr            Value Name
00007f3bb3d10908  40002a4        8         System.Int32  1 instance               25 _stringLength
00007f3bb3d11fe8  40002a5        c          System.Char  1 instance               63 _firstChar
`

const clrStackOutput = `OS Thread Id: 0x1e4 (1)
        Child SP               IP Call Site
00007FFD8A8C5A10 00007F3B9E4821D3 System.Threading.Monitor.Enter(System.Object)
00007FFD8A8C5A40 00007F3B9E482001 MyApp.OrderService.Process()
        PARAMETERS:
        this = 0x00007f3b8c0012a0
        order = 0x00007f3b8c004550
        LOCALS:
        0x00007FFD8A8C5A48 = 0x00007f3b8c008890
OS Thread Id: 0x1e8 (2)
        Child SP               IP Call Site
00007FFD8A6C3B10 00007F3B9E4821D3 System.Threading.Monitor.Wait(System.Object)
`

const name2eeOutput = `Module:      00007f3bb3ce4000
Assembly:    System.Private.CoreLib.dll
Token:       000000000200051c
MethodTable: 00007f3bb3d0f6e0
EEClass:     00007f3bb3cf29e8
Name:        System.String
`

const clrModulesOutput = `00007F3BB3CE4000 00553000 /usr/share/dotnet/shared/Microsoft.NETCore.App/8.0.3/System.Private.CoreLib.dll
00007F3BB4100000 00024000 /app/MyApp.dll
`

func TestInspectObject_SOS(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]string{"dumpobj": dumpObjOutput}}
	sos := newSOSInspector(exec)

	obj, err := sos.InspectObject(context.Background(), 0x7f3b8c0012a0, InspectOptions{})
	if err != nil {
		t.Fatalf("InspectObject failed: %v", err)
	}

	if obj.TypeName != "System.String" {
		t.Errorf("TypeName = %q", obj.TypeName)
	}
	if obj.MethodTable != 0x7f3bb3d0f6e0 {
		t.Errorf("MethodTable = %#x", obj.MethodTable)
	}
	if obj.Size != 112 {
		t.Errorf("Size = %d", obj.Size)
	}
	if obj.StringValue != "connection pool exhausted" {
		t.Errorf("StringValue = %q", obj.StringValue)
	}
	if len(obj.Fields) != 2 {
		t.Fatalf("Expected 2 fields, got %+v", obj.Fields)
	}
	f := obj.Fields[0]
	if f.Name != "_stringLength" || f.Type != "System.Int32" || f.Value != "25" || f.Offset != 8 {
		t.Errorf("Unexpected field: %+v", f)
	}
	if f.Static {
		t.Error("Instance field marked static")
	}
}

func TestInspectObject_StringLimit(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]string{"dumpobj": dumpObjOutput}}
	sos := newSOSInspector(exec)

	obj, err := sos.InspectObject(context.Background(), 0x1000, InspectOptions{StringLimit: 10})
	if err != nil {
		t.Fatalf("InspectObject failed: %v", err)
	}
	if obj.StringValue != "connection" {
		t.Errorf("StringValue = %q, want truncated to 10", obj.StringValue)
	}
}

func TestInspectObject_InvalidObject(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]string{
		"dumpobj": "00000000deadbeef is not a valid object",
	}}
	sos := newSOSInspector(exec)

	_, err := sos.InspectObject(context.Background(), 0xdeadbeef, InspectOptions{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestInspectObject_MethodTableOverride(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]string{"dumpvc": dumpObjOutput}}
	sos := newSOSInspector(exec)

	if _, err := sos.InspectObject(context.Background(), 0x2000, InspectOptions{MethodTable: 0x7f3bb3d0f6e0}); err != nil {
		t.Fatalf("InspectObject failed: %v", err)
	}
	if len(exec.commands) != 1 || !strings.HasPrefix(exec.commands[0], "dumpvc 7f3bb3d0f6e0 2000") {
		t.Errorf("Expected dumpvc with explicit method table, got %v", exec.commands)
	}
}

func TestFindType(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]string{"name2ee": name2eeOutput}}
	sos := newSOSInspector(exec)

	matches, err := sos.FindType(context.Background(), "System.String", "")
	if err != nil {
		t.Fatalf("FindType failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %+v", matches)
	}
	m := matches[0]
	if m.TypeName != "System.String" || m.Module != "System.Private.CoreLib.dll" || m.MethodTable != 0x7f3bb3d0f6e0 {
		t.Errorf("Unexpected match: %+v", m)
	}

	// Empty module glob defaults to all modules
	if !strings.HasPrefix(exec.commands[0], "name2ee *!System.String") {
		t.Errorf("Unexpected command %q", exec.commands[0])
	}
}

func TestWalkManagedStacks(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]string{"clrstack": clrStackOutput}}
	sos := newSOSInspector(exec)

	stacks, err := sos.WalkManagedStacks(context.Background(), StackOptions{
		IncludeArgs:   true,
		IncludeLocals: true,
	})
	if err != nil {
		t.Fatalf("WalkManagedStacks failed: %v", err)
	}
	if len(stacks) != 2 {
		t.Fatalf("Expected 2 threads, got %d", len(stacks))
	}

	first := stacks[0]
	if first.OSThreadID != 0x1e4 || first.ManagedThreadID != 1 {
		t.Errorf("Unexpected thread identity: %+v", first)
	}
	if len(first.Frames) != 2 || !strings.Contains(first.Frames[0].Function, "Monitor.Enter") {
		t.Errorf("Unexpected frames: %+v", first.Frames)
	}
	if len(first.Args) != 2 || first.Args[0].Name != "this" {
		t.Errorf("Unexpected args: %+v", first.Args)
	}
	if len(first.Locals) != 1 {
		t.Errorf("Unexpected locals: %+v", first.Locals)
	}

	if stacks[1].OSThreadID != 0x1e8 || len(stacks[1].Frames) != 1 {
		t.Errorf("Unexpected second thread: %+v", stacks[1])
	}

	// Args and locals together request the combined flag
	if !strings.Contains(exec.commands[0], "-a") {
		t.Errorf("Expected -a flag, got %q", exec.commands[0])
	}
}

func TestWalkManagedStacks_FilterByThread(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]string{"clrstack": clrStackOutput}}
	sos := newSOSInspector(exec)

	stacks, err := sos.WalkManagedStacks(context.Background(), StackOptions{OSThreadID: 0x1e8})
	if err != nil {
		t.Fatalf("WalkManagedStacks failed: %v", err)
	}
	if len(stacks) != 1 || stacks[0].OSThreadID != 0x1e8 {
		t.Errorf("Expected only thread 0x1e8, got %+v", stacks)
	}
}

func TestListModules_MergesNativeAndManaged(t *testing.T) {
	data := buildMinidumpWithModules([]Module{
		{Base: 0x7FF600000000, Size: 0x20000, Path: `C:\app\myapp.exe`},
	})
	exec := &fakeExecutor{responses: map[string]string{"clrmodules": clrModulesOutput}}

	in, err := New(writeDump(t, data), dump.FormatMinidump, exec)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer in.(*inspector).Close()

	mods, err := in.ListModules(context.Background())
	if err != nil {
		t.Fatalf("ListModules failed: %v", err)
	}
	if len(mods) != 3 {
		t.Fatalf("Expected 3 merged modules, got %+v", mods)
	}

	var managed int
	for _, m := range mods {
		if m.Managed {
			managed++
		}
	}
	if managed != 2 {
		t.Errorf("Expected 2 managed modules, got %d", managed)
	}
}
