package analysis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/coredock/coredock/pkg/debugger"
	"github.com/coredock/coredock/pkg/inspect"
)

const syncblkOutput = `Index         SyncBlock MonitorHeld Recursion Owning Thread Info          SyncBlock Owner
   14 0000019cd8a1c8b8            3         1 0000019cd6f0e900 4a2c  10   0000019cd8befea0 System.Object
   15 0000019cd8a1c908            5         1 0000019cd6f10280 3e88  12   0000019cd8befeb8 Coredock.Worker+Gate
   16 0000019cd8a1c958            0         0                0    0   0   0000019cd8befec8 System.Object
-----------------------------
Total           16
CCW             0
RCW             0
`

func TestParseSyncBlocks(t *testing.T) {
	blocks := parseSyncBlocks(syncblkOutput)
	if len(blocks) != 2 {
		t.Fatalf("Expected 2 held sync blocks, got %d", len(blocks))
	}

	first := blocks[0]
	if first.Object != "19cd8befea0" {
		t.Errorf("Unexpected object address %q", first.Object)
	}
	if first.Owner != "4a2c" {
		t.Errorf("Unexpected owner %q", first.Owner)
	}
	if first.Waiters != 1 {
		t.Errorf("MonitorHeld 3 means 1 waiter, got %d", first.Waiters)
	}

	second := blocks[1]
	if second.Waiters != 2 {
		t.Errorf("MonitorHeld 5 means 2 waiters, got %d", second.Waiters)
	}
	if second.TypeName != "Coredock.Worker+Gate" {
		t.Errorf("Unexpected type name %q", second.TypeName)
	}
}

func TestNormalizeAddr(t *testing.T) {
	tests := []struct{ in, want string }{
		{"0x0000019CD8BEFEA0", "19cd8befea0"},
		{"0000019cd8befea0", "19cd8befea0"},
		{"0x0", "0"},
		{"00000000", "0"},
	}
	for _, tt := range tests {
		if got := normalizeAddr(tt.in); got != tt.want {
			t.Errorf("normalizeAddr(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// fakeExecutor answers commands by longest matching prefix.
type fakeExecutor struct {
	responses map[string]string
	commands  []string
	err       error
}

func (f *fakeExecutor) Execute(_ context.Context, cmd string, _ time.Duration) (string, error) {
	f.commands = append(f.commands, cmd)
	if f.err != nil {
		return "", f.err
	}
	best := ""
	for prefix := range f.responses {
		if strings.HasPrefix(cmd, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return "", nil
	}
	return f.responses[best], nil
}

// fakeInspector serves canned stacks and modules.
type fakeInspector struct {
	modules []inspect.Module
	stacks  []inspect.ThreadStack
}

func (f *fakeInspector) ListModules(context.Context) ([]inspect.Module, error) {
	return f.modules, nil
}

func (f *fakeInspector) DumpModule(context.Context, uint64) (*inspect.ModuleDetail, error) {
	return nil, inspect.ErrNotFound
}

func (f *fakeInspector) InspectObject(context.Context, uint64, inspect.InspectOptions) (*inspect.ObjectInfo, error) {
	return nil, inspect.ErrNotFound
}

func (f *fakeInspector) FindType(context.Context, string, string) ([]inspect.TypeMatch, error) {
	return nil, nil
}

func (f *fakeInspector) WalkManagedStacks(context.Context, inspect.StackOptions) ([]inspect.ThreadStack, error) {
	return f.stacks, nil
}

func TestContention_EndToEnd(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]string{
		"syncblk": syncblkOutput,
	}}
	insp := &fakeInspector{stacks: []inspect.ThreadStack{
		{
			OSThreadID: 0x3e88, // owner of the second block, waiting on the first
			Frames: []inspect.Frame{
				{Function: "System.Threading.Monitor.Enter(System.Object)"},
				{Function: "Coredock.Worker.Run()"},
			},
			Args: []inspect.Variable{{Name: "obj", Value: "0x0000019cd8befea0"}},
		},
		{
			OSThreadID: 0x4a2c, // owner of the first block, waiting on the second
			Frames: []inspect.Frame{
				{Function: "System.Threading.Monitor.Enter(System.Object)"},
			},
			Args: []inspect.Variable{{Name: "obj", Value: "0x0000019cd8befeb8"}},
		},
	}}

	res, err := Contention(context.Background(), Target{
		Exec: exec, Insp: insp, Debugger: debugger.KindLLDB, Managed: true,
	})
	if err != nil {
		t.Fatalf("Contention failed: %v", err)
	}
	report := res.Contention
	if report == nil {
		t.Fatal("Expected contention report")
	}

	if report.ResourceCount != 2 {
		t.Fatalf("Expected 2 contended resources, got %d", report.ResourceCount)
	}
	if len(report.Deadlocks) != 1 {
		t.Fatalf("Expected the cross-wait to deadlock, got %v", report.Deadlocks)
	}
	dl := report.Deadlocks[0]
	if len(dl.Threads) != 2 || dl.Threads[0] != "3e88" || dl.Threads[1] != "4a2c" {
		t.Errorf("Unexpected deadlock threads %v", dl.Threads)
	}

	// Anonymous waiters from MonitorHeld top up the named ones
	for _, h := range report.Hotspots {
		if h.Address == "19cd8befeb8" && h.WaiterCount != 2 {
			t.Errorf("Expected 2 waiters on the gate, got %d", h.WaiterCount)
		}
	}

	// The summary section is synthesized last
	last := res.Sections[len(res.Sections)-1]
	if last.Title != "Contention summary" || !strings.Contains(last.Text, "DEADLOCK") {
		t.Errorf("Unexpected summary section: %+v", last)
	}
}

func TestContention_RequiresManaged(t *testing.T) {
	_, err := Contention(context.Background(), Target{Exec: &fakeExecutor{}})
	if err != ErrManagedRequired {
		t.Errorf("Expected ErrManagedRequired, got %v", err)
	}
}
