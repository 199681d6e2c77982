package analysis

import (
	"context"
	"errors"

	"github.com/coredock/coredock/internal/logger"
	"github.com/coredock/coredock/pkg/debugger"
)

// step is one entry in a recipe: a title and the command per debugger
// flavour. An empty command skips the step on that debugger.
type step struct {
	title   string
	lldb    string
	cdb     string
	managed bool // step needs the managed runtime helper
}

func (st step) command(kind debugger.Kind) string {
	if kind == debugger.KindCDB {
		return st.cdb
	}
	return st.lldb
}

// runRecipe executes the steps in order, recording per-step failures in
// the section instead of aborting. A dead debugger aborts the recipe; the
// partial result is returned alongside the error.
func runRecipe(ctx context.Context, t Target, kind Kind, steps []step) (*Result, error) {
	if t.Exec == nil {
		return nil, ErrNoExecutor
	}

	res := newResult(kind)
	for _, st := range steps {
		if st.managed && !t.Managed {
			continue
		}
		cmd := st.command(t.Debugger)
		if cmd == "" {
			continue
		}

		sec := Section{Title: st.title, Command: cmd}
		out, err := t.Exec.Execute(ctx, cmd, 0)
		if err != nil {
			sec.Err = err.Error()
			res.Sections = append(res.Sections, sec)
			if errors.Is(err, debugger.ErrDebuggerDied) {
				return res, err
			}
			logger.WarnCtx(ctx, "analysis step failed",
				logger.Analysis(string(kind)), logger.Command(cmd), logger.Err(err))
			continue
		}
		sec.Text = out
		res.Sections = append(res.Sections, sec)
	}
	return res, nil
}

// Crash triages a native or managed crash: exception record, faulting
// thread, stacks, modules, last error, and the full engine analysis where
// the debugger has one.
func Crash(ctx context.Context, t Target) (*Result, error) {
	steps := []step{
		{title: "Exception record", lldb: "thread info", cdb: ".exr -1"},
		{title: "Faulting thread", lldb: "bt", cdb: "kb"},
		{title: "All thread stacks", lldb: "thread backtrace all", cdb: "~* kb"},
		{title: "Loaded modules", lldb: "image list -b", cdb: "lm"},
		{title: "Last error", cdb: "!gle"},
		{title: "Engine analysis", cdb: "!analyze -v"},
		{title: "Managed exception", cdb: "!pe", lldb: "pe", managed: true},
	}
	return runRecipe(ctx, t, KindCrash, steps)
}

// Dotnet surveys the managed runtime: threads, stacks, heap summary,
// exceptions, and async state machines.
func Dotnet(ctx context.Context, t Target) (*Result, error) {
	if !t.Managed {
		return nil, ErrManagedRequired
	}
	steps := []step{
		{title: "Managed threads", lldb: "clrthreads", cdb: "!threads"},
		{title: "Managed stacks", lldb: "clrstack -all", cdb: "!clrstack -all"},
		{title: "Heap summary", lldb: "dumpheap -stat", cdb: "!dumpheap -stat"},
		{title: "Exceptions on the heap", lldb: "dumpheap -type System.Exception -stat", cdb: "!dumpheap -type System.Exception -stat"},
		{title: "Async state machines", lldb: "dumpasync", cdb: "!dumpasync"},
	}
	return runRecipe(ctx, t, KindDotnet, steps)
}

// Perf is the broad performance survey: thread pool, threads, heap, and
// lock contention at a glance.
func Perf(ctx context.Context, t Target) (*Result, error) {
	steps := []step{
		{title: "Thread pool", lldb: "threadpool", cdb: "!threadpool", managed: true},
		{title: "Managed threads", lldb: "clrthreads", cdb: "!threads", managed: true},
		{title: "Thread list", lldb: "thread list", cdb: "~"},
		{title: "Heap summary", lldb: "dumpheap -stat", cdb: "!dumpheap -stat", managed: true},
		{title: "Sync blocks", lldb: "syncblk", cdb: "!syncblk", managed: true},
	}
	return runRecipe(ctx, t, KindPerf, steps)
}

// CPU focuses on where threads are burning or parked.
func CPU(ctx context.Context, t Target) (*Result, error) {
	steps := []step{
		{title: "Thread CPU time", cdb: "!runaway"},
		{title: "Thread list", lldb: "thread list", cdb: "~"},
		{title: "Thread pool", lldb: "threadpool", cdb: "!threadpool", managed: true},
		{title: "All managed stacks", lldb: "clrstack -all", cdb: "!clrstack -all", managed: true},
		{title: "All native stacks", lldb: "thread backtrace all", cdb: "~* k"},
	}
	return runRecipe(ctx, t, KindCPU, steps)
}

// Allocations surveys what is on the heap and which generations hold it.
func Allocations(ctx context.Context, t Target) (*Result, error) {
	if !t.Managed {
		return nil, ErrManagedRequired
	}
	steps := []step{
		{title: "Heap by type", lldb: "dumpheap -stat", cdb: "!dumpheap -stat"},
		{title: "GC heap layout", lldb: "eeheap -gc", cdb: "!eeheap -gc"},
		{title: "Large object heap", lldb: "dumpheap -stat -min 85000", cdb: "!dumpheap -stat -min 85000"},
		{title: "Pinned objects", lldb: "gchandles", cdb: "!gchandles"},
	}
	return runRecipe(ctx, t, KindAllocations, steps)
}

// GC surveys collector state: heap layout, per-heap statistics, free
// space, and the finalizer queue.
func GC(ctx context.Context, t Target) (*Result, error) {
	if !t.Managed {
		return nil, ErrManagedRequired
	}
	steps := []step{
		{title: "GC heap layout", lldb: "eeheap -gc", cdb: "!eeheap -gc"},
		{title: "Heap statistics", lldb: "gcheapstat", cdb: "!gcheapstat"},
		{title: "Free space", lldb: "dumpheap -type Free -stat", cdb: "!dumpheap -type Free -stat"},
		{title: "Finalizer queue", lldb: "finalizequeue", cdb: "!finalizequeue"},
	}
	return runRecipe(ctx, t, KindGC, steps)
}
