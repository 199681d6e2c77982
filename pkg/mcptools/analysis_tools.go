package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coredock/coredock/internal/logger"
	"github.com/coredock/coredock/pkg/analysis"
	"github.com/coredock/coredock/pkg/inspect"
)

// CompareInput names the two sessions a comparison reads from. Both
// ownership checks apply independently.
type CompareInput struct {
	BaselineSessionID string `json:"baselineSessionId" jsonschema:"The session holding the baseline dump"`
	BaselineUserID    string `json:"baselineUserId" jsonschema:"Owner of the baseline session"`
	TargetSessionID   string `json:"targetSessionId" jsonschema:"The session holding the target dump"`
	TargetUserID      string `json:"targetUserId" jsonschema:"Owner of the target session"`
}

func (in CompareInput) baseline() SessionRef {
	return SessionRef{SessionID: in.BaselineSessionID, UserID: in.BaselineUserID}
}

func (in CompareInput) target() SessionRef {
	return SessionRef{SessionID: in.TargetSessionID, UserID: in.TargetUserID}
}

// analyze registers one recipe-backed analysis tool.
func (s *Server) analyze(name, description string, run func(ctx context.Context, t analysis.Target) (*analysis.Result, error)) {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        name,
		Description: description,
	}, tool(s, name, func(ctx context.Context, in SessionRef) (*analysis.Result, error) {
		t, _, err := s.target(ctx, in)
		if err != nil {
			return nil, err
		}
		logger.InfoCtx(ctx, "analysis started",
			logger.SessionID(in.SessionID), logger.Analysis(name))
		return run(ctx, t)
	}))
}

func (s *Server) registerAnalysisTools() {
	s.analyze("analyze_crash",
		"Run crash triage: faulting thread, exception record, all-thread backtraces, and loaded modules.",
		analysis.Crash)
	s.analyze("analyze_dotnet",
		"Survey managed runtime state: threads, stacks, heap by type, pending exceptions, and async machines. Requires a managed dump.",
		analysis.Dotnet)
	s.analyze("analyze_perf",
		"Collect performance signals from the dump: thread pool state, lock counts, and GC mode.",
		analysis.Perf)
	s.analyze("analyze_cpu",
		"Attribute CPU usage per thread at the moment of the dump.",
		analysis.CPU)
	s.analyze("analyze_allocations",
		"Break down heap allocations by type and generation. Requires a managed dump.",
		analysis.Allocations)
	s.analyze("analyze_gc",
		"Inspect GC heap health: generation sizes, fragmentation, free space, and the finalizer queue. Requires a managed dump.",
		analysis.GC)
	s.analyze("analyze_contention",
		"Build the wait-graph of threads and contended locks, rank hotspots by severity, and detect deadlock cycles. Requires a managed dump.",
		analysis.Contention)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "analyze_security",
		Description: "Scan loaded modules against the advisory dataset, flagging versions below fixes and modules with no verifiable version.",
	}, tool(s, "analyze_security", func(ctx context.Context, in SessionRef) (*analysis.Result, error) {
		t, _, err := s.target(ctx, in)
		if err != nil {
			return nil, err
		}
		return analysis.Security(ctx, t, s.deps.Advisories)
	}))

	s.registerCompareTools()
}

func (s *Server) registerCompareTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "compare_dumps",
		Description: "Diff two open dumps across heap consumption, thread population, and loaded modules.",
	}, tool(s, "compare_dumps", func(ctx context.Context, in CompareInput) (*analysis.DumpComparison, error) {
		cmp := &analysis.DumpComparison{}

		heaps, err := s.compareHeaps(ctx, in)
		if err != nil {
			return nil, err
		}
		cmp.Heap = heaps

		threads, err := s.compareThreads(ctx, in)
		if err != nil {
			return nil, err
		}
		cmp.Threads = threads

		modules, err := s.compareModules(ctx, in)
		if err != nil {
			return nil, err
		}
		cmp.Modules = modules
		return cmp, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "compare_heaps",
		Description: "Diff managed heap consumption by type between two open dumps: changed footprints, new types, vanished types.",
	}, tool(s, "compare_heaps", func(ctx context.Context, in CompareInput) (*analysis.HeapDiff, error) {
		return s.compareHeaps(ctx, in)
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "compare_threads",
		Description: "Diff thread populations between two open dumps by OS thread id.",
	}, tool(s, "compare_threads", func(ctx context.Context, in CompareInput) (*analysis.ThreadDiff, error) {
		return s.compareThreads(ctx, in)
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "compare_modules",
		Description: "Diff loaded module sets between two open dumps, reporting path changes that surface framework version bumps.",
	}, tool(s, "compare_modules", func(ctx context.Context, in CompareInput) (*analysis.ModuleDiff, error) {
		return s.compareModules(ctx, in)
	}))
}

// gatherOrdered collects from both sessions, visiting them in session-id
// order so two concurrent comparisons over the same pair never interleave
// their per-session serialisation in opposite orders.
func gatherOrdered[T any](ctx context.Context, in CompareInput, collect func(ctx context.Context, ref SessionRef) (T, error)) (baseline, target T, err error) {
	first, second := in.baseline(), in.target()
	swapped := second.SessionID < first.SessionID
	if swapped {
		first, second = second, first
	}

	a, err := collect(ctx, first)
	if err != nil {
		return baseline, target, err
	}
	b, err := collect(ctx, second)
	if err != nil {
		return baseline, target, err
	}

	if swapped {
		return b, a, nil
	}
	return a, b, nil
}

func (s *Server) compareHeaps(ctx context.Context, in CompareInput) (*analysis.HeapDiff, error) {
	base, tgt, err := gatherOrdered(ctx, in, func(ctx context.Context, ref SessionRef) ([]analysis.HeapTypeStat, error) {
		out, err := s.deps.Sessions.Execute(ctx, ref.SessionID, ref.UserID, "dumpheap -stat", 0)
		if err != nil {
			return nil, err
		}
		return analysis.ParseHeapStat(out), nil
	})
	if err != nil {
		return nil, err
	}
	return analysis.CompareHeaps(base, tgt), nil
}

func (s *Server) compareThreads(ctx context.Context, in CompareInput) (*analysis.ThreadDiff, error) {
	base, tgt, err := gatherOrdered(ctx, in, func(ctx context.Context, ref SessionRef) ([]inspect.ThreadStack, error) {
		insp, err := s.deps.Sessions.Inspector(ref.SessionID, ref.UserID)
		if err != nil {
			return nil, err
		}
		return insp.WalkManagedStacks(ctx, inspect.StackOptions{})
	})
	if err != nil {
		return nil, err
	}
	return analysis.CompareThreads(base, tgt), nil
}

func (s *Server) compareModules(ctx context.Context, in CompareInput) (*analysis.ModuleDiff, error) {
	base, tgt, err := gatherOrdered(ctx, in, func(ctx context.Context, ref SessionRef) ([]inspect.Module, error) {
		insp, err := s.deps.Sessions.Inspector(ref.SessionID, ref.UserID)
		if err != nil {
			return nil, err
		}
		return insp.ListModules(ctx)
	})
	if err != nil {
		return nil, err
	}
	return analysis.CompareModules(base, tgt), nil
}
