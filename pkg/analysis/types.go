// Package analysis turns raw debugger sessions into structured findings:
// crash triage, managed-runtime health, contention wait-graphs with
// deadlock detection, security scans, dump-to-dump comparisons, and the
// report generator that packages them.
//
// Every analysis is a deterministic recipe over debugger commands and the
// inspect helpers. Section failures are recorded in the result rather than
// aborting the recipe; only a dead debugger stops an analysis.
package analysis

import (
	"context"
	"time"

	"github.com/coredock/coredock/pkg/debugger"
	"github.com/coredock/coredock/pkg/inspect"
)

// Kind tags an analysis result.
type Kind string

const (
	KindCrash       Kind = "crash"
	KindDotnet      Kind = "dotnet"
	KindPerf        Kind = "perf"
	KindCPU         Kind = "cpu"
	KindAllocations Kind = "allocations"
	KindGC          Kind = "gc"
	KindContention  Kind = "contention"
	KindSecurity    Kind = "security"
)

// Executor runs one debugger command. A zero timeout means the executor's
// default. Satisfied by debugger.Driver and by session-bound adapters.
type Executor interface {
	Execute(ctx context.Context, cmd string, timeout time.Duration) (string, error)
}

// Target is the session-shaped surface an analysis runs against. Insp is
// nil when structured inspection is unavailable for the dump.
type Target struct {
	Exec     Executor
	Insp     inspect.Inspector
	Debugger debugger.Kind
	Managed  bool
}

// Section is one step of an analysis recipe: the command issued, its raw
// output, and the failure if the step did not complete.
type Section struct {
	Title   string `json:"title"`
	Command string `json:"command,omitempty"`
	Text    string `json:"text,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Result is a completed analysis. Structured payloads are populated only
// by the analyses that produce them.
type Result struct {
	Kind        Kind              `json:"kind"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Sections    []Section         `json:"sections"`
	Contention  *ContentionReport `json:"contention,omitempty"`
	Security    *SecurityReport   `json:"security,omitempty"`
}

func newResult(kind Kind) *Result {
	return &Result{Kind: kind, GeneratedAt: time.Now().UTC()}
}
