package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/coredock/coredock/pkg/inspect"
)

// Contention builds the wait-graph from sync blocks and blocked managed
// stacks, ranks hotspots, and runs deadlock detection over the result.
func Contention(ctx context.Context, t Target) (*Result, error) {
	if !t.Managed {
		return nil, ErrManagedRequired
	}
	if t.Exec == nil {
		return nil, ErrNoExecutor
	}

	res := newResult(KindContention)
	g := NewWaitGraph()

	syncCmd := "syncblk"
	sec := Section{Title: "Sync blocks", Command: syncCmd}
	syncOut, err := t.Exec.Execute(ctx, syncCmd, 0)
	if err != nil {
		sec.Err = err.Error()
		res.Sections = append(res.Sections, sec)
		return res, err
	}
	sec.Text = syncOut
	res.Sections = append(res.Sections, sec)

	blocks := parseSyncBlocks(syncOut)
	for _, b := range blocks {
		g.SetResource(b.Object, ResourceMonitor, b.TypeName)
		if b.Owner != "" {
			g.AddOwner(b.Object, b.Owner)
		}
	}

	// Blocked stacks attribute named waiters to resources; sync blocks only
	// carry a held count.
	named := make(map[string]int)
	if t.Insp != nil {
		stacks, serr := t.Insp.WalkManagedStacks(ctx, inspect.StackOptions{
			IncludeArgs:   true,
			IncludeLocals: true,
		})
		if serr == nil {
			attributeWaiters(g, stacks, blocks, named)
		} else {
			res.Sections = append(res.Sections, Section{
				Title: "Managed stacks",
				Err:   serr.Error(),
			})
		}
	}

	// Waiters the stacks did not name still count toward severity
	for _, b := range blocks {
		if extra := b.Waiters - named[b.Object]; extra > 0 {
			g.AddAnonymousWaiters(b.Object, extra)
		}
	}

	report := g.Report()
	res.Contention = report
	res.Sections = append(res.Sections, Section{
		Title: "Contention summary",
		Text:  contentionSummary(report),
	})
	return res, nil
}

func contentionSummary(r *ContentionReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d contended resources, %d participating threads\n",
		r.ResourceCount, r.ThreadCount)
	for _, h := range r.Hotspots {
		fmt.Fprintf(&b, "[%s] %s %s owner=%s waiters=%d\n",
			h.Severity, h.Kind, h.Address, orNone(h.Owner), h.WaiterCount)
	}
	if len(r.Deadlocks) == 0 {
		b.WriteString("no deadlocks detected\n")
	}
	for _, d := range r.Deadlocks {
		fmt.Fprintf(&b, "DEADLOCK: threads %s over resources %s\n",
			strings.Join(d.Threads, ", "), strings.Join(d.Resources, ", "))
	}
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// ============================================================================
// Sync block parsing
// ============================================================================

// syncBlock is one row of SOS syncblk output. Waiters is derived from the
// MonitorHeld column: the owner holds one reference, each waiter two.
type syncBlock struct {
	Object   string
	TypeName string
	Owner    string
	Waiters  int
}

// Row layout: Index, SyncBlock, MonitorHeld, Recursion, owning thread
// address, OS id (hex), debugger thread id, object address, type name.
var syncBlockRowRE = regexp.MustCompile(
	`^\s*\d+\s+[0-9a-fA-F]{8,}\s+(\d+)\s+\d+\s+[0-9a-fA-F]{8,}\s+([0-9a-fA-F]+)\s+\d+\s+([0-9a-fA-F]{8,})\s+(\S.*)$`)

func parseSyncBlocks(out string) []syncBlock {
	var blocks []syncBlock
	for _, line := range strings.Split(out, "\n") {
		m := syncBlockRowRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		held, _ := strconv.Atoi(m[1])
		if held == 0 {
			continue // unowned, uncontended
		}
		blocks = append(blocks, syncBlock{
			Object:   normalizeAddr(m[3]),
			TypeName: strings.TrimSpace(m[4]),
			Owner:    normalizeAddr(m[2]),
			Waiters:  (held - 1) / 2,
		})
	}
	return blocks
}

// ============================================================================
// Waiter attribution from stacks
// ============================================================================

// blockingKind classifies a frame as a wait on a primitive kind.
func blockingKind(function string) (ResourceKind, bool) {
	switch {
	case strings.Contains(function, "Monitor.Enter"),
		strings.Contains(function, "Monitor.ReliableEnter"),
		strings.Contains(function, "Monitor.Wait"),
		strings.Contains(function, "Monitor.TryEnter"):
		return ResourceMonitor, true
	case strings.Contains(function, "SemaphoreSlim.Wait"),
		strings.Contains(function, "Semaphore.Wait"):
		return ResourceSemaphore, true
	case strings.Contains(function, "ReaderWriterLockSlim.Enter"),
		strings.Contains(function, "ReaderWriterLockSlim.TryEnter"):
		return ResourceRWLock, true
	case strings.Contains(function, "ManualResetEventSlim.Wait"),
		strings.Contains(function, "ResetEvent.Wait"):
		return ResourceResetEvent, true
	case strings.Contains(function, "WaitHandle.WaitOne"),
		strings.Contains(function, "WaitHandle.WaitAny"),
		strings.Contains(function, "WaitHandle.WaitAll"):
		return ResourceWaitHandle, true
	}
	return "", false
}

// attributeWaiters scans blocked frames for argument or local values that
// name a known resource address, and records those threads as waiters.
// A wait on an address that syncblk never mentioned still enters the graph
// when the primitive parks waiters without an owner.
func attributeWaiters(g *WaitGraph, stacks []inspect.ThreadStack, blocks []syncBlock, named map[string]int) {
	known := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		known[b.Object] = struct{}{}
	}

	for _, ts := range stacks {
		threadID := fmt.Sprintf("%x", ts.OSThreadID)
		for _, fr := range ts.Frames {
			kind, blocking := blockingKind(fr.Function)
			if !blocking {
				continue
			}
			addr := findResourceAddr(ts, known, kind)
			if addr == "" {
				continue
			}
			if _, ok := known[addr]; !ok {
				g.SetResource(addr, kind, "")
			}
			g.AddWaiter(addr, threadID)
			named[addr]++
			break // one wait per thread
		}
	}
}

var hexTokenRE = regexp.MustCompile(`\b(?:0x)?([0-9a-fA-F]{8,16})\b`)

// findResourceAddr looks through the thread's args and locals for a value
// matching a known resource, preferring exact matches over fresh async
// addresses.
func findResourceAddr(ts inspect.ThreadStack, known map[string]struct{}, kind ResourceKind) string {
	candidates := make([]string, 0, 4)
	collect := func(vars []inspect.Variable) {
		for _, v := range vars {
			for _, m := range hexTokenRE.FindAllStringSubmatch(v.Value, -1) {
				candidates = append(candidates, normalizeAddr(m[1]))
			}
		}
	}
	collect(ts.Args)
	collect(ts.Locals)

	for _, c := range candidates {
		if _, ok := known[c]; ok {
			return c
		}
	}
	// Async primitives are contended with waiters alone, so an unknown
	// address is still usable
	if asyncKind(kind) && len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

// normalizeAddr canonicalises a hex address for map keys: lowercase, no
// 0x prefix, no leading zeros.
func normalizeAddr(s string) string {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "0"
	}
	return s
}
