package analysis

import "sort"

// ResourceKind classifies a contended synchronisation primitive.
type ResourceKind string

const (
	ResourceMonitor    ResourceKind = "monitor"
	ResourceSemaphore  ResourceKind = "semaphore"
	ResourceRWLock     ResourceKind = "rwlock"
	ResourceResetEvent ResourceKind = "resetevent"
	ResourceWaitHandle ResourceKind = "waithandle"
)

// asyncKind reports whether a primitive counts as contended with waiters
// alone. Monitors need a live owner too; the async primitives park waiters
// without any thread owning them.
func asyncKind(k ResourceKind) bool {
	return k != ResourceMonitor
}

// Severity buckets a resource by how many threads pile up on it.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityFor maps waiter count to a bucket.
func severityFor(waiters int) Severity {
	switch {
	case waiters >= 10:
		return SeverityCritical
	case waiters >= 4:
		return SeverityHigh
	case waiters >= 2:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Hotspot is one contended resource in rank order.
type Hotspot struct {
	Address     string       `json:"address"`
	Kind        ResourceKind `json:"kind"`
	TypeName    string       `json:"typeName,omitempty"`
	Owner       string       `json:"owner,omitempty"`
	Waiters     []string     `json:"waiters"`
	WaiterCount int          `json:"waiterCount"`
	Severity    Severity     `json:"severity"`
}

// Deadlock is one strongly connected wait cycle. Thread ids are sorted.
type Deadlock struct {
	Threads   []string `json:"threads"`
	Resources []string `json:"resources"`
}

// ContentionReport is the structured output of the contention analysis.
type ContentionReport struct {
	Hotspots      []Hotspot  `json:"hotspots"`
	Deadlocks     []Deadlock `json:"deadlocks"`
	ThreadCount   int        `json:"threadCount"`
	ResourceCount int        `json:"resourceCount"`
}

// WaitGraph accumulates ownership and wait facts about synchronisation
// resources, then filters down to the contended subgraph. Thread ids and
// resource addresses are opaque strings; callers normalise them.
type WaitGraph struct {
	resources map[string]*resourceNode
}

type resourceNode struct {
	addr     string
	kind     ResourceKind
	typeName string
	owner    string
	waiters  map[string]struct{}
	// extraWaiters counts waiters known only by number, when the debugger
	// reports a held count without naming the threads
	extraWaiters int
}

// NewWaitGraph returns an empty graph.
func NewWaitGraph() *WaitGraph {
	return &WaitGraph{resources: make(map[string]*resourceNode)}
}

func (g *WaitGraph) resource(addr string) *resourceNode {
	r, ok := g.resources[addr]
	if !ok {
		r = &resourceNode{addr: addr, kind: ResourceMonitor, waiters: make(map[string]struct{})}
		g.resources[addr] = r
	}
	return r
}

// SetResource records the primitive kind and managed type at an address.
func (g *WaitGraph) SetResource(addr string, kind ResourceKind, typeName string) {
	r := g.resource(addr)
	r.kind = kind
	r.typeName = typeName
}

// AddOwner records that the thread holds the resource.
func (g *WaitGraph) AddOwner(addr, threadID string) {
	g.resource(addr).owner = threadID
}

// AddWaiter records that the thread is blocked on the resource.
func (g *WaitGraph) AddWaiter(addr, threadID string) {
	g.resource(addr).waiters[threadID] = struct{}{}
}

// AddAnonymousWaiters records waiters known only by count.
func (g *WaitGraph) AddAnonymousWaiters(addr string, n int) {
	if n > 0 {
		g.resource(addr).extraWaiters += n
	}
}

// contended returns the resources that belong in the graph: monitors with
// an owner and at least one waiter, async primitives with any waiter.
func (g *WaitGraph) contended() []*resourceNode {
	var out []*resourceNode
	for _, r := range g.resources {
		waiters := len(r.waiters) + r.extraWaiters
		if waiters == 0 {
			continue
		}
		if !asyncKind(r.kind) && r.owner == "" {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].addr < out[j].addr })
	return out
}

// Report filters to the contended subgraph, ranks hotspots, and runs
// deadlock detection.
//
// Hotspots sort by severity rank, then waiter count descending, ties
// broken by resource address. Participating threads are exactly the
// owners and waiters of included resources.
func (g *WaitGraph) Report() *ContentionReport {
	contended := g.contended()

	threads := make(map[string]struct{})
	hotspots := make([]Hotspot, 0, len(contended))
	for _, r := range contended {
		named := make([]string, 0, len(r.waiters))
		for t := range r.waiters {
			named = append(named, t)
			threads[t] = struct{}{}
		}
		sort.Strings(named)
		if r.owner != "" {
			threads[r.owner] = struct{}{}
		}

		count := len(named) + r.extraWaiters
		hotspots = append(hotspots, Hotspot{
			Address:     r.addr,
			Kind:        r.kind,
			TypeName:    r.typeName,
			Owner:       r.owner,
			Waiters:     named,
			WaiterCount: count,
			Severity:    severityFor(count),
		})
	}

	sort.SliceStable(hotspots, func(i, j int) bool {
		ri, rj := severityRank(hotspots[i].Severity), severityRank(hotspots[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if hotspots[i].WaiterCount != hotspots[j].WaiterCount {
			return hotspots[i].WaiterCount > hotspots[j].WaiterCount
		}
		return hotspots[i].Address < hotspots[j].Address
	})

	return &ContentionReport{
		Hotspots:      hotspots,
		Deadlocks:     g.deadlocks(contended),
		ThreadCount:   len(threads),
		ResourceCount: len(contended),
	}
}

// ============================================================================
// Deadlock detection
// ============================================================================

// deadlocks runs Tarjan's strongly-connected-components over the directed
// graph (thread -> resource for waits, resource -> thread for ownership)
// and reports every component holding two or more threads, each exactly
// once with its thread ids sorted.
func (g *WaitGraph) deadlocks(contended []*resourceNode) []Deadlock {
	const (
		threadPrefix   = "t:"
		resourcePrefix = "r:"
	)

	adj := make(map[string][]string)
	for _, r := range contended {
		rn := resourcePrefix + r.addr
		for t := range r.waiters {
			tn := threadPrefix + t
			adj[tn] = append(adj[tn], rn)
		}
		if r.owner != "" {
			adj[rn] = append(adj[rn], threadPrefix+r.owner)
		}
	}

	nodes := make([]string, 0, len(adj))
	seen := make(map[string]struct{})
	addNode := func(n string) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			nodes = append(nodes, n)
		}
	}
	for n, targets := range adj {
		addNode(n)
		for _, m := range targets {
			addNode(m)
		}
	}
	sort.Strings(nodes) // deterministic traversal order

	t := &tarjan{
		adj:     adj,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, n := range nodes {
		if _, visited := t.index[n]; !visited {
			t.strongConnect(n)
		}
	}

	var out []Deadlock
	for _, scc := range t.components {
		var threads, resources []string
		for _, n := range scc {
			switch {
			case len(n) > 2 && n[:2] == threadPrefix:
				threads = append(threads, n[2:])
			case len(n) > 2 && n[:2] == resourcePrefix:
				resources = append(resources, n[2:])
			}
		}
		if len(threads) < 2 {
			continue
		}
		sort.Strings(threads)
		sort.Strings(resources)
		out = append(out, Deadlock{Threads: threads, Resources: resources})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Threads[0] < out[j].Threads[0] })
	return out
}

// tarjan is the classic recursive formulation of Tarjan's SCC algorithm.
// Recursion depth is bounded by the number of contended resources plus
// participating threads, which is small.
type tarjan struct {
	adj        map[string][]string
	index      map[string]int
	lowlink    map[string]int
	onStack    map[string]bool
	stack      []string
	counter    int
	components [][]string
}

func (t *tarjan) strongConnect(v string) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.adj[v] {
		if _, visited := t.index[w]; !visited {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] && t.index[w] < t.lowlink[v] {
			t.lowlink[v] = t.index[w]
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []string
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.components = append(t.components, scc)
	}
}
