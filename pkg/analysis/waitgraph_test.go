package analysis

import (
	"reflect"
	"testing"
)

func TestSeverityBuckets(t *testing.T) {
	tests := []struct {
		waiters int
		want    Severity
	}{
		{0, SeverityLow},
		{1, SeverityLow},
		{2, SeverityMedium},
		{3, SeverityMedium},
		{4, SeverityHigh},
		{9, SeverityHigh},
		{10, SeverityCritical},
		{50, SeverityCritical},
	}
	for _, tt := range tests {
		if got := severityFor(tt.waiters); got != tt.want {
			t.Errorf("severityFor(%d) = %v, want %v", tt.waiters, got, tt.want)
		}
	}
}

func TestWaitGraph_DeadlockCycle(t *testing.T) {
	// t1 waits on rA, rA owned by t2, t2 waits on rB, rB owned by t1
	g := NewWaitGraph()
	g.AddWaiter("rA", "t1")
	g.AddOwner("rA", "t2")
	g.AddWaiter("rB", "t2")
	g.AddOwner("rB", "t1")

	report := g.Report()
	if len(report.Deadlocks) != 1 {
		t.Fatalf("Expected exactly one deadlock, got %d", len(report.Deadlocks))
	}
	dl := report.Deadlocks[0]
	if !reflect.DeepEqual(dl.Threads, []string{"t1", "t2"}) {
		t.Errorf("Expected sorted threads [t1 t2], got %v", dl.Threads)
	}
	if !reflect.DeepEqual(dl.Resources, []string{"rA", "rB"}) {
		t.Errorf("Expected resources [rA rB], got %v", dl.Resources)
	}
}

func TestWaitGraph_NoCycleNoDeadlock(t *testing.T) {
	// A plain convoy: many waiters, one owner, no cycle
	g := NewWaitGraph()
	g.AddOwner("rA", "t1")
	g.AddWaiter("rA", "t2")
	g.AddWaiter("rA", "t3")

	report := g.Report()
	if len(report.Deadlocks) != 0 {
		t.Errorf("Expected no deadlocks, got %v", report.Deadlocks)
	}
	if report.ThreadCount != 3 || report.ResourceCount != 1 {
		t.Errorf("Expected 3 threads / 1 resource, got %d / %d",
			report.ThreadCount, report.ResourceCount)
	}
}

func TestWaitGraph_FiltersUncontended(t *testing.T) {
	g := NewWaitGraph()
	// Owned monitor without waiters never appears
	g.AddOwner("idle", "t1")
	// Monitor with waiters but no owner never appears
	g.AddWaiter("orphan", "t2")
	// Async primitive with a waiter and no owner does appear
	g.SetResource("sem", ResourceSemaphore, "System.Threading.SemaphoreSlim")
	g.AddWaiter("sem", "t3")

	report := g.Report()
	if report.ResourceCount != 1 {
		t.Fatalf("Expected 1 contended resource, got %d", report.ResourceCount)
	}
	if report.Hotspots[0].Address != "sem" {
		t.Errorf("Expected the semaphore, got %q", report.Hotspots[0].Address)
	}
	// Threads on excluded resources do not participate
	if report.ThreadCount != 1 {
		t.Errorf("Expected 1 participating thread, got %d", report.ThreadCount)
	}
}

func TestWaitGraph_HotspotOrdering(t *testing.T) {
	g := NewWaitGraph()

	addMonitor := func(addr, owner string, waiters int) {
		g.AddOwner(addr, owner)
		g.AddAnonymousWaiters(addr, waiters)
	}
	addMonitor("b", "t1", 3)  // medium
	addMonitor("a", "t2", 3)  // medium, same count, earlier address
	addMonitor("c", "t3", 12) // critical
	addMonitor("d", "t4", 5)  // high

	report := g.Report()
	var order []string
	for _, h := range report.Hotspots {
		order = append(order, h.Address)
	}
	want := []string{"c", "d", "a", "b"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("Expected hotspot order %v, got %v", want, order)
	}

	if report.Hotspots[0].Severity != SeverityCritical {
		t.Errorf("Expected critical first, got %v", report.Hotspots[0].Severity)
	}
}

func TestWaitGraph_SharedWaiterTwoResources(t *testing.T) {
	// One thread holding rA while waiting on rB links both into one SCC
	// only if rB's owner closes the loop; here it does not
	g := NewWaitGraph()
	g.AddOwner("rA", "t1")
	g.AddWaiter("rA", "t2")
	g.AddOwner("rB", "t3")
	g.AddWaiter("rB", "t1")

	report := g.Report()
	if len(report.Deadlocks) != 0 {
		t.Errorf("Chain without a cycle must not report a deadlock: %v", report.Deadlocks)
	}
	if report.ThreadCount != 3 {
		t.Errorf("Expected 3 participating threads, got %d", report.ThreadCount)
	}
}

func TestWaitGraph_ThreeThreadCycle(t *testing.T) {
	g := NewWaitGraph()
	g.AddWaiter("rA", "t1")
	g.AddOwner("rA", "t2")
	g.AddWaiter("rB", "t2")
	g.AddOwner("rB", "t3")
	g.AddWaiter("rC", "t3")
	g.AddOwner("rC", "t1")

	report := g.Report()
	if len(report.Deadlocks) != 1 {
		t.Fatalf("Expected one deadlock, got %d", len(report.Deadlocks))
	}
	if !reflect.DeepEqual(report.Deadlocks[0].Threads, []string{"t1", "t2", "t3"}) {
		t.Errorf("Unexpected cycle members: %v", report.Deadlocks[0].Threads)
	}
}
