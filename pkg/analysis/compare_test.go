package analysis

import (
	"reflect"
	"testing"

	"github.com/coredock/coredock/pkg/inspect"
)

const heapStatOutput = `Statistics:
              MT    Count    TotalSize Class Name
00007f3bb3d0f6e0      120        3,840 System.Text.StringBuilder
00007f3bb3d0a2c0    4,510      528,400 System.String
00007f3bb3d0b100       12    1,048,576 System.Byte[]
Total 4642 objects
`

func TestParseHeapStat(t *testing.T) {
	stats := ParseHeapStat(heapStatOutput)
	if len(stats) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(stats))
	}
	if stats[1].TypeName != "System.String" || stats[1].Count != 4510 || stats[1].TotalSize != 528400 {
		t.Errorf("Unexpected row: %+v", stats[1])
	}
	if stats[2].TotalSize != 1048576 {
		t.Errorf("Comma-separated size not parsed: %+v", stats[2])
	}
}

func TestCompareHeaps(t *testing.T) {
	baseline := []HeapTypeStat{
		{TypeName: "System.String", Count: 100, TotalSize: 10000},
		{TypeName: "System.Byte[]", Count: 10, TotalSize: 500000},
		{TypeName: "Gone.Type", Count: 5, TotalSize: 200},
	}
	target := []HeapTypeStat{
		{TypeName: "System.String", Count: 400, TotalSize: 40000},
		{TypeName: "System.Byte[]", Count: 10, TotalSize: 500000},
		{TypeName: "New.Type", Count: 2, TotalSize: 64},
	}

	diff := CompareHeaps(baseline, target)

	if len(diff.Changed) != 1 || diff.Changed[0].TypeName != "System.String" {
		t.Fatalf("Unexpected changed set: %+v", diff.Changed)
	}
	if diff.Changed[0].CountDiff != 300 || diff.Changed[0].SizeDiff != 30000 {
		t.Errorf("Unexpected deltas: %+v", diff.Changed[0])
	}
	if len(diff.Added) != 1 || diff.Added[0].TypeName != "New.Type" {
		t.Errorf("Unexpected added set: %+v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].TypeName != "Gone.Type" {
		t.Errorf("Unexpected removed set: %+v", diff.Removed)
	}
}

func TestCompareHeaps_ChangedSortedByAbsDelta(t *testing.T) {
	baseline := []HeapTypeStat{
		{TypeName: "A", Count: 1, TotalSize: 100},
		{TypeName: "B", Count: 1, TotalSize: 100},
	}
	target := []HeapTypeStat{
		{TypeName: "A", Count: 1, TotalSize: 150},  // +50
		{TypeName: "B", Count: 1, TotalSize: 10},   // -90
	}

	diff := CompareHeaps(baseline, target)
	if diff.Changed[0].TypeName != "B" {
		t.Errorf("Largest absolute delta first, got %+v", diff.Changed)
	}
}

func TestCompareThreads(t *testing.T) {
	baseline := []inspect.ThreadStack{{OSThreadID: 0x10}, {OSThreadID: 0x20}}
	target := []inspect.ThreadStack{{OSThreadID: 0x20}, {OSThreadID: 0x30}, {OSThreadID: 0x40}}

	diff := CompareThreads(baseline, target)
	if diff.BaselineCount != 2 || diff.TargetCount != 3 || diff.Delta != 1 {
		t.Errorf("Unexpected counts: %+v", diff)
	}
	if !reflect.DeepEqual(diff.Added, []string{"30", "40"}) {
		t.Errorf("Unexpected added threads: %v", diff.Added)
	}
	if !reflect.DeepEqual(diff.Removed, []string{"10"}) {
		t.Errorf("Unexpected removed threads: %v", diff.Removed)
	}
}

func TestCompareModules(t *testing.T) {
	baseline := []inspect.Module{
		{Name: "libcoreclr.so", Path: "/usr/share/dotnet/shared/Microsoft.NETCore.App/8.0.1/libcoreclr.so"},
		{Name: "old.so", Path: "/lib/old.so"},
		{Name: "libc.so.6", Path: "/lib/libc.so.6"},
	}
	target := []inspect.Module{
		{Name: "libcoreclr.so", Path: "/usr/share/dotnet/shared/Microsoft.NETCore.App/8.0.3/libcoreclr.so"},
		{Name: "new.so", Path: "/lib/new.so"},
		{Name: "libc.so.6", Path: "/lib/libc.so.6"},
	}

	diff := CompareModules(baseline, target)
	if !reflect.DeepEqual(diff.Added, []string{"new.so"}) {
		t.Errorf("Unexpected added: %v", diff.Added)
	}
	if !reflect.DeepEqual(diff.Removed, []string{"old.so"}) {
		t.Errorf("Unexpected removed: %v", diff.Removed)
	}
	if len(diff.Changed) != 1 || diff.Changed[0].Name != "libcoreclr.so" {
		t.Fatalf("Expected the runtime path change, got %+v", diff.Changed)
	}
}
