package analysis

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/coredock/coredock/pkg/inspect"
)

// HeapTypeStat is one row of a heap-by-type summary.
type HeapTypeStat struct {
	MethodTable string `json:"methodTable,omitempty"`
	Count       int64  `json:"count"`
	TotalSize   int64  `json:"totalSize"`
	TypeName    string `json:"typeName"`
}

// Row layout of SOS dumpheap -stat: MT, Count, TotalSize, Class Name.
var heapStatRowRE = regexp.MustCompile(
	`^\s*([0-9a-fA-F]{8,})\s+(\d+)\s+([\d,]+)\s+(\S.*)$`)

// ParseHeapStat extracts the per-type rows from dumpheap -stat output.
// Rows are returned in the debugger's order (ascending total size).
func ParseHeapStat(out string) []HeapTypeStat {
	var stats []HeapTypeStat
	for _, line := range strings.Split(out, "\n") {
		m := heapStatRowRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		count, _ := strconv.ParseInt(m[2], 10, 64)
		size, _ := strconv.ParseInt(strings.ReplaceAll(m[3], ",", ""), 10, 64)
		stats = append(stats, HeapTypeStat{
			MethodTable: strings.ToLower(m[1]),
			Count:       count,
			TotalSize:   size,
			TypeName:    strings.TrimSpace(m[4]),
		})
	}
	return stats
}

// HeapTypeDelta is one type present in both dumps with changed footprint.
type HeapTypeDelta struct {
	TypeName  string `json:"typeName"`
	CountDiff int64  `json:"countDiff"`
	SizeDiff  int64  `json:"sizeDiff"`
}

// HeapDiff is the heap comparison between two dumps.
type HeapDiff struct {
	Changed []HeapTypeDelta `json:"changed"`
	Added   []HeapTypeStat  `json:"added"`
	Removed []HeapTypeStat  `json:"removed"`
}

// CompareHeaps diffs two heap summaries by type name. Changed entries are
// sorted by absolute size delta descending; added and removed by total
// size descending.
func CompareHeaps(baseline, target []HeapTypeStat) *HeapDiff {
	base := make(map[string]HeapTypeStat, len(baseline))
	for _, s := range baseline {
		base[s.TypeName] = s
	}

	diff := &HeapDiff{}
	seen := make(map[string]struct{}, len(target))
	for _, t := range target {
		seen[t.TypeName] = struct{}{}
		b, ok := base[t.TypeName]
		if !ok {
			diff.Added = append(diff.Added, t)
			continue
		}
		if t.Count != b.Count || t.TotalSize != b.TotalSize {
			diff.Changed = append(diff.Changed, HeapTypeDelta{
				TypeName:  t.TypeName,
				CountDiff: t.Count - b.Count,
				SizeDiff:  t.TotalSize - b.TotalSize,
			})
		}
	}
	for _, b := range baseline {
		if _, ok := seen[b.TypeName]; !ok {
			diff.Removed = append(diff.Removed, b)
		}
	}

	sort.Slice(diff.Changed, func(i, j int) bool {
		ai, aj := abs64(diff.Changed[i].SizeDiff), abs64(diff.Changed[j].SizeDiff)
		if ai != aj {
			return ai > aj
		}
		return diff.Changed[i].TypeName < diff.Changed[j].TypeName
	})
	sortStatsBySize(diff.Added)
	sortStatsBySize(diff.Removed)
	return diff
}

func sortStatsBySize(stats []HeapTypeStat) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalSize != stats[j].TotalSize {
			return stats[i].TotalSize > stats[j].TotalSize
		}
		return stats[i].TypeName < stats[j].TypeName
	})
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// ThreadDiff compares thread populations.
type ThreadDiff struct {
	BaselineCount int      `json:"baselineCount"`
	TargetCount   int      `json:"targetCount"`
	Delta         int      `json:"delta"`
	Added         []string `json:"added,omitempty"`
	Removed       []string `json:"removed,omitempty"`
}

// CompareThreads diffs two thread lists by OS thread id.
func CompareThreads(baseline, target []inspect.ThreadStack) *ThreadDiff {
	base := make(map[uint64]struct{}, len(baseline))
	for _, t := range baseline {
		base[t.OSThreadID] = struct{}{}
	}
	tgt := make(map[uint64]struct{}, len(target))
	for _, t := range target {
		tgt[t.OSThreadID] = struct{}{}
	}

	diff := &ThreadDiff{
		BaselineCount: len(baseline),
		TargetCount:   len(target),
		Delta:         len(target) - len(baseline),
	}
	for id := range tgt {
		if _, ok := base[id]; !ok {
			diff.Added = append(diff.Added, strconv.FormatUint(id, 16))
		}
	}
	for id := range base {
		if _, ok := tgt[id]; !ok {
			diff.Removed = append(diff.Removed, strconv.FormatUint(id, 16))
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	return diff
}

// ModuleChange is a module present in both dumps from a different path,
// which is how version bumps surface in the shared-framework layout.
type ModuleChange struct {
	Name         string `json:"name"`
	BaselinePath string `json:"baselinePath"`
	TargetPath   string `json:"targetPath"`
}

// ModuleDiff compares loaded-module sets.
type ModuleDiff struct {
	Added   []string       `json:"added,omitempty"`
	Removed []string       `json:"removed,omitempty"`
	Changed []ModuleChange `json:"changed,omitempty"`
}

// CompareModules diffs two module lists by name, reporting path changes
// for modules present in both.
func CompareModules(baseline, target []inspect.Module) *ModuleDiff {
	base := make(map[string]inspect.Module, len(baseline))
	for _, m := range baseline {
		base[strings.ToLower(m.Name)] = m
	}

	diff := &ModuleDiff{}
	seen := make(map[string]struct{}, len(target))
	for _, t := range target {
		key := strings.ToLower(t.Name)
		seen[key] = struct{}{}
		b, ok := base[key]
		if !ok {
			diff.Added = append(diff.Added, t.Name)
			continue
		}
		if b.Path != t.Path && b.Path != "" && t.Path != "" {
			diff.Changed = append(diff.Changed, ModuleChange{
				Name:         t.Name,
				BaselinePath: b.Path,
				TargetPath:   t.Path,
			})
		}
	}
	for key, b := range base {
		if _, ok := seen[key]; !ok {
			diff.Removed = append(diff.Removed, b.Name)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Slice(diff.Changed, func(i, j int) bool {
		return diff.Changed[i].Name < diff.Changed[j].Name
	})
	return diff
}

// DumpComparison aggregates the three diffs between two dumps.
type DumpComparison struct {
	Heap    *HeapDiff   `json:"heap,omitempty"`
	Threads *ThreadDiff `json:"threads,omitempty"`
	Modules *ModuleDiff `json:"modules,omitempty"`
}
