package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ReportFormat selects the rendering of a generated report.
type ReportFormat string

const (
	FormatMarkdown ReportFormat = "markdown"
	FormatHTML     ReportFormat = "html"
	FormatJSON     ReportFormat = "json"
)

// ReportOptions control report scope and rendering.
type ReportOptions struct {
	Format         ReportFormat
	Summary        bool
	IncludeWatches bool
	TopN           int
}

// ReportHeader identifies what the report describes.
type ReportHeader struct {
	DumpID   string `json:"dumpId"`
	DumpFile string `json:"dumpFile,omitempty"`
	Server   string `json:"server,omitempty"`
	Debugger string `json:"debugger"`
	Runtime  string `json:"runtime,omitempty"`
}

// WatchEntry is one evaluated watch included in a report.
type WatchEntry struct {
	ID         int    `json:"id"`
	Label      string `json:"label,omitempty"`
	Expression string `json:"expression"`
	Value      string `json:"value,omitempty"`
	Error      string `json:"error,omitempty"`
}

// StringDuplicate is one duplicated string value with its estimated
// savings were it interned down to a single instance.
type StringDuplicate struct {
	Value     string `json:"value"`
	Count     int64  `json:"count"`
	TotalSize int64  `json:"totalSize"`
	Savings   int64  `json:"savings"`
}

// Report is the structured document the generator assembles before
// rendering.
type Report struct {
	Header           ReportHeader      `json:"header"`
	GeneratedAt      time.Time         `json:"generatedAt"`
	Summary          bool              `json:"summary"`
	Sections         []Section         `json:"sections"`
	TopConsumers     []HeapTypeStat    `json:"topConsumers,omitempty"`
	StringDuplicates []StringDuplicate `json:"stringDuplicates,omitempty"`
	Watches          []WatchEntry      `json:"watches,omitempty"`
}

// BuildReport runs the report recipe against the target. The full report
// covers crash triage, threads, modules, memory consumers, async state,
// duplicated strings, and heap fragmentation; Summary keeps the first
// four and trims the rest.
func BuildReport(ctx context.Context, t Target, hdr ReportHeader, watches []WatchEntry, opts ReportOptions) (*Report, error) {
	if t.Exec == nil {
		return nil, ErrNoExecutor
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = 10
		if opts.Summary {
			topN = 5
		}
	}

	r := &Report{
		Header:      hdr,
		GeneratedAt: time.Now().UTC(),
		Summary:     opts.Summary,
	}

	crash, err := Crash(ctx, t)
	if err != nil {
		return nil, err
	}
	if opts.Summary && len(crash.Sections) > 2 {
		crash.Sections = crash.Sections[:2]
	}
	r.Sections = append(r.Sections, crash.Sections...)

	threadSteps := []step{
		{title: "Thread summary", lldb: "thread list", cdb: "~"},
		{title: "Managed threads", lldb: "clrthreads", cdb: "!threads", managed: true},
		{title: "Module summary", lldb: "image list -b", cdb: "lm"},
	}
	threads, err := runRecipe(ctx, t, KindCrash, threadSteps)
	if err != nil {
		return r, err
	}
	r.Sections = append(r.Sections, threads.Sections...)

	if t.Managed {
		heapOut, herr := t.Exec.Execute(ctx, "dumpheap -stat", 0)
		if herr == nil {
			r.TopConsumers = topConsumers(ParseHeapStat(heapOut), topN)
		} else {
			r.Sections = append(r.Sections, Section{
				Title: "Top memory consumers", Command: "dumpheap -stat", Err: herr.Error(),
			})
		}
	}

	if !opts.Summary {
		tailSteps := []step{
			{title: "Async and task state", lldb: "dumpasync", cdb: "!dumpasync", managed: true},
			{title: "Heap fragmentation", lldb: "gcheapstat", cdb: "!gcheapstat", managed: true},
		}
		tail, terr := runRecipe(ctx, t, KindCrash, tailSteps)
		if terr != nil {
			return r, terr
		}
		r.Sections = append(r.Sections, tail.Sections...)

		if t.Managed {
			if out, serr := t.Exec.Execute(ctx, "dumpheap -strings", 0); serr == nil {
				r.StringDuplicates = topDuplicates(parseStringDuplicates(out), topN)
			}
		}
	}

	if opts.IncludeWatches {
		r.Watches = watches
	}
	return r, nil
}

// Render renders the report in the requested format. Markdown is the
// default; HTML is rendered from the Markdown.
func (r *Report) Render(format ReportFormat) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding report: %w", err)
		}
		return string(data), nil
	case FormatHTML:
		return markdownToHTML(r.markdown()), nil
	case FormatMarkdown, "":
		return r.markdown(), nil
	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
}

func (r *Report) markdown() string {
	var b strings.Builder
	title := "Crash dump report"
	if r.Summary {
		title = "Crash dump summary"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	fmt.Fprintf(&b, "- Dump: %s", r.Header.DumpID)
	if r.Header.DumpFile != "" {
		fmt.Fprintf(&b, " (%s)", r.Header.DumpFile)
	}
	b.WriteString("\n")
	if r.Header.Server != "" {
		fmt.Fprintf(&b, "- Server: %s\n", r.Header.Server)
	}
	fmt.Fprintf(&b, "- Debugger: %s\n", r.Header.Debugger)
	if r.Header.Runtime != "" {
		fmt.Fprintf(&b, "- Runtime: %s\n", r.Header.Runtime)
	}
	fmt.Fprintf(&b, "- Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))

	for _, sec := range r.Sections {
		fmt.Fprintf(&b, "## %s\n\n", sec.Title)
		if sec.Err != "" {
			fmt.Fprintf(&b, "_failed: %s_\n\n", sec.Err)
			continue
		}
		fmt.Fprintf(&b, "```\n%s\n```\n\n", strings.TrimRight(sec.Text, "\n"))
	}

	if len(r.TopConsumers) > 0 {
		b.WriteString("## Top memory consumers\n\n```\n")
		b.WriteString(consumerChart(r.TopConsumers))
		b.WriteString("```\n\n")
	}

	if len(r.StringDuplicates) > 0 {
		b.WriteString("## Duplicated strings\n\n```\n")
		for _, d := range r.StringDuplicates {
			fmt.Fprintf(&b, "%8d x %-40q est. savings %s\n",
				d.Count, truncateString(d.Value, 38), formatBytes(d.Savings))
		}
		b.WriteString("```\n\n")
	}

	if len(r.Watches) > 0 {
		b.WriteString("## Watches\n\n")
		for _, w := range r.Watches {
			label := w.Label
			if label == "" {
				label = w.Expression
			}
			if w.Error != "" {
				fmt.Fprintf(&b, "- [%d] %s: failed (%s)\n", w.ID, label, w.Error)
				continue
			}
			fmt.Fprintf(&b, "- [%d] %s:\n\n```\n%s\n```\n", w.ID, label, strings.TrimRight(w.Value, "\n"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// consumerChart renders the heap's top types as an ASCII bar chart scaled
// to the largest consumer.
func consumerChart(stats []HeapTypeStat) string {
	const width = 30
	var max int64 = 1
	for _, s := range stats {
		if s.TotalSize > max {
			max = s.TotalSize
		}
	}

	var b strings.Builder
	for _, s := range stats {
		n := int(s.TotalSize * width / max)
		if n < 1 {
			n = 1
		}
		fmt.Fprintf(&b, "%-48s %10s |%-*s|\n",
			truncateString(s.TypeName, 48), formatBytes(s.TotalSize),
			width, strings.Repeat("#", n))
	}
	return b.String()
}

func topConsumers(stats []HeapTypeStat, n int) []HeapTypeStat {
	sortStatsBySize(stats)
	if len(stats) > n {
		stats = stats[:n]
	}
	return stats
}

func topDuplicates(dups []StringDuplicate, n int) []StringDuplicate {
	sort.Slice(dups, func(i, j int) bool {
		if dups[i].Savings != dups[j].Savings {
			return dups[i].Savings > dups[j].Savings
		}
		return dups[i].Value < dups[j].Value
	})
	if len(dups) > n {
		dups = dups[:n]
	}
	return dups
}

// Row layout of dumpheap -strings: Count, TotalSize, quoted value.
var stringDupRowRE = regexp.MustCompile(`^\s*([\d,]+)\s+([\d,]+)\s+"(.*)"\s*$`)

func parseStringDuplicates(out string) []StringDuplicate {
	var dups []StringDuplicate
	for _, line := range strings.Split(out, "\n") {
		m := stringDupRowRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		count, _ := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
		size, _ := strconv.ParseInt(strings.ReplaceAll(m[2], ",", ""), 10, 64)
		if count < 2 {
			continue // a unique string saves nothing
		}
		dups = append(dups, StringDuplicate{
			Value:     m[3],
			Count:     count,
			TotalSize: size,
			Savings:   size - size/count,
		})
	}
	return dups
}

func truncateString(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
