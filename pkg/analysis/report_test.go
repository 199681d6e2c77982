package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/coredock/coredock/pkg/debugger"
)

const stringsOutput = `      Count    TotalSize String Value
        512       56,320 "connection reset by peer"
          1        1,024 "unique banner"
      2,048      131,072 "OK"
`

func TestParseStringDuplicates(t *testing.T) {
	dups := parseStringDuplicates(stringsOutput)
	if len(dups) != 2 {
		t.Fatalf("Expected 2 duplicated strings (unique one dropped), got %d", len(dups))
	}
	ok := dups[1]
	if ok.Value != "OK" || ok.Count != 2048 || ok.TotalSize != 131072 {
		t.Errorf("Unexpected entry: %+v", ok)
	}
	if ok.Savings != 131072-131072/2048 {
		t.Errorf("Unexpected savings: %d", ok.Savings)
	}
}

func reportTarget() Target {
	return Target{
		Exec: &fakeExecutor{responses: map[string]string{
			"thread info":          "stop reason = SIGSEGV",
			"bt":                   "frame #0",
			"thread backtrace all": "thread #1\nthread #2",
			"thread list":          "2 threads",
			"image list -b":        "app\nlibcoreclr.so",
			"clrthreads":           "ThreadCount: 4",
			"dumpheap -stat":       heapStatOutput,
			"dumpheap -strings":    stringsOutput,
			"dumpasync":            "no async state machines",
			"gcheapstat":           "Heap0 ...",
			"pe":                   "Exception object: none",
		}},
		Debugger: debugger.KindLLDB,
		Managed:  true,
	}
}

func TestBuildReport_Full(t *testing.T) {
	hdr := ReportHeader{DumpID: "abc123", Debugger: "lldb", Runtime: "8.0.3"}
	r, err := BuildReport(context.Background(), reportTarget(), hdr, nil, ReportOptions{})
	if err != nil {
		t.Fatalf("BuildReport failed: %v", err)
	}

	if len(r.TopConsumers) == 0 {
		t.Fatal("Expected top memory consumers")
	}
	// Largest consumer first
	if r.TopConsumers[0].TypeName != "System.Byte[]" {
		t.Errorf("Expected System.Byte[] first, got %q", r.TopConsumers[0].TypeName)
	}
	if len(r.StringDuplicates) == 0 {
		t.Error("Expected string duplicates in the full report")
	}

	var titles []string
	for _, s := range r.Sections {
		titles = append(titles, s.Title)
	}
	for _, want := range []string{"Exception record", "Thread summary", "Module summary", "Async and task state", "Heap fragmentation"} {
		found := false
		for _, title := range titles {
			if title == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Missing section %q in %v", want, titles)
		}
	}
}

func TestBuildReport_SummaryIsShorter(t *testing.T) {
	hdr := ReportHeader{DumpID: "abc123", Debugger: "lldb"}
	full, err := BuildReport(context.Background(), reportTarget(), hdr, nil, ReportOptions{})
	if err != nil {
		t.Fatalf("Full report failed: %v", err)
	}
	short, err := BuildReport(context.Background(), reportTarget(), hdr, nil, ReportOptions{Summary: true})
	if err != nil {
		t.Fatalf("Summary report failed: %v", err)
	}

	if len(short.Sections) >= len(full.Sections) {
		t.Errorf("Summary (%d sections) should be shorter than full (%d)",
			len(short.Sections), len(full.Sections))
	}
	if len(short.StringDuplicates) != 0 {
		t.Error("Summary report must skip string duplicates")
	}
}

func TestBuildReport_Watches(t *testing.T) {
	hdr := ReportHeader{DumpID: "abc123", Debugger: "lldb"}
	watches := []WatchEntry{{ID: 1, Expression: "clrstack", Value: "OS Thread Id: 0x1"}}

	without, err := BuildReport(context.Background(), reportTarget(), hdr, watches, ReportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(without.Watches) != 0 {
		t.Error("Watches must be excluded unless requested")
	}

	with, err := BuildReport(context.Background(), reportTarget(), hdr, watches, ReportOptions{IncludeWatches: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(with.Watches) != 1 {
		t.Error("Expected the watch in the report")
	}

	md, err := with.Render(FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "## Watches") || !strings.Contains(md, "clrstack") {
		t.Error("Markdown missing the watches section")
	}
}

func TestRender_Markdown(t *testing.T) {
	hdr := ReportHeader{DumpID: "abc123", Debugger: "lldb", Runtime: "8.0.3"}
	r, err := BuildReport(context.Background(), reportTarget(), hdr, nil, ReportOptions{})
	if err != nil {
		t.Fatal(err)
	}

	md, err := r.Render(FormatMarkdown)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.HasPrefix(md, "# Crash dump report") {
		t.Error("Markdown missing the title")
	}
	if !strings.Contains(md, "- Runtime: 8.0.3") {
		t.Error("Markdown missing the runtime header line")
	}
	if !strings.Contains(md, "|#") {
		t.Error("Markdown missing the ASCII chart")
	}
}

func TestRender_HTML(t *testing.T) {
	r := &Report{
		Header:   ReportHeader{DumpID: "abc123", Debugger: "lldb"},
		Sections: []Section{{Title: "Faulting <thread>", Text: "frame #0 <main>"}},
	}
	out, err := r.Render(FormatHTML)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, "<h2>Faulting &lt;thread&gt;</h2>") {
		t.Error("HTML heading missing or unescaped")
	}
	if !strings.Contains(out, "frame #0 &lt;main&gt;") {
		t.Error("Code content must be escaped")
	}
	if strings.Contains(out, "<main>") {
		t.Error("Raw output leaked into HTML unescaped")
	}
}

func TestRender_JSONRoundTrips(t *testing.T) {
	hdr := ReportHeader{DumpID: "abc123", Debugger: "lldb"}
	r, err := BuildReport(context.Background(), reportTarget(), hdr, nil, ReportOptions{})
	if err != nil {
		t.Fatal(err)
	}

	out, err := r.Render(FormatJSON)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("JSON report does not parse: %v", err)
	}
	if decoded.Header.DumpID != "abc123" {
		t.Errorf("Round-trip lost the header: %+v", decoded.Header)
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	r := &Report{}
	if _, err := r.Render("yaml"); err == nil {
		t.Error("Expected an error for an unknown format")
	}
}
