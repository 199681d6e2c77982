package analysis

import (
	"context"
	"testing"

	"github.com/coredock/coredock/pkg/inspect"
)

func TestVersionLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"8.0.1", "8.0.3", true},
		{"8.0.3", "8.0.3", false},
		{"8.0.10", "8.0.3", false},
		{"7.0.20", "8.0.0", true},
		{"8.0", "8.0.1", true},
	}
	for _, tt := range tests {
		if got := versionLess(tt.a, tt.b); got != tt.want {
			t.Errorf("versionLess(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSecurity_FlagsOutdatedModule(t *testing.T) {
	insp := &fakeInspector{modules: []inspect.Module{
		{Name: "libcoreclr.so", Path: "/usr/share/dotnet/shared/Microsoft.NETCore.App/8.0.1/libcoreclr.so", Managed: false},
		{Name: "System.Private.CoreLib.dll", Path: "/usr/share/dotnet/shared/Microsoft.NETCore.App/8.0.1/System.Private.CoreLib.dll", Managed: true},
	}}
	dataset := []CVE{
		{ID: "CVE-2024-0001", Module: "libcoreclr.so", FixedIn: "8.0.3", Severity: "high"},
		{ID: "CVE-2020-9999", Module: "libcoreclr.so", FixedIn: "7.0.0", Severity: "critical"},
	}

	res, err := Security(context.Background(), Target{Insp: insp}, dataset)
	if err != nil {
		t.Fatalf("Security failed: %v", err)
	}
	report := res.Security
	if report.ModulesScanned != 2 {
		t.Errorf("Expected 2 modules scanned, got %d", report.ModulesScanned)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("Expected one finding, got %+v", report.Findings)
	}

	f := report.Findings[0]
	if f.Module != "libcoreclr.so" || f.Version != "8.0.1" {
		t.Errorf("Unexpected finding: %+v", f)
	}
	// Only the advisory the version is actually below
	if len(f.CVEs) != 1 || f.CVEs[0].ID != "CVE-2024-0001" {
		t.Errorf("Expected only the unfixed advisory, got %+v", f.CVEs)
	}
}

func TestSecurity_UnversionedNativeModule(t *testing.T) {
	insp := &fakeInspector{modules: []inspect.Module{
		{Name: "mystery.so", Path: "/opt/app/mystery.so"},
	}}

	res, err := Security(context.Background(), Target{Insp: insp}, nil)
	if err != nil {
		t.Fatalf("Security failed: %v", err)
	}
	if len(res.Security.Findings) != 1 {
		t.Fatalf("Expected the unversioned module flagged, got %+v", res.Security.Findings)
	}
	if res.Security.Findings[0].Reason != "no verifiable version" {
		t.Errorf("Unexpected reason: %q", res.Security.Findings[0].Reason)
	}
}

func TestSecurity_RequiresInspector(t *testing.T) {
	if _, err := Security(context.Background(), Target{}, nil); err != ErrNoExecutor {
		t.Errorf("Expected ErrNoExecutor, got %v", err)
	}
}
