package analysis

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/coredock/coredock/pkg/inspect"
)

// CVE is one entry of the advisory dataset supplied by the caller. A
// module is affected when its detected version is below FixedIn, or when
// no version can be determined at all.
type CVE struct {
	ID          string `json:"id"`
	Module      string `json:"module"`
	FixedIn     string `json:"fixedIn"`
	Severity    string `json:"severity"`
	Description string `json:"description,omitempty"`
}

// SecurityFinding flags one loaded module.
type SecurityFinding struct {
	Module  string `json:"module"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	CVEs    []CVE  `json:"cves,omitempty"`
	Reason  string `json:"reason"`
}

// SecurityReport is the structured output of the security analysis.
type SecurityReport struct {
	ModulesScanned int               `json:"modulesScanned"`
	Findings       []SecurityFinding `json:"findings"`
}

// Security walks the loaded modules and flags those matching the advisory
// dataset or carrying no verifiable version.
func Security(ctx context.Context, t Target, dataset []CVE) (*Result, error) {
	if t.Insp == nil {
		return nil, ErrNoExecutor
	}

	modules, err := t.Insp.ListModules(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing modules for security scan: %w", err)
	}

	byModule := make(map[string][]CVE)
	for _, c := range dataset {
		key := strings.ToLower(c.Module)
		byModule[key] = append(byModule[key], c)
	}

	report := &SecurityReport{ModulesScanned: len(modules)}
	for _, mod := range modules {
		name := strings.ToLower(mod.Name)
		version := moduleVersion(mod)

		var hits []CVE
		for _, c := range byModule[name] {
			if version == "" || versionLess(version, c.FixedIn) {
				hits = append(hits, c)
			}
		}
		switch {
		case len(hits) > 0:
			reason := "version below advisory fix"
			if version == "" {
				reason = "version unknown, advisory match by name"
			}
			report.Findings = append(report.Findings, SecurityFinding{
				Module:  mod.Name,
				Path:    mod.Path,
				Version: version,
				CVEs:    hits,
				Reason:  reason,
			})
		case version == "" && !mod.Managed:
			report.Findings = append(report.Findings, SecurityFinding{
				Module: mod.Name,
				Path:   mod.Path,
				Reason: "no verifiable version",
			})
		}
	}
	sort.Slice(report.Findings, func(i, j int) bool {
		return report.Findings[i].Module < report.Findings[j].Module
	})

	res := newResult(KindSecurity)
	res.Security = report
	res.Sections = append(res.Sections, Section{
		Title: "Module scan",
		Text:  securitySummary(report),
	})
	return res, nil
}

func securitySummary(r *SecurityReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d modules scanned, %d flagged\n", r.ModulesScanned, len(r.Findings))
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "%s", f.Module)
		if f.Version != "" {
			fmt.Fprintf(&b, " %s", f.Version)
		}
		fmt.Fprintf(&b, ": %s", f.Reason)
		for _, c := range f.CVEs {
			fmt.Fprintf(&b, " [%s fixed in %s]", c.ID, c.FixedIn)
		}
		b.WriteString("\n")
	}
	return b.String()
}

var versionInPathRE = regexp.MustCompile(`[/\\](\d+\.\d+\.\d+(?:\.\d+)?)[/\\]`)

// moduleVersion extracts a version from the module path, the shared
// framework layout being the common case.
func moduleVersion(mod inspect.Module) string {
	if m := versionInPathRE.FindStringSubmatch(mod.Path); m != nil {
		return m[1]
	}
	return ""
}

// versionLess compares dotted numeric versions component-wise. Unparsable
// components compare as zero.
func versionLess(a, b string) bool {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			return av < bv
		}
	}
	return false
}
