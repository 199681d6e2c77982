// Package hostinfo probes the host the server runs on: platform, processor
// architecture, Alpine detection, and which debugger is available. The
// capabilities endpoint and MCP server info are built from this.
package hostinfo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Info describes the debugging host.
type Info struct {
	Platform string `json:"platform"` // linux, darwin, windows
	Arch     string `json:"arch"`     // x64, arm64, x86, arm
	IsAlpine bool   `json:"isAlpine"`
	Debugger string `json:"debugger"` // lldb or cdb
	Hostname string `json:"hostname"`
	Name     string `json:"name"` // auto-generated, e.g. alpine-arm64
}

// Probe inspects the current host. alpineRelease is the marker file path,
// "/etc/alpine-release" in production.
func Probe(alpineRelease string) Info {
	info := Info{
		Platform: runtime.GOOS,
		Arch:     normalizeArch(runtime.GOARCH),
		Debugger: defaultDebugger(runtime.GOOS),
	}

	if alpineRelease != "" {
		if _, err := os.Stat(alpineRelease); err == nil {
			info.IsAlpine = true
		}
	}
	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}
	info.Name = autoName(info)
	return info
}

// RuntimeVersion reports the installed .NET SDK version via the dotnet
// CLI. Empty when the CLI is missing or fails; capability responses omit
// the field in that case.
func RuntimeVersion(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "dotnet", "--version").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// DebuggerAvailable reports whether the host's debugger binary resolves.
func DebuggerAvailable(path string) bool {
	if path == "" {
		return false
	}
	if strings.ContainsRune(path, os.PathSeparator) {
		_, err := os.Stat(path)
		return err == nil
	}
	_, err := exec.LookPath(path)
	return err == nil
}

func normalizeArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x64"
	case "386":
		return "x86"
	default:
		return goarch
	}
}

func defaultDebugger(goos string) string {
	if goos == "windows" {
		return "cdb"
	}
	return "lldb"
}

// autoName builds the short identity used when no server name is
// configured: distro or platform plus architecture.
func autoName(info Info) string {
	platform := info.Platform
	if info.IsAlpine {
		platform = "alpine"
	}
	return fmt.Sprintf("%s-%s", platform, info.Arch)
}
