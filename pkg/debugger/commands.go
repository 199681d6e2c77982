package debugger

import (
	"fmt"
	"strings"
)

// binaryName returns the default debugger binary for the kind, resolved
// via PATH when Config.Path is empty.
func binaryName(kind Kind) string {
	if kind == KindCDB {
		return "cdb.exe"
	}
	return "lldb"
}

// spawnArgs builds the argv tail. CDB takes the dump at spawn time; LLDB
// loads it with a later target command.
func spawnArgs(kind Kind, opts OpenOptions) []string {
	if kind == KindCDB {
		args := []string{"-z", opts.DumpPath}
		if opts.ExecutablePath != "" {
			args = append(args, "-i", opts.ExecutablePath)
		}
		return args
	}
	return []string{"--no-use-colors"}
}

// loadCommands returns the commands that load the dump after spawn.
func loadCommands(kind Kind, opts OpenOptions) []string {
	if kind == KindCDB {
		return nil // dump given on the command line
	}
	if opts.ExecutablePath != "" {
		return []string{fmt.Sprintf("target create %q --core %q", opts.ExecutablePath, opts.DumpPath)}
	}
	return []string{fmt.Sprintf("target create --core %q", opts.DumpPath)}
}

// symbolCommands applies the symbol search path: local directories first,
// then servers.
func symbolCommands(kind Kind, dirs, servers []string) []string {
	var cmds []string
	if kind == KindCDB {
		parts := append([]string{}, dirs...)
		for _, url := range servers {
			parts = append(parts, "srv*"+url)
		}
		if len(parts) > 0 {
			cmds = append(cmds, ".sympath "+strings.Join(parts, ";"), ".reload")
		}
		return cmds
	}
	if len(dirs) > 0 {
		quoted := make([]string, len(dirs))
		for i, d := range dirs {
			quoted[i] = fmt.Sprintf("%q", d)
		}
		cmds = append(cmds, "settings set target.debug-file-search-paths "+strings.Join(quoted, " "))
	}
	for _, url := range servers {
		cmds = append(cmds, "setsymbolserver "+url)
	}
	return cmds
}

// sosLoadCommand returns the managed-runtime plugin load command.
func sosLoadCommand(kind Kind, pluginPath string) string {
	if kind == KindCDB {
		if pluginPath != "" {
			return ".load " + pluginPath
		}
		return ".loadby sos coreclr"
	}
	if pluginPath != "" {
		return fmt.Sprintf("plugin load %q", pluginPath)
	}
	return "plugin load libsosplugin.so"
}

// looksLoadError reports whether load-command output indicates failure.
// The debuggers report load problems as text, not exit codes.
func looksLoadError(out string) bool {
	lower := strings.ToLower(out)
	return strings.Contains(lower, "error:") ||
		strings.Contains(lower, "unable to open") ||
		strings.Contains(lower, "could not open")
}
