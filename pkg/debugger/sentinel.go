package debugger

import (
	"fmt"
	"regexp"
	"strings"
)

// The driver never parses debugger prompts. Every command is followed by
// a sentinel command that prints a unique token on its own line; all
// output up to that line is the command's response. Tokens carry a
// sequence number so a stale token from an interrupted command can never
// terminate a later read early.

// sentinelToken returns the end marker for one execution.
func sentinelToken(seq uint64) string {
	return fmt.Sprintf("\x01END:%d\x01", seq)
}

// sentinelCommand returns the debugger command printing the token. The
// LLDB form embeds the token as a Python escape sequence, so the echoed
// command text never contains the raw token; only the print output does.
func sentinelCommand(kind Kind, token string) string {
	if kind == KindCDB {
		return ".echo " + token
	}
	return fmt.Sprintf("script print(%q)", token)
}

const lldbPrompt = "(lldb) "

var cdbPromptRE = regexp.MustCompile(`^\d+:\d+(:x86)?> `)

// cleanOutput strips prompt echo from the response: the echoed command,
// the echoed sentinel command, and prompt prefixes.
func cleanOutput(kind Kind, cmd, sentinelCmd string, lines []string) string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		stripped := strings.TrimPrefix(line, lldbPrompt)
		if kind == KindCDB {
			stripped = cdbPromptRE.ReplaceAllString(stripped, "")
		}
		if stripped == cmd || stripped == sentinelCmd {
			continue
		}
		out = append(out, stripped)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}
