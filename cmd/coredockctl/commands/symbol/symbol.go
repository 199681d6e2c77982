// Package symbol implements symbol store commands for coredockctl.
package symbol

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for symbol operations.
var Cmd = &cobra.Command{
	Use:   "symbol",
	Short: "Manage debug symbols",
	Long: `Upload and inspect debug symbols stored per dump.

Symbols uploaded for a dump are placed on the debugger search path
when a session opens that dump.`,
}

func init() {
	Cmd.AddCommand(uploadCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(clearCmd)
	Cmd.AddCommand(serversCmd)
}
