// Package dump implements dump store commands for coredockctl.
package dump

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for dump operations.
var Cmd = &cobra.Command{
	Use:   "dump",
	Short: "Manage crash dumps",
	Long: `Upload, inspect, and delete crash dumps on the Coredock server.

Dumps belong to a user ID and are addressed by the ID assigned on
upload. Deleting a dump fails while a debugging session has it open.`,
}

func init() {
	Cmd.AddCommand(uploadCmd)
	Cmd.AddCommand(uploadBinaryCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(statsCmd)
}
