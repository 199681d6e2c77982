package dump

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/cmd/coredockctl/cmdutil"
	"github.com/coredock/coredock/internal/cli/prompt"
	"github.com/coredock/coredock/pkg/apiclient"
)

var (
	deleteUser  string
	deleteForce bool
)

var deleteCmd = &cobra.Command{
	Use:     "delete <dump-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a dump",
	Long: `Delete a dump and its stored symbols.

Deletion is refused while a debugging session has the dump open.
Close the session first, or wait for idle eviction.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().StringVarP(&deleteUser, "user", "u", "", "User ID owning the dump (required)")
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
	_ = deleteCmd.MarkFlagRequired("user")
}

func runDelete(cmd *cobra.Command, args []string) error {
	dumpID := args[0]

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete dump %s?", dumpID), deleteForce)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Cancelled")
		return nil
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	resp, err := client.DeleteDump(deleteUser, dumpID)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsConflict() {
			return fmt.Errorf("dump %s is open in a debugging session; close the session first", dumpID)
		}
		return fmt.Errorf("failed to delete dump: %w", err)
	}

	fmt.Printf("Deleted dump %s\n", resp.DumpID)
	return nil
}
