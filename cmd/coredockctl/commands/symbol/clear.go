package symbol

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/cmd/coredockctl/cmdutil"
	"github.com/coredock/coredock/internal/cli/prompt"
)

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear <dump-id>",
	Short: "Remove all symbols stored for a dump",
	Args:  cobra.ExactArgs(1),
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "Skip confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	dumpID := args[0]

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Remove all symbols for dump %s?", dumpID), clearForce)
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

	resp, err := client.ClearSymbols(dumpID)
	if err != nil {
		return fmt.Errorf("failed to clear symbols: %w", err)
	}

	fmt.Printf("Cleared symbols for dump %s\n", resp.DumpID)
	return nil
}
