package symbol

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/cmd/coredockctl/cmdutil"
	"github.com/coredock/coredock/internal/cli/output"
)

var listCmd = &cobra.Command{
	Use:     "list <dump-id>",
	Aliases: []string{"ls"},
	Short:   "List symbols stored for a dump",
	Args:    cobra.ExactArgs(1),
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	resp, err := client.ListSymbols(args[0])
	if err != nil {
		return fmt.Errorf("failed to list symbols: %w", err)
	}

	table := output.NewTableData("FILE")
	for _, f := range resp.Files {
		table.AddRow(f)
	}

	return cmdutil.PrintOutput(os.Stdout, resp, resp.Count == 0,
		fmt.Sprintf("No symbols stored for dump %s", args[0]), table)
}
