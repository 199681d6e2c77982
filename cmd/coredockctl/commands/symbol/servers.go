package symbol

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/cmd/coredockctl/cmdutil"
	"github.com/coredock/coredock/internal/cli/output"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List well-known public symbol servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cmdutil.GetClient()
		if err != nil {
			return err
		}

		servers, err := client.SymbolServers()
		if err != nil {
			return fmt.Errorf("failed to list symbol servers: %w", err)
		}

		table := output.NewTableData("URL")
		for _, s := range servers {
			table.AddRow(s)
		}

		return cmdutil.PrintOutput(os.Stdout, servers, len(servers) == 0,
			"No symbol servers configured", table)
	},
}
