package dump

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/cmd/coredockctl/cmdutil"
	"github.com/coredock/coredock/internal/cli/timeutil"
	"github.com/coredock/coredock/pkg/apiclient"
)

var listUser string

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List a user's dumps",
	Long: `List the dumps stored for a user, newest first.

Examples:
  # List dumps for a user
  coredockctl dump list --user alice

  # Output as JSON
  coredockctl dump list --user alice -o json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listUser, "user", "u", "", "User ID to list dumps for (required)")
	_ = listCmd.MarkFlagRequired("user")
}

// dumpList renders dump metadata as a table.
type dumpList []apiclient.DumpInfo

func (l dumpList) Headers() []string {
	return []string{"ID", "FILE", "FORMAT", "ARCH", "SIZE", "UPLOADED"}
}

func (l dumpList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, d := range l {
		rows = append(rows, []string{
			d.ID,
			d.FileName,
			d.Format,
			d.Arch,
			cmdutil.FormatBytes(d.Size),
			timeutil.FormatTime(d.UploadedAt),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	resp, err := client.ListDumps(listUser)
	if err != nil {
		return fmt.Errorf("failed to list dumps: %w", err)
	}

	list := dumpList(resp.Dumps)
	return cmdutil.PrintOutput(os.Stdout, resp, len(list) == 0,
		fmt.Sprintf("No dumps stored for user %q", listUser), list)
}
