package dump

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/cmd/coredockctl/cmdutil"
	"github.com/coredock/coredock/internal/cli/output"
	"github.com/coredock/coredock/internal/cli/timeutil"
)

var showUser string

var showCmd = &cobra.Command{
	Use:   "show <dump-id>",
	Short: "Show dump details",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showUser, "user", "u", "", "User ID owning the dump (required)")
	_ = showCmd.MarkFlagRequired("user")
}

func runShow(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	info, err := client.GetDump(showUser, args[0])
	if err != nil {
		return fmt.Errorf("failed to fetch dump: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, info)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, info)
	default:
		pairs := [][2]string{
			{"ID", info.ID},
			{"User", info.UserID},
			{"File", info.FileName},
			{"Size", cmdutil.FormatBytes(info.Size)},
			{"Format", info.Format},
			{"Architecture", info.Arch},
			{"Uploaded", timeutil.FormatTime(info.UploadedAt)},
		}
		if info.IsAlpine != nil {
			pairs = append(pairs, [2]string{"Alpine (musl)", cmdutil.BoolToYesNo(*info.IsAlpine)})
		}
		if info.RuntimeVersion != "" {
			pairs = append(pairs, [2]string{"Runtime", info.RuntimeVersion})
		}
		if info.ExecutableName != "" {
			pairs = append(pairs, [2]string{"Executable", info.ExecutableName})
		}
		if info.Description != "" {
			pairs = append(pairs, [2]string{"Description", info.Description})
		}
		return output.SimpleTable(os.Stdout, pairs)
	}
}
