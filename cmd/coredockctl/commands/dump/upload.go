package dump

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/cmd/coredockctl/cmdutil"
)

var (
	uploadUser        string
	uploadDescription string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a crash dump",
	Long: `Upload a crash dump file to the server.

The server sniffs the dump format (ELF core, Minidump, or Mach-O core)
and rejects files it does not recognize.

Examples:
  # Upload a dump for a user
  coredockctl dump upload ./core.1234 --user alice

  # Upload with a description
  coredockctl dump upload ./crash.dmp --user alice --description "prod crash 2026-08-21"`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadUser, "user", "u", "", "User ID owning the dump (required)")
	uploadCmd.Flags().StringVarP(&uploadDescription, "description", "d", "", "Free-form description")
	_ = uploadCmd.MarkFlagRequired("user")
}

func runUpload(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("cannot read %s: %w", filePath, err)
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	info, err := client.UploadDump(filePath, uploadUser, uploadDescription)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Printf("Uploaded dump %s (%s, %s, %s)\n",
		info.ID, info.Format, info.Arch, cmdutil.FormatBytes(info.Size))
	return nil
}

var uploadBinaryUser string

var uploadBinaryCmd = &cobra.Command{
	Use:   "upload-binary <dump-id> <file>",
	Short: "Attach the crashed executable to a dump",
	Long: `Upload the executable that produced a dump.

Debuggers need the original binary next to the dump to resolve
managed frames on Linux. The file is stored alongside the dump and
picked up automatically when a session opens it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cmdutil.GetClient()
		if err != nil {
			return err
		}

		info, err := client.UploadExecutable(args[1], uploadBinaryUser, args[0])
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}

		fmt.Printf("Attached %s to dump %s\n", info.ExecutableName, info.ID)
		return nil
	},
}

func init() {
	uploadBinaryCmd.Flags().StringVarP(&uploadBinaryUser, "user", "u", "", "User ID owning the dump (required)")
	_ = uploadBinaryCmd.MarkFlagRequired("user")
}
