package symbol

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/cmd/coredockctl/cmdutil"
)

var uploadZip bool

var uploadCmd = &cobra.Command{
	Use:   "upload <dump-id> <file>",
	Short: "Upload a symbol file or archive",
	Long: `Upload a debug symbol file for a dump.

Single files (.pdb, .dll, .so, .dylib, .dwarf) are stored as-is.
With --zip, or when the file ends in .zip, the archive is extracted
on the server and non-symbol entries are skipped.

Examples:
  # Upload a single PDB
  coredockctl symbol upload dmp-1234 ./MyApp.pdb

  # Upload an archive of symbols
  coredockctl symbol upload dmp-1234 ./symbols.zip`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadZip, "zip", false, "Treat the file as a ZIP archive of symbols")
}

func runUpload(cmd *cobra.Command, args []string) error {
	dumpID, filePath := args[0], args[1]

	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("cannot read %s: %w", filePath, err)
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	if uploadZip || strings.HasSuffix(strings.ToLower(filePath), ".zip") {
		resp, err := client.UploadSymbolZip(filePath, dumpID)
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		fmt.Printf("Extracted %d symbol file(s) for dump %s\n", len(resp.ExtractedFiles), resp.DumpID)
		if len(resp.Skipped) > 0 {
			fmt.Printf("Skipped %d non-symbol entries\n", len(resp.Skipped))
		}
		return nil
	}

	info, err := client.UploadSymbol(filePath, dumpID)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Printf("Uploaded %s (%s) for dump %s\n",
		info.FileName, cmdutil.FormatBytes(info.Size), info.DumpID)
	return nil
}
