package dump

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/cmd/coredockctl/cmdutil"
	"github.com/coredock/coredock/internal/cli/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dump store statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	stats, err := client.DumpStats()
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, stats)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, stats)
	default:
		fmt.Printf("Dumps:       %d\n", stats.TotalDumps)
		fmt.Printf("Total size:  %s\n", cmdutil.FormatBytes(stats.TotalBytes))

		if len(stats.PerFormat) > 0 {
			fmt.Println("\nBy format:")
			for _, k := range sortedKeys(stats.PerFormat) {
				fmt.Printf("  %-12s %d\n", k, stats.PerFormat[k])
			}
		}
		if len(stats.PerUser) > 0 {
			fmt.Println("\nBy user:")
			for _, k := range sortedKeys(stats.PerUser) {
				fmt.Printf("  %-12s %d\n", k, stats.PerUser[k])
			}
		}
		return nil
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
