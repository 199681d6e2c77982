// Package server implements server inspection commands for coredockctl.
package server

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/cmd/coredockctl/cmdutil"
	"github.com/coredock/coredock/internal/cli/output"
	"github.com/coredock/coredock/pkg/apiclient"
)

// Cmd is the parent command for server operations.
var Cmd = &cobra.Command{
	Use:   "server",
	Short: "Inspect the connected server",
}

func init() {
	Cmd.AddCommand(infoCmd)
	Cmd.AddCommand(capabilitiesCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show server identity and capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cmdutil.GetClient()
		if err != nil {
			return err
		}

		info, err := client.ServerInfo()
		if err != nil {
			return fmt.Errorf("failed to fetch server info: %w", err)
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
			pairs := capabilityPairs(info.Capabilities)
			pairs = append([][2]string{{"Name", info.Name}}, pairs...)
			return output.SimpleTable(os.Stdout, pairs)
		}
	},
}

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Show debugger capabilities of the server host",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cmdutil.GetClient()
		if err != nil {
			return err
		}

		caps, err := client.Capabilities()
		if err != nil {
			return fmt.Errorf("failed to fetch capabilities: %w", err)
		}

		format, err := cmdutil.GetOutputFormatParsed()
		if err != nil {
			return err
		}

		switch format {
		case output.FormatJSON:
			return output.PrintJSON(os.Stdout, caps)
		case output.FormatYAML:
			return output.PrintYAML(os.Stdout, caps)
		default:
			return output.SimpleTable(os.Stdout, capabilityPairs(*caps))
		}
	},
}

func capabilityPairs(caps apiclient.Capabilities) [][2]string {
	return [][2]string{
		{"Platform", caps.Platform},
		{"Architecture", caps.Architecture},
		{"Alpine (musl)", cmdutil.BoolToYesNo(caps.IsAlpine)},
		{"Debugger", caps.DebuggerType},
		{"Runtime", cmdutil.EmptyOr(caps.RuntimeVersion, "unknown")},
		{"Hostname", caps.Hostname},
		{"Version", caps.Version},
	}
}
