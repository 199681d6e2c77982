// Package cmdutil holds shared plumbing for coredockctl commands: global
// flag state, client construction, and output helpers.
package cmdutil

import (
	"fmt"
	"io"
	"os"

	"github.com/coredock/coredock/internal/cli/credentials"
	"github.com/coredock/coredock/internal/cli/output"
	"github.com/coredock/coredock/pkg/apiclient"
)

// GlobalFlags carries the persistent flag values synced by the root
// command before every run.
type GlobalFlags struct {
	ServerURL string
	APIKey    string
	Output    string
	NoColor   bool
	Verbose   bool
}

// Flags is the process-wide flag state.
var Flags GlobalFlags

// GetClient builds an API client from flags, environment, and the stored
// context, in that order of precedence.
func GetClient() (*apiclient.Client, error) {
	serverURL := Flags.ServerURL
	apiKey := Flags.APIKey

	if apiKey == "" {
		apiKey = os.Getenv("COREDOCK_API_KEY")
	}

	if serverURL == "" || apiKey == "" {
		store, err := credentials.NewStore()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize credential store: %w", err)
		}
		ctx, err := store.GetCurrentContext()
		if err == nil {
			if serverURL == "" {
				serverURL = ctx.ServerURL
			}
			if apiKey == "" {
				apiKey = ctx.APIKey
			}
		}
	}

	if serverURL == "" {
		return nil, fmt.Errorf("no server configured. Run 'coredockctl login' or pass --server")
	}

	client := apiclient.New(serverURL)
	if apiKey != "" {
		client.SetAPIKey(apiKey)
	}
	return client, nil
}

// GetServerURL resolves the server URL the same way GetClient does.
func GetServerURL() (string, error) {
	if Flags.ServerURL != "" {
		return Flags.ServerURL, nil
	}
	store, err := credentials.NewStore()
	if err != nil {
		return "", fmt.Errorf("failed to initialize credential store: %w", err)
	}
	ctx, err := store.GetCurrentContext()
	if err != nil || ctx.ServerURL == "" {
		return "", fmt.Errorf("no server configured. Run 'coredockctl login' or pass --server")
	}
	return ctx.ServerURL, nil
}

// GetOutputFormatParsed parses the --output flag.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// PrintOutput renders data in the selected format. Table output uses the
// given renderer; empty collections print the message instead.
func PrintOutput(w io.Writer, data any, empty bool, emptyMsg string, table output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if empty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, table)
	}
}

// EmptyOr returns fallback when s is empty, s otherwise.
func EmptyOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// BoolToYesNo renders a bool for table cells.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// FormatBytes renders a byte count for table cells.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for q := n / unit; q >= unit; q /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
