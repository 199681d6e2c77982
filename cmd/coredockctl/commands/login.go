package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/internal/cli/credentials"
	"github.com/coredock/coredock/internal/cli/prompt"
	"github.com/coredock/coredock/pkg/apiclient"
)

var loginAPIKey string

var loginCmd = &cobra.Command{
	Use:   "login <server-url>",
	Short: "Log in to a Coredock server",
	Long: `Authenticate against a Coredock server and store the connection
as the current context.

The API key is taken from --api-key when given, otherwise you are
prompted for it. The connection is verified against the server's
health endpoint before the context is saved.

Examples:
  # Log in with an interactive API key prompt
  coredockctl login http://localhost:5000

  # Log in non-interactively
  coredockctl login http://coredock.internal:5000 --api-key $COREDOCK_API_KEY`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginAPIKey, "api-key", "", "API key for the server")
}

func runLogin(cmd *cobra.Command, args []string) error {
	serverURL := args[0]

	apiKey := loginAPIKey
	if apiKey == "" {
		var err error
		apiKey, err = prompt.Password("API key")
		if err != nil {
			if prompt.IsAborted(err) {
				return fmt.Errorf("login cancelled")
			}
			return err
		}
	}

	// Verify the connection before storing anything
	client := apiclient.New(serverURL).WithAPIKey(apiKey)

	healthResp, err := client.Health()
	if err != nil {
		return fmt.Errorf("cannot reach server at %s: %w", serverURL, err)
	}
	if healthResp.Status != "healthy" {
		return fmt.Errorf("server at %s reports status %q", serverURL, healthResp.Status)
	}

	// An authenticated endpoint confirms the key actually works
	info, err := client.ServerInfo()
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsAuthError() {
			return fmt.Errorf("authentication failed: invalid API key")
		}
		return fmt.Errorf("failed to verify API key: %w", err)
	}

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	contextName := credentials.GenerateContextName(serverURL)
	if err := store.SetContext(contextName, &credentials.Context{
		ServerURL: serverURL,
		APIKey:    apiKey,
	}); err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}

	fmt.Printf("Logged in to %s (%s, %s/%s)\n", serverURL, info.Name, info.Platform, info.Architecture)
	fmt.Printf("Context %q saved as current\n", contextName)
	return nil
}
