package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/internal/cli/credentials"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out from the current server",
	Long: `Remove the stored API key for the current context.

The context itself is kept so a later login to the same server
reuses it. Use 'coredockctl context delete' to remove a context
entirely.`,
	RunE: runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	name := store.GetCurrentContextName()
	if err := store.ClearCurrentContext(); err != nil {
		if errors.Is(err, credentials.ErrNoCurrentContext) {
			fmt.Println("Not logged in")
			return nil
		}
		return err
	}

	fmt.Printf("Logged out from context %q\n", name)
	return nil
}
