// Package context implements context management commands for coredockctl.
package context

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/cmd/coredockctl/cmdutil"
	"github.com/coredock/coredock/internal/cli/credentials"
	"github.com/coredock/coredock/internal/cli/prompt"
)

// Cmd is the parent command for context operations.
var Cmd = &cobra.Command{
	Use:   "context",
	Short: "Manage server contexts",
	Long: `Manage stored server contexts.

A context is a named server URL plus API key. Logging in creates or
updates a context; switching contexts changes which server the other
commands talk to.`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(useCmd)
	Cmd.AddCommand(renameCmd)
	Cmd.AddCommand(deleteCmd)
}

// contextEntry is the display shape for a stored context.
type contextEntry struct {
	Name      string `json:"name" yaml:"name"`
	ServerURL string `json:"serverUrl" yaml:"serverUrl"`
	LoggedIn  bool   `json:"loggedIn" yaml:"loggedIn"`
	Current   bool   `json:"current" yaml:"current"`
}

type contextList []contextEntry

func (l contextList) Headers() []string {
	return []string{"CURRENT", "NAME", "SERVER", "LOGGED IN"}
}

func (l contextList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		current := ""
		if e.Current {
			current = "*"
		}
		rows = append(rows, []string{current, e.Name, e.ServerURL, cmdutil.BoolToYesNo(e.LoggedIn)})
	}
	return rows
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return fmt.Errorf("failed to initialize credential store: %w", err)
		}

		names := store.ListContexts()
		sort.Strings(names)

		entries := make(contextList, 0, len(names))
		for _, name := range names {
			ctx, err := store.GetContext(name)
			if err != nil {
				continue
			}
			entries = append(entries, contextEntry{
				Name:      name,
				ServerURL: ctx.ServerURL,
				LoggedIn:  ctx.HasAPIKey(),
				Current:   name == store.GetCurrentContextName(),
			})
		}

		return cmdutil.PrintOutput(os.Stdout, entries, len(entries) == 0,
			"No contexts stored. Run 'coredockctl login' first.", entries)
	},
}

var useCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Switch to a different context",
	Long: `Switch the current context.

With no argument, pick one interactively from the stored contexts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return fmt.Errorf("failed to initialize credential store: %w", err)
		}

		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			names := store.ListContexts()
			if len(names) == 0 {
				return fmt.Errorf("no contexts stored. Run 'coredockctl login' first")
			}
			sort.Strings(names)
			name, err = prompt.SelectString("Select context", names)
			if err != nil {
				if prompt.IsAborted(err) {
					fmt.Println("Cancelled")
					return nil
				}
				return err
			}
		}

		if err := store.UseContext(name); err != nil {
			if errors.Is(err, credentials.ErrContextNotFound) {
				return fmt.Errorf("context %q not found", name)
			}
			return err
		}

		ctx, _ := store.GetCurrentContext()
		fmt.Printf("Switched to context %q (%s)\n", name, ctx.ServerURL)
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <old-name> <new-name>",
	Short: "Rename a context",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return fmt.Errorf("failed to initialize credential store: %w", err)
		}

		if err := store.RenameContext(args[0], args[1]); err != nil {
			if errors.Is(err, credentials.ErrContextNotFound) {
				return fmt.Errorf("context %q not found", args[0])
			}
			return err
		}

		fmt.Printf("Renamed context %q to %q\n", args[0], args[1])
		return nil
	},
}

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a context",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return fmt.Errorf("failed to initialize credential store: %w", err)
		}

		if _, err := store.GetContext(args[0]); err != nil {
			return fmt.Errorf("context %q not found", args[0])
		}

		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete context %q?", args[0]), deleteForce)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Cancelled")
			return nil
		}

		if err := store.DeleteContext(args[0]); err != nil {
			return err
		}

		fmt.Printf("Deleted context %q\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}
