package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample Coredock configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/coredock/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  coredock init

  # Initialize with custom path
  coredock init --config /etc/coredock/config.yaml

  # Force overwrite existing config
  coredock init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s\n\n"+
				"Use --force to overwrite it", configPath)
		}
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set storage.root to a writable directory for dumps and symbols")
	fmt.Println("  2. Start the server with: coredock start")
	fmt.Printf("  3. Or specify custom config: coredock start --config %s\n", configPath)
	fmt.Println("\nSecurity note:")
	fmt.Println("  The API accepts all requests until an API key is configured.")
	fmt.Println("  Set one via the config file or an environment variable:")
	fmt.Println("    export COREDOCK_API_KEY=$(openssl rand -hex 32)")

	return nil
}
