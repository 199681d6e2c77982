package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coredock/coredock/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the Coredock configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  coredock config validate

  # Validate specific config file
  coredock config validate --config /etc/coredock/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	// Load and validate configuration
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	// Determine path for display
	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	// Additional validation checks
	var warnings []string

	if cfg.API.Key == "" {
		warnings = append(warnings, "API key not configured - all requests will be accepted")
	}
	if cfg.Debugger.SOSPluginPath == "" {
		warnings = append(warnings, "SOS plugin path not configured - managed dump analysis relies on the debugger's own resolution")
	}

	// Print results
	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Storage root:    %s\n", cfg.Storage.Root)
	fmt.Printf("  API port:        %d\n", cfg.API.Port)
	fmt.Printf("  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
