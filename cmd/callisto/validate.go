package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"meridian-hq/callisto/pkg/cli"
	"meridian-hq/callisto/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file without contacting any provider.

All validation problems are reported at once, one per line.

Examples:
  # Validate the default config file
  callisto validate

  # Validate a specific file
  callisto validate --config /etc/callisto/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	_, err := config.LoadConfig(cfgFile)
	if err == nil {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	var verr config.ValidationError
	if errors.As(err, &verr) {
		fmt.Printf("✗ Configuration invalid (%d problems):\n", len(verr.Errors))
		for _, fe := range verr.Errors {
			fmt.Printf("  - %s: %s\n", fe.Field, fe.Message)
		}
		return cli.NewConfigError("", fmt.Sprintf("%d validation errors", len(verr.Errors)))
	}
	return cli.NewConfigError("", err.Error())
}
