package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"meridian-hq/callisto/pkg/cli"
)

var healthFlags struct {
	provider string
	timeout  time.Duration
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of configured providers",
	Long: `Probe each configured provider and report whether it is reachable.

Examples:
  # Check every configured provider
  callisto health

  # Check a single provider
  callisto health --provider openai`,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().StringVarP(&healthFlags.provider, "provider", "p", "", "check only this provider")
	healthCmd.Flags().DurationVar(&healthFlags.timeout, "timeout", 10*time.Second, "per-provider probe timeout")
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}

	reg := newRegistry()
	configs := cfg.ProviderConfigs()

	names := make([]string, 0, len(configs))
	for name := range configs {
		if healthFlags.provider != "" && name != healthFlags.provider {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		if healthFlags.provider != "" {
			return cli.NewConfigError("providers", fmt.Sprintf("provider %q not configured", healthFlags.provider))
		}
		return cli.NewConfigError("providers", "no providers configured")
	}
	sort.Strings(names)

	unhealthy := 0
	for _, name := range names {
		pc := configs[name]
		provider, err := reg.Create(pc.Type, pc)
		if err != nil {
			fmt.Printf("✗ %s: %v\n", name, err)
			unhealthy++
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), healthFlags.timeout)
		err = provider.CheckHealth(ctx)
		cancel()
		provider.Close()

		if err != nil {
			fmt.Printf("✗ %s: %v\n", name, err)
			unhealthy++
			continue
		}
		fmt.Printf("✓ %s\n", name)
	}

	if unhealthy > 0 {
		return cli.NewCommandError("health", fmt.Errorf("%d of %d providers unhealthy", unhealthy, len(names)))
	}
	return nil
}
