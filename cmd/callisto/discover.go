package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"meridian-hq/callisto/pkg/cli"
	"meridian-hq/callisto/pkg/config"
	"meridian-hq/callisto/pkg/registry"
)

var discoverFlags struct {
	watch bool
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover available provider types",
	Long: `Probe registered provider types and print the ones that respond.

With --watch, probing repeats on the configured discovery schedule and
changes are printed until interrupted.

Examples:
  # Probe once
  callisto discover

  # Keep probing on the configured schedule
  callisto discover --watch`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().BoolVarP(&discoverFlags.watch, "watch", "w", false, "re-probe on the configured discovery schedule")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}

	reg := newRegistry()
	applyProviderDefaults(reg, cfg)

	if !discoverFlags.watch {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		printAvailable(reg.Discover(ctx))
		return nil
	}

	scheduler := registry.NewScheduler(reg, func(available []string) {
		printAvailable(available)
	})

	ctx := cli.SetupSignalHandler()
	if err := scheduler.Start(ctx, cfg.Discovery.Schedule); err != nil {
		return cli.NewCommandError("discover", err)
	}
	defer scheduler.Stop()

	// Reload config edits while watching so changed provider settings
	// feed the next discovery round without a restart.
	if watcher, werr := config.NewWatcher(cfgFile); werr == nil {
		defer watcher.Stop()
		go watcher.Watch(ctx, func(updated *config.Config) {
			applyProviderDefaults(reg, updated)
			slog.Info("provider configuration re-applied", "providers", len(updated.Providers))
		})
	}

	fmt.Printf("Watching on schedule %q, press Ctrl+C to stop\n", cfg.Discovery.Schedule)
	<-ctx.Done()
	return nil
}

func printAvailable(available []string) {
	if len(available) == 0 {
		fmt.Println("no provider types available")
		return
	}
	fmt.Printf("available: %s\n", strings.Join(available, ", "))
}
