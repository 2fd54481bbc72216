package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"meridian-hq/callisto/pkg/cli"
	"meridian-hq/callisto/pkg/usage"
)

var usageFlags struct {
	since  time.Duration
	format string
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarize recorded provider usage",
	Long: `Print per-provider request counts, errors, token totals, and average
latency from the usage ledger.

Examples:
  # Summarize the last 24 hours
  callisto usage

  # Summarize the last week as JSON
  callisto usage --since 168h --format json`,
	RunE: runUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.Flags().DurationVar(&usageFlags.since, "since", 24*time.Hour, "look-back window")
	usageCmd.Flags().StringVar(&usageFlags.format, "format", "text", "output format: text, json")
}

func runUsage(cmd *cobra.Command, args []string) error {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	if !cfg.Usage.Enabled {
		return cli.NewConfigError("usage.enabled", "usage recording is disabled")
	}

	ledger, err := usage.Open(cfg.Usage.Path)
	if err != nil {
		return cli.NewCommandError("usage", err)
	}
	defer ledger.Close()

	rows, err := ledger.Summarize(time.Now().Add(-usageFlags.since))
	if err != nil {
		return cli.NewCommandError("usage", err)
	}

	if usageFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, rows)
	}

	if len(rows) == 0 {
		fmt.Println("no usage recorded in window")
		return nil
	}
	fmt.Printf("%-20s %10s %8s %12s %12s\n", "PROVIDER", "REQUESTS", "ERRORS", "TOKENS", "AVG LATENCY")
	for _, row := range rows {
		fmt.Printf("%-20s %10d %8d %12d %9.0f ms\n",
			row.Provider, row.Requests, row.Errors, row.TotalTokens, row.AvgLatencyMS)
	}
	return nil
}
