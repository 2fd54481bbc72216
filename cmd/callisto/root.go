package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "callisto",
	Short: "Callisto - unified chat-completion provider gateway",
	Long: `Callisto is a provider gateway for chat-completion backends.

It abstracts OpenAI-compatible HTTP APIs and local model runtimes behind a
single provider contract, providing:
  - Unified chat requests with retry and exponential backoff
  - Streaming completions (SSE and NDJSON)
  - Health-checked failover across configured providers
  - Local model management (list, pull, switch)
  - Request metrics and a persistent usage ledger`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
