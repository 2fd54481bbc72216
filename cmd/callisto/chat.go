package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"meridian-hq/callisto/pkg/cli"
	"meridian-hq/callisto/pkg/providers"
	"meridian-hq/callisto/pkg/registry"
)

var chatFlags struct {
	provider string
	model    string
	system   string
	stream   bool
	timeout  time.Duration
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a chat message through a configured provider",
	Long: `Send a chat message and print the completion.

The message goes to the named provider, or to the configured default
provider when --provider is not given. If the provider fails to activate,
its configured fallback chain is tried in order.

Examples:
  # Use the default provider
  callisto chat "What is a goroutine?"

  # Use a specific provider and model
  callisto chat --provider local --model llama3 "Explain channels"

  # Stream the response as it is generated
  callisto chat --stream "Write a haiku about Go"

  # Set a system prompt
  callisto chat --system "Answer in one sentence." "What is CSP?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&chatFlags.provider, "provider", "p", "", "provider name (defaults to config default_provider)")
	chatCmd.Flags().StringVarP(&chatFlags.model, "model", "m", "", "override the provider's configured model")
	chatCmd.Flags().StringVar(&chatFlags.system, "system", "", "system prompt")
	chatCmd.Flags().BoolVarP(&chatFlags.stream, "stream", "s", false, "stream the response")
	chatCmd.Flags().DurationVar(&chatFlags.timeout, "timeout", 2*time.Minute, "overall request timeout")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}

	name := chatFlags.provider
	if name == "" {
		name = cfg.DefaultProvider
	}
	if name == "" {
		return cli.NewConfigError("default_provider", "no provider named and no default configured")
	}

	observers, closeObservers, err := buildObservers(cfg)
	if err != nil {
		return cli.NewCommandError("chat", err)
	}
	defer closeObservers()

	coordinator := registry.NewCoordinator(newRegistry(), providerConfigs(cfg, observers))

	ctx, cancel := context.WithTimeout(cli.SetupSignalHandler(), chatFlags.timeout)
	defer cancel()

	provider, err := coordinator.Activate(ctx, name)
	if err != nil {
		return cli.NewProviderError(name, "activate", err)
	}
	defer provider.Close()

	req := &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: strings.Join(args, " ")},
		},
		SystemPrompt: chatFlags.system,
		Model:        chatFlags.model,
	}

	if chatFlags.stream {
		return streamChat(ctx, provider, req)
	}

	resp, err := provider.SendMessage(ctx, req)
	if err != nil {
		return cli.NewProviderError(provider.Name(), "chat", err)
	}

	fmt.Println(resp.Content)
	if verbose && resp.Usage != nil {
		printUsage(resp.Usage)
	}
	return nil
}

func streamChat(ctx context.Context, provider providers.Provider, req *providers.ChatRequest) error {
	chunks, err := provider.StreamMessage(ctx, req)
	if err != nil {
		return cli.NewProviderError(provider.Name(), "stream", err)
	}

	var usage *providers.TokenUsage
	for chunk := range chunks {
		if chunk.Error != nil {
			fmt.Println()
			return cli.NewProviderError(provider.Name(), "stream", chunk.Error)
		}
		fmt.Print(chunk.Delta)
		if chunk.Done {
			usage = chunk.Usage
		}
	}
	fmt.Println()

	if verbose && usage != nil {
		printUsage(usage)
	}
	return nil
}

func printUsage(u *providers.TokenUsage) {
	fmt.Fprintf(os.Stderr, "tokens: prompt=%d completion=%d total=%d\n",
		u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}
