package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"meridian-hq/callisto/pkg/cli"
	"meridian-hq/callisto/pkg/providers"
	"meridian-hq/callisto/pkg/providers/localmodel"
)

var modelsFlags struct {
	provider string
	format   string
	timeout  time.Duration
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage models on a local runtime",
	Long: `Manage models installed on a local model runtime.

These commands require a provider of type "localmodel". When --provider is
not given, the first configured localmodel provider is used.

Examples:
  # List installed models
  callisto models list

  # Pull a model onto the runtime
  callisto models pull llama3

  # Switch the active model, pulling it first if missing
  callisto models switch mistral`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed models",
	RunE:  runModelsList,
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull [model]",
	Short: "Pull a model onto the runtime",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsPull,
}

var modelsSwitchCmd = &cobra.Command{
	Use:   "switch [model]",
	Short: "Switch the active model, pulling it first if missing",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsSwitch,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd, modelsPullCmd, modelsSwitchCmd)

	modelsCmd.PersistentFlags().StringVarP(&modelsFlags.provider, "provider", "p", "", "localmodel provider name")
	modelsCmd.PersistentFlags().StringVar(&modelsFlags.format, "format", "text", "output format: text, json")
	modelsCmd.PersistentFlags().DurationVar(&modelsFlags.timeout, "timeout", 10*time.Minute, "operation timeout (pulls can be slow)")
}

// localProvider resolves and activates the target localmodel provider.
func localProvider() (*localmodel.Provider, error) {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return nil, err
	}

	name := modelsFlags.provider
	if name == "" {
		for candidate, settings := range cfg.Providers {
			if settings.Type == providers.TypeLocalModel {
				name = candidate
				break
			}
		}
	}
	if name == "" {
		return nil, cli.NewConfigError("providers", "no localmodel provider configured")
	}

	settings, ok := cfg.Providers[name]
	if !ok {
		return nil, cli.NewConfigError("providers", fmt.Sprintf("provider %q not configured", name))
	}
	if settings.Type != providers.TypeLocalModel {
		return nil, cli.NewConfigError("providers", fmt.Sprintf("provider %q is type %q, want localmodel", name, settings.Type))
	}

	return localmodel.New(settings.ToProviderConfig(name))
}

func runModelsList(cmd *cobra.Command, args []string) error {
	provider, err := localProvider()
	if err != nil {
		return err
	}
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), modelsFlags.timeout)
	defer cancel()

	models, err := provider.LoadAvailableModels(ctx)
	if err != nil {
		return cli.NewProviderError(provider.Name(), "list models", err)
	}

	if modelsFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, models)
	}

	if len(models) == 0 {
		fmt.Println("no models installed")
		return nil
	}
	active := provider.Model()
	for _, m := range models {
		marker := " "
		if m == active {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, m)
	}
	return nil
}

func runModelsPull(cmd *cobra.Command, args []string) error {
	provider, err := localProvider()
	if err != nil {
		return err
	}
	defer provider.Close()

	ctx, cancel := context.WithTimeout(cli.SetupSignalHandler(), modelsFlags.timeout)
	defer cancel()

	name := args[0]
	fmt.Printf("Pulling %s...\n", name)
	if err := provider.PullModel(ctx, name); err != nil {
		return cli.NewProviderError(provider.Name(), "pull "+name, err)
	}
	fmt.Printf("✓ Pulled %s\n", name)
	return nil
}

func runModelsSwitch(cmd *cobra.Command, args []string) error {
	provider, err := localProvider()
	if err != nil {
		return err
	}
	defer provider.Close()

	ctx, cancel := context.WithTimeout(cli.SetupSignalHandler(), modelsFlags.timeout)
	defer cancel()

	name := args[0]
	if err := provider.SwitchModel(ctx, name); err != nil {
		return cli.NewProviderError(provider.Name(), "switch to "+name, err)
	}
	fmt.Printf("✓ Active model is now %s\n", name)
	return nil
}
