package main

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"meridian-hq/callisto/pkg/cli"
	"meridian-hq/callisto/pkg/config"
	"meridian-hq/callisto/pkg/providers"
	"meridian-hq/callisto/pkg/providers/generic"
	"meridian-hq/callisto/pkg/providers/localmodel"
	"meridian-hq/callisto/pkg/registry"
	"meridian-hq/callisto/pkg/telemetry/logging"
	"meridian-hq/callisto/pkg/telemetry/metrics"
	"meridian-hq/callisto/pkg/usage"
)

// loadRuntimeConfig loads the config file, applies environment overrides,
// and installs the configured logger. The --verbose flag forces debug level.
func loadRuntimeConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	logCfg := cfg.Logging
	if verbose {
		logCfg.Level = "debug"
	}
	if _, err := logging.Setup(logCfg); err != nil {
		return nil, cli.NewConfigError("logging", err.Error())
	}

	return cfg, nil
}

// newRegistry returns a registry with the built-in adapter families
// registered. The localmodel probe dials the default runtime port so that
// discovery reflects whether a local runtime is actually up.
func newRegistry() *registry.Registry {
	reg := registry.New()

	reg.Register(registry.Registration{
		Name: providers.TypeGeneric,
		Factory: func(cfg providers.ProviderConfig) (providers.Provider, error) {
			return generic.New(cfg)
		},
	})

	reg.Register(registry.Registration{
		Name: providers.TypeLocalModel,
		Factory: func(cfg providers.ProviderConfig) (providers.Provider, error) {
			return localmodel.New(cfg)
		},
		Probe: func(ctx context.Context) error {
			addr := net.JoinHostPort(localmodel.DefaultHost, fmt.Sprintf("%d", localmodel.DefaultPort))
			d := net.Dialer{Timeout: 500 * time.Millisecond}
			conn, err := d.DialContext(ctx, "tcp", addr)
			if err != nil {
				return err
			}
			return conn.Close()
		},
	})

	return reg
}

// buildObservers constructs the request observers enabled by config: the
// Prometheus exporter and the SQLite usage ledger. The returned closer
// flushes and releases the ledger.
func buildObservers(cfg *config.Config) ([]providers.Observer, func(), error) {
	var observers []providers.Observer
	closer := func() {}

	if cfg.Metrics.Enabled {
		observers = append(observers, metrics.NewProviderMetrics(cfg.Metrics))
	}

	if cfg.Usage.Enabled {
		ledger, err := usage.Open(cfg.Usage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open usage ledger: %w", err)
		}
		observers = append(observers, ledger)
		closer = func() { ledger.Close() }
	}

	return observers, closer, nil
}

// applyProviderDefaults re-seeds the registry's per-type default configs
// from the file config. The default provider's settings win for its type;
// otherwise the first configured provider of a type (by name) supplies
// the defaults.
func applyProviderDefaults(reg *registry.Registry, cfg *config.Config) {
	configs := cfg.ProviderConfigs()

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	seeded := make(map[string]bool)
	if pc, ok := configs[cfg.DefaultProvider]; ok && pc.Type != "" {
		reg.SetDefaultConfig(pc.Type, pc)
		seeded[pc.Type] = true
	}
	for _, name := range names {
		pc := configs[name]
		if pc.Type == "" || seeded[pc.Type] {
			continue
		}
		reg.SetDefaultConfig(pc.Type, pc)
		seeded[pc.Type] = true
	}
}

// providerConfigs converts the file config into provider configs with the
// given observers attached to every provider's policy.
func providerConfigs(cfg *config.Config, observers []providers.Observer) map[string]providers.ProviderConfig {
	configs := cfg.ProviderConfigs()
	if len(observers) == 0 {
		return configs
	}
	for name, pc := range configs {
		if pc.Policy == nil {
			pc.Policy = &providers.EnterprisePolicy{}
		}
		pc.Policy.Observers = append(pc.Policy.Observers, observers...)
		configs[name] = pc
	}
	return configs
}
