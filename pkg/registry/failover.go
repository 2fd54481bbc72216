package registry

import (
	"context"
	"fmt"
	"log/slog"

	"meridian-hq/callisto/pkg/providers"
)

// maxWalk bounds one failover walk regardless of how fallback lists are
// chained together.
const maxWalk = 16

// Coordinator activates named providers with automatic failover. Each
// named provider carries its configuration, including an optional
// fallback chain in its policy; when activation fails, the coordinator
// walks the chain and returns the first provider that activates.
type Coordinator struct {
	registry *Registry
	configs  map[string]providers.ProviderConfig
}

// NewCoordinator creates a failover coordinator over a registry and a set
// of named provider configurations.
func NewCoordinator(registry *Registry, configs map[string]providers.ProviderConfig) *Coordinator {
	return &Coordinator{
		registry: registry,
		configs:  configs,
	}
}

// Activate creates, authenticates, and reachability-checks the named
// provider. On failure it walks the provider's fallback chain, skipping
// the failed provider itself and any name already tried in this walk.
// When the whole chain fails, the primary provider's original error is
// returned; fallback errors are logged, not surfaced.
func (c *Coordinator) Activate(ctx context.Context, name string) (providers.Provider, error) {
	provider, primaryErr := c.activateOne(ctx, name)
	if primaryErr == nil {
		return provider, nil
	}

	slog.Warn("provider activation failed, trying fallbacks",
		"provider", name,
		"error", primaryErr,
	)

	visited := map[string]bool{name: true}
	queue := c.fallbacksOf(name)

	for steps := 0; len(queue) > 0 && steps < maxWalk; steps++ {
		candidate := queue[0]
		queue = queue[1:]

		if visited[candidate] {
			continue
		}
		visited[candidate] = true

		provider, err := c.activateOne(ctx, candidate)
		if err != nil {
			slog.Warn("fallback activation failed",
				"provider", candidate,
				"error", err,
			)
			// A failed fallback's own chain extends the walk.
			queue = append(queue, c.fallbacksOf(candidate)...)
			continue
		}

		slog.Info("failover succeeded",
			"requested", name,
			"activated", candidate,
		)
		return provider, nil
	}

	return nil, primaryErr
}

// activateOne runs the full activation sequence for one named provider:
// configuration lookup, construction, authentication, reachability.
func (c *Coordinator) activateOne(ctx context.Context, name string) (providers.Provider, error) {
	config, ok := c.configs[name]
	if !ok {
		return nil, fmt.Errorf("no configuration for provider %q", name)
	}
	if config.Type == "" {
		return nil, &providers.ConfigError{
			Provider: name, Field: "type",
			Message: "provider type is required",
		}
	}
	if config.Name == "" {
		config.Name = name
	}

	provider, err := c.registry.Create(config.Type, config)
	if err != nil {
		return nil, err
	}

	if err := provider.Authenticate(ctx); err != nil {
		_ = provider.Close()
		return nil, err
	}

	if !provider.IsAvailable(ctx) {
		health := provider.Health()
		_ = provider.Close()
		return nil, fmt.Errorf("provider %q is not reachable: %v", name, health.LastError)
	}

	return provider, nil
}

// fallbacksOf returns the configured fallback chain for a named provider.
func (c *Coordinator) fallbacksOf(name string) []string {
	config, ok := c.configs[name]
	if !ok || config.Policy == nil {
		return nil
	}
	return config.Policy.Fallbacks
}
