package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"meridian-hq/callisto/pkg/providers"
)

// Factory constructs a provider from a resolved configuration.
type Factory func(config providers.ProviderConfig) (providers.Provider, error)

// Probe reports whether a provider type's backend is reachable on this
// machine without constructing a full provider. Probes may panic; the
// registry treats a panic as "not available".
type Probe func(ctx context.Context) error

// Registration describes one installable provider type.
type Registration struct {
	// Name is the provider type key ("generic", "localmodel", ...)
	Name string

	// Factory constructs the provider
	Factory Factory

	// Probe is an optional availability check used by Discover
	Probe Probe

	// DefaultConfig supplies defaults merged under the caller's config
	DefaultConfig providers.ProviderConfig
}

// Registry maps provider type names to registrations. Registering a name
// twice replaces the earlier entry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// Register installs a provider type. The last registration for a name wins.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return fmt.Errorf("registration requires a name")
	}
	if reg.Factory == nil {
		return fmt.Errorf("registration %q requires a factory", reg.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[reg.Name]; exists {
		slog.Debug("replacing provider registration", "type", reg.Name)
	}
	r.entries[reg.Name] = reg
	return nil
}

// Names returns all registered provider type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDefaultConfig replaces the default config merged under caller
// configs for a registered type. It reports whether the type was
// registered. Used by config hot reload to re-apply provider settings
// without re-registering factories.
func (r *Registry) SetDefaultConfig(name string, config providers.ProviderConfig) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.entries[name]
	if !ok {
		return false
	}
	reg.DefaultConfig = config
	r.entries[name] = reg
	return true
}

// Lookup returns the registration for a provider type.
func (r *Registry) Lookup(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[name]
	return reg, ok
}

// Discover probes every registered type and returns the names whose
// backends are reachable, sorted. Types without a probe are always
// included. A probe that fails, or panics, excludes its type without
// aborting discovery.
func (r *Registry) Discover(ctx context.Context) []string {
	r.mu.RLock()
	entries := make([]Registration, 0, len(r.entries))
	for _, reg := range r.entries {
		entries = append(entries, reg)
	}
	r.mu.RUnlock()

	var available []string
	for _, reg := range entries {
		if runProbe(ctx, reg) {
			available = append(available, reg.Name)
		}
	}
	sort.Strings(available)
	return available
}

// runProbe runs one registration's probe, converting a panic into a
// negative result.
func runProbe(ctx context.Context, reg Registration) (ok bool) {
	if reg.Probe == nil {
		return true
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("provider probe panicked",
				"type", reg.Name,
				"panic", rec,
			)
			ok = false
		}
	}()

	if err := reg.Probe(ctx); err != nil {
		slog.Debug("provider probe failed", "type", reg.Name, "error", err)
		return false
	}
	return true
}

// Create constructs a provider of the given type, merging the
// registration's defaults under the caller's configuration: a zero field
// in config takes the registered default.
func (r *Registry) Create(name string, config providers.ProviderConfig) (providers.Provider, error) {
	reg, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider type %q (registered: %v)", name, r.Names())
	}

	merged := mergeConfig(config, reg.DefaultConfig)
	provider, err := reg.Factory(merged)
	if err != nil {
		return nil, fmt.Errorf("create provider %q: %w", name, err)
	}
	return provider, nil
}

// mergeConfig fills zero fields of config from defaults.
func mergeConfig(config, defaults providers.ProviderConfig) providers.ProviderConfig {
	if config.Name == "" {
		config.Name = defaults.Name
	}
	if config.Type == "" {
		config.Type = defaults.Type
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.APIKey == "" {
		config.APIKey = defaults.APIKey
	}
	if config.Endpoint == nil {
		config.Endpoint = defaults.Endpoint
	}
	if config.Policy == nil {
		config.Policy = defaults.Policy
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RetryAttempts == 0 {
		config.RetryAttempts = defaults.RetryAttempts
	}
	if config.HealthCheckPath == "" {
		config.HealthCheckPath = defaults.HealthCheckPath
	}
	if config.HealthCheckInterval == 0 {
		config.HealthCheckInterval = defaults.HealthCheckInterval
	}
	if len(config.Rewrites) == 0 {
		config.Rewrites = defaults.Rewrites
	}
	return config
}

// defaultRegistry backs the package-level convenience functions.
var defaultRegistry = New()

// Default returns the shared package-level registry.
func Default() *Registry {
	return defaultRegistry
}

// Register installs a provider type in the shared registry.
func Register(reg Registration) error {
	return defaultRegistry.Register(reg)
}

// Discover probes the shared registry.
func Discover(ctx context.Context) []string {
	return defaultRegistry.Discover(ctx)
}

// Create constructs a provider from the shared registry.
func Create(name string, config providers.ProviderConfig) (providers.Provider, error) {
	return defaultRegistry.Create(name, config)
}
