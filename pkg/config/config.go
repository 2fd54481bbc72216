package config

import (
	"time"

	"meridian-hq/callisto/pkg/providers"
)

// Config is the root configuration structure for Callisto. It covers the
// provider inventory, discovery scheduling, usage recording, and
// telemetry settings.
type Config struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Usage contains the request usage ledger configuration.
	Usage UsageConfig `yaml:"usage"`

	// Discovery contains periodic provider discovery configuration.
	Discovery DiscoveryConfig `yaml:"discovery"`

	// DefaultProvider names the provider used when a command does not
	// select one explicitly.
	DefaultProvider string `yaml:"default_provider"`

	// Providers contains the named provider configurations. Keys are the
	// provider names referenced by commands and fallback chains.
	Providers map[string]ProviderSettings `yaml:"providers"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// Format selects the output encoding: text or json.
	// Default: text
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the metrics HTTP server.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Namespace prefixes all metric names.
	// Default: "callisto"
	Namespace string `yaml:"namespace"`
}

// UsageConfig contains the request usage ledger configuration.
type UsageConfig struct {
	// Enabled controls whether completed requests are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file for the ledger.
	// Default: "data/usage.db"
	Path string `yaml:"path"`
}

// DiscoveryConfig contains periodic provider discovery configuration.
type DiscoveryConfig struct {
	// Enabled controls whether discovery reruns on a schedule.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression for rediscovery (standard 5-field
	// syntax or @every shorthand).
	// Default: "@every 5m"
	Schedule string `yaml:"schedule"`
}

// ProviderSettings contains the configuration for a single named provider.
type ProviderSettings struct {
	// Type selects the adapter family: "generic" or "localmodel".
	Type string `yaml:"type"`

	// Model is the default model for requests through this provider.
	Model string `yaml:"model"`

	// APIKey is the credential sent as a bearer token.
	APIKey string `yaml:"api_key"`

	// BaseURL is a complete base address; it wins over Endpoint.
	BaseURL string `yaml:"base_url"`

	// Endpoint describes a local backend when BaseURL is not set.
	Endpoint *providers.LocalEndpoint `yaml:"endpoint"`

	// Fallbacks names the providers tried, in order, when this one fails
	// to activate.
	Fallbacks []string `yaml:"fallbacks"`

	// Timeout is the per-attempt request timeout.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// RetryAttempts is the total attempt budget per request.
	// Default: 3
	RetryAttempts int `yaml:"retry_attempts"`

	// HealthCheckPath overrides the adapter's health probe path.
	HealthCheckPath string `yaml:"health_check_path"`

	// HealthCheckInterval is the health cache window.
	// Default: 30s
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`

	// Rewrites redirects requests addressed to matching hosts, keeping
	// credentials out of proxied client contexts.
	Rewrites []providers.RewriteRule `yaml:"rewrites"`
}

// ToProviderConfig converts the settings into the provider layer's
// configuration shape, under the given name.
func (s ProviderSettings) ToProviderConfig(name string) providers.ProviderConfig {
	cfg := providers.ProviderConfig{
		Name:                name,
		Type:                s.Type,
		Model:               s.Model,
		APIKey:              s.APIKey,
		BaseURL:             s.BaseURL,
		Endpoint:            s.Endpoint,
		Timeout:             s.Timeout,
		RetryAttempts:       s.RetryAttempts,
		HealthCheckPath:     s.HealthCheckPath,
		HealthCheckInterval: s.HealthCheckInterval,
		Rewrites:            s.Rewrites,
	}
	if len(s.Fallbacks) > 0 {
		cfg.Policy = &providers.EnterprisePolicy{Fallbacks: s.Fallbacks}
	}
	return cfg
}

// ProviderConfigs converts every named provider into the provider layer's
// configuration shape.
func (c *Config) ProviderConfigs() map[string]providers.ProviderConfig {
	out := make(map[string]providers.ProviderConfig, len(c.Providers))
	for name, settings := range c.Providers {
		out[name] = settings.ToProviderConfig(name)
	}
	return out
}
