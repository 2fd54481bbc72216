package config

import "time"

// Default values for configuration fields.
const (
	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// Metrics defaults
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsNamespace     = "callisto"

	// Usage defaults
	DefaultUsagePath = "data/usage.db"

	// Discovery defaults
	DefaultDiscoverySchedule = "@every 5m"

	// Provider defaults
	DefaultProviderTimeout             = 30 * time.Second
	DefaultProviderRetryAttempts       = 3
	DefaultProviderHealthCheckInterval = 30 * time.Second
)

// ApplyDefaults fills zero-valued fields with their defaults. It is called
// automatically by LoadConfig.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Usage.Path == "" {
		cfg.Usage.Path = DefaultUsagePath
	}

	if cfg.Discovery.Schedule == "" {
		cfg.Discovery.Schedule = DefaultDiscoverySchedule
	}

	for name, p := range cfg.Providers {
		if p.Timeout == 0 {
			p.Timeout = DefaultProviderTimeout
		}
		if p.RetryAttempts == 0 {
			p.RetryAttempts = DefaultProviderRetryAttempts
		}
		if p.HealthCheckInterval == 0 {
			p.HealthCheckInterval = DefaultProviderHealthCheckInterval
		}
		cfg.Providers[name] = p
	}
}
