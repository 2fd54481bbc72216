package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meridian-hq/callisto/pkg/config"
	"meridian-hq/callisto/pkg/providers"
)

// ProviderMetrics tracks provider request and health metrics.
//
// Metrics:
//   - callisto_provider_requests_total: requests per provider and model
//   - callisto_provider_errors_total: failed requests per provider
//   - callisto_provider_latency_seconds: request latency
//   - callisto_provider_tokens_total: token usage by direction
//   - callisto_provider_health: health status (1=healthy, 0=unhealthy)
//
// ProviderMetrics implements providers.Observer, so it plugs directly
// into an adapter's observer list.
type ProviderMetrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
	health   *prometheus.GaugeVec
}

// NewProviderMetrics creates and registers provider metrics on a fresh
// registry.
func NewProviderMetrics(cfg config.MetricsConfig) *ProviderMetrics {
	pm := &ProviderMetrics{
		registry: prometheus.NewRegistry(),

		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of requests per provider and model",
			},
			[]string{"provider", "model", "streamed"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_errors_total",
				Help:      "Total number of failed requests per provider",
			},
			[]string{"provider", "model"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_latency_seconds",
				Help:      "Provider request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider", "model"},
		),

		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_tokens_total",
				Help:      "Total token usage per provider by direction",
			},
			[]string{"provider", "model", "direction"},
		),

		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "provider_health",
				Help:      "Provider health status (1=healthy, 0=unhealthy)",
			},
			[]string{"provider"},
		),
	}

	pm.registry.MustRegister(
		pm.requests,
		pm.errors,
		pm.latency,
		pm.tokens,
		pm.health,
	)

	return pm
}

// ObserveRequest records one completed request. It implements
// providers.Observer.
func (pm *ProviderMetrics) ObserveRequest(rec providers.RequestRecord) {
	streamed := "false"
	if rec.Streamed {
		streamed = "true"
	}

	pm.requests.WithLabelValues(rec.Provider, rec.Model, streamed).Inc()
	pm.latency.WithLabelValues(rec.Provider, rec.Model).Observe(rec.Latency.Seconds())

	if rec.Err != nil {
		pm.errors.WithLabelValues(rec.Provider, rec.Model).Inc()
	}
	if rec.Usage != nil {
		pm.tokens.WithLabelValues(rec.Provider, rec.Model, "prompt").Add(float64(rec.Usage.PromptTokens))
		pm.tokens.WithLabelValues(rec.Provider, rec.Model, "completion").Add(float64(rec.Usage.CompletionTokens))
	}
}

// UpdateHealth records a provider's health status.
func (pm *ProviderMetrics) UpdateHealth(provider string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	pm.health.WithLabelValues(provider).Set(value)
}

// Handler returns the HTTP handler serving this registry in the
// Prometheus exposition format.
func (pm *ProviderMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (pm *ProviderMetrics) Registry() *prometheus.Registry {
	return pm.registry
}
