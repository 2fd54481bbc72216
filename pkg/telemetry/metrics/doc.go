// Package metrics exposes provider request, token, and health metrics in
// the Prometheus exposition format. ProviderMetrics implements
// providers.Observer so it attaches to adapters without extra wiring.
package metrics
