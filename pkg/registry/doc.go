// Package registry manages the installable provider types: registration
// with last-wins semantics, probe-based discovery of which backends are
// reachable, construction with per-type default merging, and failover
// activation that walks a provider's configured fallback chain.
package registry
