package providers

import (
	"context"
	"log/slog"
	"time"
)

// SetHealthCheck wires the adapter's raw health probe into the base.
// Concrete adapters call this once at construction; the throttled wrapper
// and the background checker both dispatch through it.
func (p *BaseProvider) SetHealthCheck(fn func(ctx context.Context) error) {
	p.rawCheck = fn
}

// CheckHealth performs one raw, unthrottled probe. The default probe is a
// GET against the base address; adapters override it via SetHealthCheck.
func (p *BaseProvider) CheckHealth(ctx context.Context) error {
	if p.rawCheck != nil {
		return p.rawCheck(ctx)
	}

	resp, err := p.doOnce(ctx, "GET", p.BuildEndpoint(""), p.AuthHeaders())
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// IsAvailable is the circuit-breaker-cached wrapper around CheckHealth.
// A call within the configured interval returns the cached value without
// network I/O; outside it, the cache is refreshed. Probe failures are
// cached as false and never surfaced.
func (p *BaseProvider) IsAvailable(ctx context.Context) bool {
	p.healthMu.Lock()
	interval := p.health.CheckInterval
	if !p.health.LastCheck.IsZero() && time.Since(p.health.LastCheck) < interval {
		cached := p.health.Healthy
		p.healthMu.Unlock()
		return cached
	}
	p.healthMu.Unlock()

	return p.refreshHealth(ctx)
}

// refreshHealth runs the raw probe and re-caches the result regardless of
// the throttle window.
func (p *BaseProvider) refreshHealth(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := p.CheckHealth(checkCtx)
	latency := time.Since(start)

	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	p.health.LastCheck = time.Now()
	p.health.LastError = err

	if err != nil {
		p.health.Healthy = false
		p.health.ConsecutiveFailures++
		slog.Warn("health check failed",
			"provider", p.config.Name,
			"consecutive_failures", p.health.ConsecutiveFailures,
			"latency", latency,
			"error", err,
		)
		return false
	}

	if p.health.ConsecutiveFailures > 0 {
		slog.Info("provider recovered",
			"provider", p.config.Name,
			"previous_failures", p.health.ConsecutiveFailures,
		)
	}
	p.health.Healthy = true
	p.health.ConsecutiveFailures = 0
	return true
}

// Health returns the adapter's cached health state.
func (p *BaseProvider) Health() HealthState {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()
	return p.health
}

// StartHealthChecker launches a background loop that refreshes the health
// cache periodically. Unhealthy providers are rechecked with a
// failure-scaled backoff to reduce load. The loop stops when the context
// is cancelled or the provider is closed.
func (p *BaseProvider) StartHealthChecker(ctx context.Context) {
	p.checkerStarted = true
	go p.runHealthChecker(ctx)
}

func (p *BaseProvider) runHealthChecker(ctx context.Context) {
	defer close(p.healthCheckStopped)

	p.healthMu.Lock()
	interval := p.health.CheckInterval
	p.healthMu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("health checker started",
		"provider", p.config.Name,
		"interval", interval,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("health checker stopped (context cancelled)", "provider", p.config.Name)
			return

		case <-p.stopHealthCheck:
			slog.Debug("health checker stopped (provider closed)", "provider", p.config.Name)
			return

		case <-ticker.C:
			healthy := p.refreshHealth(ctx)

			if !healthy {
				state := p.Health()
				ticker.Reset(checkBackoff(state.ConsecutiveFailures, interval))
			} else {
				ticker.Reset(interval)
			}
		}
	}
}

// checkBackoff scales the recheck interval by consecutive failures, capped
// at 10x the base interval and five minutes.
func checkBackoff(consecutiveFailures int, baseInterval time.Duration) time.Duration {
	if consecutiveFailures <= 0 {
		return baseInterval
	}

	multiplier := 1 << uint(consecutiveFailures)
	if multiplier > 10 {
		multiplier = 10
	}

	backoff := baseInterval * time.Duration(multiplier)
	if max := 5 * time.Minute; backoff > max {
		backoff = max
	}
	return backoff
}
