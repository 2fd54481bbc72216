package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Default resilience parameters, overridable per adapter instance.
const (
	DefaultRetryAttempts       = 3
	DefaultTimeout             = 30 * time.Second
	DefaultHealthCheckInterval = 30 * time.Second
)

// BaseProvider is the shared implementation embedded by concrete adapters.
// It owns the HTTP client with connection pooling, the retry/backoff
// primitive, endpoint and auth header construction, the throttled health
// check cache, and per-instance request metrics.
//
// No adapter issues raw requests without going through DoRequest or
// OpenStream.
type BaseProvider struct {
	// config is the caller-owned, read-only configuration
	config ProviderConfig

	// client is the HTTP client with connection pooling
	client *http.Client

	// rawCheck is the adapter's unthrottled health probe
	rawCheck func(ctx context.Context) error

	// backoffUnit scales retry waits (one second in production)
	backoffUnit time.Duration

	// health is the circuit-breaker cache, guarded by healthMu
	health   HealthState
	healthMu sync.Mutex

	// metrics counters, guarded by metricsMu
	requests     int64
	errors       int64
	totalLatency time.Duration
	lastRequest  time.Time
	metricsMu    sync.Mutex

	// observers receive a record for every completed request
	observers []Observer

	stopHealthCheck    chan struct{}
	healthCheckStopped chan struct{}
	checkerStarted     bool
	closeOnce          sync.Once
}

// NewBaseProvider creates the shared base for a concrete adapter.
func NewBaseProvider(config ProviderConfig) *BaseProvider {
	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	// Per-attempt deadlines are enforced via contexts in DoRequest, not
	// a client-wide timeout, so streaming bodies stay open past the
	// connection phase.
	client := &http.Client{Transport: transport}

	p := &BaseProvider{
		config:      config,
		client:      client,
		backoffUnit: time.Second,
		health: HealthState{
			CheckInterval: config.HealthCheckInterval,
		},
		stopHealthCheck:    make(chan struct{}),
		healthCheckStopped: make(chan struct{}),
	}

	if p.health.CheckInterval <= 0 {
		p.health.CheckInterval = DefaultHealthCheckInterval
	}
	if config.Policy != nil {
		p.observers = config.Policy.Observers
	}

	return p
}

// Name returns the provider's configured name.
func (p *BaseProvider) Name() string {
	return p.config.Name
}

// Type returns the adapter family.
func (p *BaseProvider) Type() string {
	return p.config.Type
}

// Config returns the provider's configuration.
func (p *BaseProvider) Config() ProviderConfig {
	return p.config
}

// SetBackoffUnit rescales retry waits. Production code leaves the one
// second default; tests shrink it to keep retry sequences fast.
func (p *BaseProvider) SetBackoffUnit(d time.Duration) {
	if d > 0 {
		p.backoffUnit = d
	}
}

// retryAttempts returns the effective attempt budget.
func (p *BaseProvider) retryAttempts() int {
	if ep := p.config.Endpoint; ep != nil && ep.RetryAttempts > 0 {
		return ep.RetryAttempts
	}
	if p.config.RetryAttempts > 0 {
		return p.config.RetryAttempts
	}
	return DefaultRetryAttempts
}

// attemptTimeout returns the effective per-attempt timeout.
func (p *BaseProvider) attemptTimeout() time.Duration {
	if ep := p.config.Endpoint; ep != nil && ep.Timeout > 0 {
		return ep.Timeout
	}
	if p.config.Timeout > 0 {
		return p.config.Timeout
	}
	return DefaultTimeout
}

// DoRequest performs an HTTP request with retry and per-attempt timeout.
// Transport failures and retryable statuses are retried with exponential
// backoff (2s, 4s, 8s, ... between attempts); the last failure surfaces as
// a NetworkError. 401/403 become an AuthError and 429 a RateLimitError,
// neither retried here.
func (p *BaseProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	return p.do(ctx, method, url, body, headers, false)
}

// OpenStream performs an HTTP request whose response body is a long-lived
// stream. The per-attempt timeout covers only the connection and header
// phase; once headers arrive the deadline is lifted so the stream can run
// until a terminal condition.
func (p *BaseProvider) OpenStream(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	return p.do(ctx, method, url, body, headers, true)
}

func (p *BaseProvider) do(ctx context.Context, method, url string, body []byte, headers map[string]string, stream bool) (*http.Response, error) {
	attempts := p.retryAttempts()
	timeout := p.attemptTimeout()

	var (
		lastErr    error
		lastStatus int
		lastBody   string
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			// Wait 2^n units after the nth failed attempt.
			backoff := time.Duration(1<<uint(attempt-1)) * p.backoffUnit
			slog.Debug("retrying request",
				"provider", p.config.Name,
				"attempt", attempt,
				"max_attempts", attempts,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		// Each attempt gets an independent deadline; expiry aborts the
		// attempt, not the whole retry sequence.
		attemptCtx, cancel := context.WithCancel(ctx)
		timer := time.AfterFunc(timeout, cancel)

		req, err := http.NewRequestWithContext(attemptCtx, method, url, bodyReader)
		if err != nil {
			timer.Stop()
			cancel()
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := p.client.Do(req)
		if err != nil {
			timer.Stop()
			cancel()

			if ctx.Err() != nil {
				// Caller cancelled; not a retryable attempt failure.
				return nil, ctx.Err()
			}

			lastErr = err
			lastStatus = 0
			slog.Warn("request attempt failed",
				"provider", p.config.Name,
				"attempt", attempt,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if stream {
				// Lift the attempt deadline; the stream ends on its own
				// terminal condition or caller cancellation.
				timer.Stop()
			}
			resp.Body = &cancelOnClose{rc: resp.Body, timer: timer, cancel: cancel}
			return resp, nil
		}

		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		resp.Body.Close()
		timer.Stop()
		cancel()

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &AuthError{
				Provider: p.config.Name,
				Message:  string(errBody),
			}

		case http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Provider:   p.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errBody),
			}
		}

		lastStatus = resp.StatusCode
		lastBody = string(errBody)
		lastErr = nil
		slog.Warn("request returned error status",
			"provider", p.config.Name,
			"status", resp.StatusCode,
			"attempt", attempt,
		)
	}

	return nil, &NetworkError{
		Provider:   p.config.Name,
		StatusCode: lastStatus,
		Body:       lastBody,
		Attempts:   attempts,
		Cause:      lastErr,
	}
}

// doOnce performs a single request without the retry loop. Health probes
// use it so a flapping backend is not hammered with backoff sequences.
func (p *BaseProvider) doOnce(ctx context.Context, method, url string, headers map[string]string) (*http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout())

	req, err := http.NewRequestWithContext(reqCtx, method, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{rc: resp.Body, cancel: cancel}
	return resp, nil
}

// DoProbe performs a single, non-retried request and returns the response
// status code. Health probes use it so a flapping backend does not trigger
// retry storms.
func (p *BaseProvider) DoProbe(ctx context.Context, method, url string, headers map[string]string) (int, error) {
	resp, err := p.doOnce(ctx, method, url, headers)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// ObserveCompletion records counters for one completed request and notifies
// observers. Counters persist through failure; they are advisory and never
// drive control decisions.
func (p *BaseProvider) ObserveCompletion(start time.Time, model string, streamed bool, usage *TokenUsage, err error) {
	latency := time.Since(start)

	p.metricsMu.Lock()
	p.requests++
	if err != nil {
		p.errors++
	}
	p.totalLatency += latency
	p.lastRequest = time.Now()
	p.metricsMu.Unlock()

	rec := RequestRecord{
		ID:       uuid.NewString(),
		Provider: p.config.Name,
		Model:    model,
		Start:    start,
		Latency:  latency,
		Usage:    usage,
		Streamed: streamed,
		Err:      err,
	}
	for _, o := range p.observers {
		o.ObserveRequest(rec)
	}

	slog.Debug("request finished",
		"provider", p.config.Name,
		"request_id", rec.ID,
		"model", model,
		"latency", latency,
		"streamed", streamed,
		"error", err,
	)
}

// Metrics returns a snapshot of the adapter's counters.
func (p *BaseProvider) Metrics() MetricsSnapshot {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()

	snap := MetricsSnapshot{
		Requests:     p.requests,
		Errors:       p.errors,
		TotalLatency: p.totalLatency,
		LastRequest:  p.lastRequest,
	}
	if p.requests > 0 {
		snap.AvgLatency = p.totalLatency / time.Duration(p.requests)
	}
	return snap
}

// Close releases the adapter's resources.
func (p *BaseProvider) Close() error {
	p.closeOnce.Do(func() {
		close(p.stopHealthCheck)
		if p.checkerStarted {
			select {
			case <-p.healthCheckStopped:
				slog.Debug("health checker stopped", "provider", p.config.Name)
			case <-time.After(5 * time.Second):
				slog.Warn("health checker did not stop in time", "provider", p.config.Name)
			}
		}
		p.client.CloseIdleConnections()
		slog.Info("provider closed", "provider", p.config.Name)
	})
	return nil
}

// cancelOnClose releases an attempt's deadline resources when the response
// body is closed.
type cancelOnClose struct {
	rc     io.ReadCloser
	timer  *time.Timer
	cancel context.CancelFunc
}

func (c *cancelOnClose) Read(b []byte) (int, error) {
	return c.rc.Read(b)
}

func (c *cancelOnClose) Close() error {
	err := c.rc.Close()
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.cancel != nil {
		c.cancel()
	}
	return err
}

// parseRetryAfter parses a Retry-After header in either delay-seconds or
// HTTP-date form.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
