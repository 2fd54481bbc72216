package generic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"meridian-hq/callisto/pkg/providers"
)

// Default dialect paths and the hosted reference API domain.
const (
	DefaultChatPath   = "/v1/chat/completions"
	DefaultHealthPath = "/health"

	// HostedAPIDomain is the hosted reference backend. It exposes no
	// probe endpoint, so health checks against it short-circuit to
	// healthy without network I/O.
	HostedAPIDomain = "api.openai.com"
)

// Provider adapts any JSON-over-HTTP chat backend through the pluggable
// transform pipeline. Without custom transformers it speaks the
// OpenAI-compatible dialect, including "data: <json>" SSE streaming
// terminated by a [DONE] sentinel.
type Provider struct {
	*providers.BaseProvider

	chatPath   string
	healthPath string
	hosted     map[string]bool

	requestT  RequestTransformer
	responseT ResponseTransformer
	streamT   StreamTransformer
}

// Option customizes a generic provider.
type Option func(*Provider)

// WithChatPath overrides the chat completion path.
func WithChatPath(path string) Option {
	return func(p *Provider) { p.chatPath = path }
}

// WithHealthPath overrides the health probe path.
func WithHealthPath(path string) Option {
	return func(p *Provider) { p.healthPath = path }
}

// WithHostedDomain marks an additional domain as hosted: assumed healthy
// without a probe.
func WithHostedDomain(domain string) Option {
	return func(p *Provider) { p.hosted[domain] = true }
}

// WithRequestTransformer installs a custom request strategy.
func WithRequestTransformer(t RequestTransformer) Option {
	return func(p *Provider) { p.requestT = t }
}

// WithResponseTransformer installs a custom response strategy.
func WithResponseTransformer(t ResponseTransformer) Option {
	return func(p *Provider) { p.responseT = t }
}

// WithStreamTransformer installs a custom stream-chunk strategy.
func WithStreamTransformer(t StreamTransformer) Option {
	return func(p *Provider) { p.streamT = t }
}

// New creates a generic HTTP-compatible provider.
func New(config providers.ProviderConfig, opts ...Option) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "generic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.BaseURL == "" && (config.Endpoint == nil || config.Endpoint.Host == "") {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "base_url",
			Message:  "a base URL or local endpoint is required",
		}
	}

	config.Type = providers.TypeGeneric
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}

	p := &Provider{
		BaseProvider: providers.NewBaseProvider(config),
		chatPath:     DefaultChatPath,
		healthPath:   DefaultHealthPath,
		hosted:       map[string]bool{HostedAPIDomain: true},
		requestT:     defaultRequestTransformer{},
		responseT:    defaultResponseTransformer{},
		streamT:      defaultStreamTransformer{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.SetHealthCheck(p.healthProbe)

	slog.Info("generic provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
		"chat_path", p.chatPath,
	)

	return p, nil
}

// Capabilities returns the adapter's static capability declaration.
func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		Streaming:       true,
		FunctionCalling: true,
	}
}

// ValidateConfig checks the configuration for completeness.
func (p *Provider) ValidateConfig() error {
	cfg := p.Config()
	if cfg.BaseURL == "" && (cfg.Endpoint == nil || cfg.Endpoint.Host == "") {
		return &providers.ConfigError{
			Provider: cfg.Name, Field: "base_url",
			Message: "a base URL or local endpoint is required",
		}
	}
	if p.chatPath == "" {
		return &providers.ConfigError{
			Provider: cfg.Name, Field: "chat_path",
			Message: "chat path is required",
		}
	}
	if cfg.Model == "" {
		return &providers.ConfigError{
			Provider: cfg.Name, Field: "model",
			Message: "model is required",
		}
	}
	return nil
}

// Authenticate verifies credentials by probing the backend with the
// configured auth headers. The hosted reference API accepts the key
// without a probe endpoint, so reachability stands in for validity there.
func (p *Provider) Authenticate(ctx context.Context) error {
	if err := p.ValidateConfig(); err != nil {
		return err
	}
	if err := p.CheckHealth(ctx); err != nil {
		return &providers.AuthError{
			Provider: p.Name(),
			Message:  fmt.Sprintf("authentication probe failed: %v", err),
		}
	}
	return nil
}

// SendMessage sends a non-streaming chat request through the transform
// pipeline. Any stage failure is recorded in metrics before the wrapped
// error propagates.
func (p *Provider) SendMessage(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	model, err := p.resolveRequest(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := p.sendOnce(ctx, req, model)
	if err != nil {
		p.ObserveCompletion(start, model, false, nil, err)
		return nil, fmt.Errorf("send message via %q: %w", p.Name(), err)
	}

	p.ObserveCompletion(start, model, false, resp.Usage, nil)
	return resp, nil
}

func (p *Provider) sendOnce(ctx context.Context, req *providers.ChatRequest, model string) (*providers.ChatResponse, error) {
	payload, err := p.requestT.TransformRequest(req, model, false)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.DoRequest(ctx, http.MethodPost, p.BuildEndpoint(p.chatPath), body, p.AuthHeaders())
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &providers.NetworkError{
			Provider: p.Name(),
			Attempts: 1,
			Cause:    fmt.Errorf("read response body: %w", err),
		}
	}

	resp, err := p.responseT.TransformResponse(raw)
	if err != nil {
		return nil, &providers.ProtocolError{
			Provider: p.Name(),
			Payload:  string(raw),
			Cause:    err,
		}
	}
	return resp, nil
}

// StreamMessage opens a streaming chat request. Chunks arrive on the
// returned channel in transport order; the stream terminates on the
// backend's completion signal, the [DONE] sentinel, transport closure, or
// context cancellation.
func (p *Provider) StreamMessage(ctx context.Context, req *providers.ChatRequest) (<-chan *providers.StreamChunk, error) {
	model, err := p.resolveRequest(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	payload, err := p.requestT.TransformRequest(req, model, true)
	if err != nil {
		p.ObserveCompletion(start, model, true, nil, err)
		return nil, fmt.Errorf("stream message via %q: %w", p.Name(), err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		p.ObserveCompletion(start, model, true, nil, err)
		return nil, fmt.Errorf("stream message via %q: %w", p.Name(), err)
	}

	headers := p.AuthHeaders()
	headers["Accept"] = "text/event-stream"

	httpResp, err := p.OpenStream(ctx, http.MethodPost, p.BuildEndpoint(p.chatPath), body, headers)
	if err != nil {
		p.ObserveCompletion(start, model, true, nil, err)
		return nil, fmt.Errorf("stream message via %q: %w", p.Name(), err)
	}

	reader := newStreamReader(p.Name(), httpResp.Body, p.streamT)
	chunks := make(chan *providers.StreamChunk, 16)

	go func() {
		defer close(chunks)
		defer reader.Close()

		var usage *providers.TokenUsage
		for {
			chunk, err := reader.Read(ctx)
			if err == io.EOF {
				// Transport closed without a completion signal: deliver
				// the implicit terminal chunk.
				p.ObserveCompletion(start, model, true, usage, nil)
				select {
				case chunks <- &providers.StreamChunk{Done: true, Usage: usage}:
				case <-ctx.Done():
				}
				return
			}
			if err != nil {
				p.ObserveCompletion(start, model, true, usage, err)
				select {
				case chunks <- &providers.StreamChunk{Error: err}:
				case <-ctx.Done():
				}
				return
			}

			if chunk.Usage != nil {
				usage = chunk.Usage
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}

			if chunk.Done {
				p.ObserveCompletion(start, model, true, usage, nil)
				return
			}
		}
	}()

	return chunks, nil
}

// CheckHealth is the raw health probe; see healthProbe for precedence.
// (The interface method is provided by BaseProvider and dispatches here.)

// healthProbe implements the three-step health precedence:
//  1. the hosted reference API has no probe endpoint and is assumed healthy;
//  2. GET the configured health path, any 2xx passes;
//  3. fall back to a non-mutating OPTIONS against the chat path, any
//     non-404 means the endpoint exists and counts as healthy.
func (p *Provider) healthProbe(ctx context.Context) error {
	chatURL := p.BuildEndpoint(p.chatPath)
	if u, err := url.Parse(chatURL); err == nil && p.hosted[u.Hostname()] {
		return nil
	}

	healthPath := p.Config().HealthCheckPath
	if healthPath == "" {
		healthPath = p.healthPath
	}

	status, err := p.DoProbe(ctx, http.MethodGet, p.BuildEndpoint(healthPath), p.AuthHeaders())
	if err == nil && status >= 200 && status < 300 {
		return nil
	}

	optStatus, optErr := p.DoProbe(ctx, http.MethodOptions, chatURL, p.AuthHeaders())
	if optErr == nil && optStatus != http.StatusNotFound {
		return nil
	}

	if err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}
	return fmt.Errorf("health probe failed: health path status %d, options status %d", status, optStatus)
}

// resolveRequest validates the request and resolves the target model.
func (p *Provider) resolveRequest(req *providers.ChatRequest) (string, error) {
	if req == nil {
		return "", &providers.ValidationError{Field: "request", Message: "request cannot be nil"}
	}
	if len(req.Messages) == 0 {
		return "", &providers.ValidationError{Field: "messages", Message: "at least one message is required"}
	}

	model := req.Model
	if model == "" {
		model = p.Config().Model
	}
	if model == "" {
		return "", &providers.ValidationError{Field: "model", Message: "model is required"}
	}
	return model, nil
}
