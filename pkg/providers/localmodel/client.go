package localmodel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"meridian-hq/callisto/pkg/providers"
)

// Runtime API paths.
const (
	generatePath = "/api/generate"
	tagsPath     = "/api/tags"
	pullPath     = "/api/pull"
)

// Defaults for a runtime on the local machine.
const (
	DefaultHost = "localhost"
	DefaultPort = 11434

	defaultTemperature = 0.7
)

// Provider adapts a local model runtime (Ollama-style API): plain-prompt
// generation over /api/generate with NDJSON streaming, model management
// over /api/tags and /api/pull.
type Provider struct {
	*providers.BaseProvider

	temperature float64

	// activeModel is the currently selected model; SwitchModel updates it
	// at runtime, so it lives outside the immutable config.
	activeModel string
	modelMu     sync.RWMutex
}

// New creates a local model runtime provider. A missing endpoint defaults
// to localhost:11434.
func New(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "localmodel",
			Field:    "name",
			Message:  "provider name is required",
		}
	}

	if config.BaseURL == "" && (config.Endpoint == nil || config.Endpoint.Host == "") {
		config.Endpoint = &providers.LocalEndpoint{
			Host: DefaultHost,
			Port: DefaultPort,
		}
	}

	config.Type = providers.TypeLocalModel

	p := &Provider{
		BaseProvider: providers.NewBaseProvider(config),
		temperature:  defaultTemperature,
		activeModel:  config.Model,
	}
	p.SetHealthCheck(p.healthProbe)

	slog.Info("local model provider initialized",
		"provider", config.Name,
		"endpoint", p.BuildEndpoint(""),
		"model", config.Model,
	)

	return p, nil
}

// Capabilities returns the adapter's static capability declaration.
// Local runtimes stream but expose no tool-calling surface.
func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		Streaming: true,
	}
}

// ValidateConfig checks the configuration for completeness.
func (p *Provider) ValidateConfig() error {
	cfg := p.Config()
	if cfg.BaseURL == "" && (cfg.Endpoint == nil || cfg.Endpoint.Host == "") {
		return &providers.ConfigError{
			Provider: cfg.Name, Field: "endpoint",
			Message: "a local endpoint or base URL is required",
		}
	}
	if p.Model() == "" {
		return &providers.ConfigError{
			Provider: cfg.Name, Field: "model",
			Message: "model is required",
		}
	}
	return nil
}

// Authenticate verifies the runtime is reachable. Local runtimes carry no
// credentials unless the endpoint declares bearer auth, in which case the
// probe exercises them.
func (p *Provider) Authenticate(ctx context.Context) error {
	if err := p.ValidateConfig(); err != nil {
		return err
	}
	if err := p.CheckHealth(ctx); err != nil {
		return &providers.AuthError{
			Provider: p.Name(),
			Message:  fmt.Sprintf("runtime unreachable: %v", err),
		}
	}
	return nil
}

// Model returns the currently selected model.
func (p *Provider) Model() string {
	p.modelMu.RLock()
	defer p.modelMu.RUnlock()
	return p.activeModel
}

// LoadAvailableModels lists the models installed in the runtime.
func (p *Provider) LoadAvailableModels(ctx context.Context) ([]string, error) {
	resp, err := p.DoRequest(ctx, http.MethodGet, p.BuildEndpoint(tagsPath), nil, p.AuthHeaders())
	if err != nil {
		return nil, fmt.Errorf("list models on %q: %w", p.Name(), err)
	}
	defer resp.Body.Close()

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, &providers.ProtocolError{
			Provider: p.Name(),
			Cause:    fmt.Errorf("decode model list: %w", err),
		}
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// PullModel downloads a model into the runtime. The call blocks until the
// runtime reports completion.
func (p *Provider) PullModel(ctx context.Context, name string) error {
	if name == "" {
		return &providers.ValidationError{Field: "model", Message: "model name is required"}
	}

	body, err := json.Marshal(pullRequest{Name: name, Stream: false})
	if err != nil {
		return err
	}

	slog.Info("pulling model", "provider", p.Name(), "model", name)

	resp, err := p.DoRequest(ctx, http.MethodPost, p.BuildEndpoint(pullPath), body, p.AuthHeaders())
	if err != nil {
		return fmt.Errorf("pull model %q on %q: %w", name, p.Name(), err)
	}
	defer resp.Body.Close()

	var status pullResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return &providers.ProtocolError{
			Provider: p.Name(),
			Cause:    fmt.Errorf("decode pull status: %w", err),
		}
	}
	if status.Error != "" {
		return fmt.Errorf("pull model %q on %q: %s", name, p.Name(), status.Error)
	}
	return nil
}

// SwitchModel makes name the active model, pulling it first when the
// runtime does not already have it.
func (p *Provider) SwitchModel(ctx context.Context, name string) error {
	if name == "" {
		return &providers.ValidationError{Field: "model", Message: "model name is required"}
	}

	installed, err := p.LoadAvailableModels(ctx)
	if err != nil {
		return err
	}

	found := false
	for _, m := range installed {
		if m == name {
			found = true
			break
		}
	}
	if !found {
		if err := p.PullModel(ctx, name); err != nil {
			return err
		}
	}

	p.modelMu.Lock()
	p.activeModel = name
	p.modelMu.Unlock()

	slog.Info("switched model", "provider", p.Name(), "model", name)
	return nil
}

// SendMessage sends a non-streaming generate request. The conversation is
// flattened into a plain prompt because the runtime has no chat endpoint.
func (p *Provider) SendMessage(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	model, err := p.resolveRequest(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := p.generateOnce(ctx, req, model)
	if err != nil {
		p.ObserveCompletion(start, model, false, nil, err)
		return nil, fmt.Errorf("send message via %q: %w", p.Name(), err)
	}

	p.ObserveCompletion(start, model, false, resp.Usage, nil)
	return resp, nil
}

func (p *Provider) generateOnce(ctx context.Context, req *providers.ChatRequest, model string) (*providers.ChatResponse, error) {
	body, err := json.Marshal(generateRequest{
		Model:   model,
		Prompt:  formatPrompt(req),
		Stream:  false,
		Options: generateOptions{Temperature: p.temperature},
	})
	if err != nil {
		return nil, err
	}

	httpResp, err := p.DoRequest(ctx, http.MethodPost, p.BuildEndpoint(generatePath), body, p.AuthHeaders())
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

	var gen generateResponse
	if err := json.Unmarshal(raw, &gen); err != nil {
		return nil, &providers.ProtocolError{
			Provider: p.Name(),
			Payload:  string(raw),
			Cause:    err,
		}
	}
	if gen.Error != "" {
		return nil, &providers.ProtocolError{
			Provider: p.Name(),
			Payload:  string(raw),
			Cause:    fmt.Errorf("runtime error: %s", gen.Error),
		}
	}

	return &providers.ChatResponse{
		Content:      gen.Response,
		FinishReason: providers.FinishReasonStop,
		Usage:        usageFrom(&gen),
	}, nil
}

// StreamMessage opens a streaming generate request. The runtime emits one
// JSON object per line; the line with done=true carries the token counters
// and terminates the stream.
func (p *Provider) StreamMessage(ctx context.Context, req *providers.ChatRequest) (<-chan *providers.StreamChunk, error) {
	model, err := p.resolveRequest(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	body, err := json.Marshal(generateRequest{
		Model:   model,
		Prompt:  formatPrompt(req),
		Stream:  true,
		Options: generateOptions{Temperature: p.temperature},
	})
	if err != nil {
		p.ObserveCompletion(start, model, true, nil, err)
		return nil, fmt.Errorf("stream message via %q: %w", p.Name(), err)
	}

	httpResp, err := p.OpenStream(ctx, http.MethodPost, p.BuildEndpoint(generatePath), body, p.AuthHeaders())
	if err != nil {
		p.ObserveCompletion(start, model, true, nil, err)
		return nil, fmt.Errorf("stream message via %q: %w", p.Name(), err)
	}

	reader := newStreamReader(p.Name(), httpResp.Body)
	chunks := make(chan *providers.StreamChunk, 16)

	go func() {
		defer close(chunks)
		defer reader.Close()

		var usage *providers.TokenUsage
		for {
			chunk, err := reader.Read(ctx)
			if err == io.EOF {
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

// healthProbe checks the runtime by listing models; /api/tags is cheap and
// exists on every runtime version.
func (p *Provider) healthProbe(ctx context.Context) error {
	status, err := p.DoProbe(ctx, http.MethodGet, p.BuildEndpoint(tagsPath), p.AuthHeaders())
	if err != nil {
		return fmt.Errorf("runtime probe failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("runtime probe failed: status %d", status)
	}
	return nil
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
		model = p.Model()
	}
	if model == "" {
		return "", &providers.ValidationError{Field: "model", Message: "model is required"}
	}
	return model, nil
}

// formatPrompt flattens a chat request into the Human:/Assistant: dialogue
// convention, ending with a bare "Assistant:" cue so the model continues
// the assistant turn.
func formatPrompt(req *providers.ChatRequest) string {
	var b strings.Builder

	if req.SystemPrompt != "" {
		b.WriteString(req.SystemPrompt)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		switch m.Role {
		case providers.RoleAssistant:
			b.WriteString("Assistant: ")
		case providers.RoleSystem:
			// An inline system message has no dialogue marker.
		default:
			b.WriteString("Human: ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	b.WriteString("Assistant:")
	return b.String()
}

// usageFrom sums the runtime's split counters into a TokenUsage. Returns
// nil when the runtime reported nothing.
func usageFrom(gen *generateResponse) *providers.TokenUsage {
	if gen.PromptEvalCount == 0 && gen.EvalCount == 0 {
		return nil
	}
	return &providers.TokenUsage{
		PromptTokens:     gen.PromptEvalCount,
		CompletionTokens: gen.EvalCount,
		TotalTokens:      gen.PromptEvalCount + gen.EvalCount,
	}
}
