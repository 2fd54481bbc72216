package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"meridian-hq/callisto/pkg/providers"
)

// fakeProvider is a minimal Provider used to exercise registry and
// failover logic without network I/O.
type fakeProvider struct {
	config    providers.ProviderConfig
	authErr   error
	available bool
	closed    bool
}

func (f *fakeProvider) Name() string                        { return f.config.Name }
func (f *fakeProvider) Type() string                        { return f.config.Type }
func (f *fakeProvider) Config() providers.ProviderConfig    { return f.config }
func (f *fakeProvider) Capabilities() providers.Capabilities {
	return providers.Capabilities{Streaming: true}
}
func (f *fakeProvider) ValidateConfig() error                     { return nil }
func (f *fakeProvider) Authenticate(ctx context.Context) error    { return f.authErr }
func (f *fakeProvider) CheckHealth(ctx context.Context) error     { return nil }
func (f *fakeProvider) IsAvailable(ctx context.Context) bool      { return f.available }
func (f *fakeProvider) Metrics() providers.MetricsSnapshot        { return providers.MetricsSnapshot{} }
func (f *fakeProvider) Health() providers.HealthState             { return providers.HealthState{} }
func (f *fakeProvider) Close() error                              { f.closed = true; return nil }
func (f *fakeProvider) SendMessage(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	return &providers.ChatResponse{Content: "ok from " + f.config.Name}, nil
}
func (f *fakeProvider) StreamMessage(ctx context.Context, req *providers.ChatRequest) (<-chan *providers.StreamChunk, error) {
	ch := make(chan *providers.StreamChunk, 1)
	ch <- &providers.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

func fakeFactory(authErr error, available bool) Factory {
	return func(config providers.ProviderConfig) (providers.Provider, error) {
		return &fakeProvider{config: config, authErr: authErr, available: available}, nil
	}
}

func TestRegister_LastWins(t *testing.T) {
	r := New()

	first := false
	second := false

	_ = r.Register(Registration{Name: "x", Factory: func(c providers.ProviderConfig) (providers.Provider, error) {
		first = true
		return &fakeProvider{config: c, available: true}, nil
	}})
	_ = r.Register(Registration{Name: "x", Factory: func(c providers.ProviderConfig) (providers.Provider, error) {
		second = true
		return &fakeProvider{config: c, available: true}, nil
	}})

	_, err := r.Create("x", providers.ProviderConfig{Name: "x", Type: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first || !second {
		t.Error("expected the later registration to win")
	}
}

func TestRegister_Validation(t *testing.T) {
	r := New()

	if err := r.Register(Registration{Factory: fakeFactory(nil, true)}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := r.Register(Registration{Name: "x"}); err == nil {
		t.Error("expected error for missing factory")
	}
}

func TestDiscover(t *testing.T) {
	r := New()

	_ = r.Register(Registration{
		Name:    "healthy",
		Factory: fakeFactory(nil, true),
		Probe:   func(ctx context.Context) error { return nil },
	})
	_ = r.Register(Registration{
		Name:    "unreachable",
		Factory: fakeFactory(nil, true),
		Probe:   func(ctx context.Context) error { return errors.New("no backend") },
	})
	_ = r.Register(Registration{
		Name:    "broken",
		Factory: fakeFactory(nil, true),
		Probe:   func(ctx context.Context) error { panic("probe exploded") },
	})
	_ = r.Register(Registration{
		Name:    "unprobed",
		Factory: fakeFactory(nil, true),
	})

	available := r.Discover(context.Background())

	if len(available) != 2 {
		t.Fatalf("expected 2 available types, got %v", available)
	}
	// Sorted output.
	if available[0] != "healthy" || available[1] != "unprobed" {
		t.Errorf("expected [healthy unprobed], got %v", available)
	}
}

func TestCreate_UnknownType(t *testing.T) {
	r := New()

	_, err := r.Create("ghost", providers.ProviderConfig{})
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestCreate_MergesDefaults(t *testing.T) {
	r := New()

	_ = r.Register(Registration{
		Name:    "x",
		Factory: fakeFactory(nil, true),
		DefaultConfig: providers.ProviderConfig{
			Model:         "default-model",
			BaseURL:       "http://default:8080",
			Timeout:       42 * time.Second,
			RetryAttempts: 5,
		},
	})

	p, err := r.Create("x", providers.ProviderConfig{
		Name:    "mine",
		Type:    "x",
		BaseURL: "http://override:9090",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	config := p.Config()
	if config.Name != "mine" {
		t.Errorf("caller name should win, got %q", config.Name)
	}
	if config.BaseURL != "http://override:9090" {
		t.Errorf("caller base URL should win, got %q", config.BaseURL)
	}
	if config.Model != "default-model" {
		t.Errorf("default model should fill the gap, got %q", config.Model)
	}
	if config.Timeout != 42*time.Second {
		t.Errorf("default timeout should fill the gap, got %s", config.Timeout)
	}
	if config.RetryAttempts != 5 {
		t.Errorf("default retry attempts should fill the gap, got %d", config.RetryAttempts)
	}
}

func TestSetDefaultConfig_ReplacesDefaults(t *testing.T) {
	r := New()

	_ = r.Register(Registration{
		Name:    "x",
		Factory: fakeFactory(nil, true),
		DefaultConfig: providers.ProviderConfig{
			Model: "old-model",
		},
	})

	if !r.SetDefaultConfig("x", providers.ProviderConfig{Model: "new-model"}) {
		t.Fatal("SetDefaultConfig should report success for a registered type")
	}

	p, err := r.Create("x", providers.ProviderConfig{Name: "mine", Type: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.Config().Model; got != "new-model" {
		t.Errorf("replaced default model should fill the gap, got %q", got)
	}
}

func TestSetDefaultConfig_UnknownType(t *testing.T) {
	r := New()

	if r.SetDefaultConfig("nope", providers.ProviderConfig{}) {
		t.Error("SetDefaultConfig should report failure for an unregistered type")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected a shared default registry")
	}
}
