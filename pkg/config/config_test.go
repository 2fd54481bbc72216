package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"meridian-hq/callisto/pkg/providers"
)

const validYAML = `
logging:
  level: debug
  format: json

default_provider: openai

providers:
  openai:
    type: generic
    model: gpt-4
    api_key: sk-test
    base_url: https://api.openai.com
    fallbacks: [local]
  local:
    type: localmodel
    model: llama3
    endpoint:
      host: localhost
      port: 11434
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging config not parsed: %+v", cfg.Logging)
	}
	if cfg.DefaultProvider != "openai" {
		t.Errorf("default provider = %q", cfg.DefaultProvider)
	}
	if len(cfg.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(cfg.Providers))
	}

	openai := cfg.Providers["openai"]
	if openai.Type != providers.TypeGeneric || openai.Model != "gpt-4" {
		t.Errorf("openai provider not parsed: %+v", openai)
	}
	if len(openai.Fallbacks) != 1 || openai.Fallbacks[0] != "local" {
		t.Errorf("fallbacks not parsed: %v", openai.Fallbacks)
	}

	local := cfg.Providers["local"]
	if local.Endpoint == nil || local.Endpoint.Host != "localhost" || local.Endpoint.Port != 11434 {
		t.Errorf("local endpoint not parsed: %+v", local.Endpoint)
	}
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	openai := cfg.Providers["openai"]
	if openai.Timeout != DefaultProviderTimeout {
		t.Errorf("timeout default not applied, got %s", openai.Timeout)
	}
	if openai.RetryAttempts != DefaultProviderRetryAttempts {
		t.Errorf("retry attempts default not applied, got %d", openai.RetryAttempts)
	}
	if openai.HealthCheckInterval != DefaultProviderHealthCheckInterval {
		t.Errorf("health interval default not applied, got %s", openai.HealthCheckInterval)
	}
	if cfg.Metrics.ListenAddress != DefaultMetricsListenAddress {
		t.Errorf("metrics address default not applied, got %q", cfg.Metrics.ListenAddress)
	}
	if cfg.Discovery.Schedule != DefaultDiscoverySchedule {
		t.Errorf("discovery schedule default not applied, got %q", cfg.Discovery.Schedule)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("providers: [not a map")); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Logging:         LoggingConfig{Level: "loud", Format: "xml"},
		DefaultProvider: "ghost",
		Providers: map[string]ProviderSettings{
			"bad": {
				Type:          "carrier-pigeon",
				BaseURL:       "://not-a-url",
				RetryAttempts: -1,
				Fallbacks:     []string{"also-missing"},
			},
		},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}

	valErr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(valErr.Errors) < 5 {
		t.Errorf("expected all errors collected, got %d: %v", len(valErr.Errors), valErr)
	}
}

func TestValidate_GenericRequiresAddress(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Providers: map[string]ProviderSettings{
			"p": {Type: providers.TypeGeneric},
		},
	}

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for generic provider without an address")
	}
}

func TestValidate_LocalModelWithoutAddressIsFine(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Providers: map[string]ProviderSettings{
			// The localmodel adapter defaults to localhost:11434.
			"local": {Type: providers.TypeLocalModel, Model: "llama3"},
		},
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CALLISTO_LOGGING_LEVEL", "warn")
	t.Setenv("CALLISTO_PROVIDER_OPENAI_API_KEY", "sk-from-env")
	t.Setenv("CALLISTO_PROVIDER_OPENAI_TIMEOUT", "90s")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("env override for log level not applied, got %q", cfg.Logging.Level)
	}
	if cfg.Providers["openai"].APIKey != "sk-from-env" {
		t.Errorf("env override for api key not applied, got %q", cfg.Providers["openai"].APIKey)
	}
	if cfg.Providers["openai"].Timeout != 90*time.Second {
		t.Errorf("env override for timeout not applied, got %s", cfg.Providers["openai"].Timeout)
	}
}

func TestToProviderConfig(t *testing.T) {
	settings := ProviderSettings{
		Type:      providers.TypeGeneric,
		Model:     "gpt-4",
		APIKey:    "sk-test",
		BaseURL:   "https://api.openai.com",
		Fallbacks: []string{"local"},
		Timeout:   45 * time.Second,
	}

	cfg := settings.ToProviderConfig("openai")

	if cfg.Name != "openai" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Type != providers.TypeGeneric || cfg.Model != "gpt-4" || cfg.APIKey != "sk-test" {
		t.Errorf("fields not carried: %+v", cfg)
	}
	if cfg.Policy == nil || len(cfg.Policy.Fallbacks) != 1 {
		t.Errorf("fallbacks not converted into policy: %+v", cfg.Policy)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("timeout = %s", cfg.Timeout)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"openai":      "OPENAI",
		"my-provider": "MY_PROVIDER",
		"a.b":         "A_B",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, expected %q", in, got, want)
		}
	}
}
