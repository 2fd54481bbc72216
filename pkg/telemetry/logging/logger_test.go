package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"meridian-hq/callisto/pkg/config"
)

func TestSetupWriter_Levels(t *testing.T) {
	var buf bytes.Buffer

	logger, err := SetupWriter(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warn entry should be emitted")
	}
}

func TestSetupWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer

	logger, err := SetupWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("hello", "key", "value")

	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

func TestSetupWriter_InvalidSettings(t *testing.T) {
	if _, err := SetupWriter(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for invalid level")
	}
	if _, err := SetupWriter(config.LoggingConfig{Level: "info", Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestSetupWriter_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer

	logger, err := SetupWriter(config.LoggingConfig{Level: "info", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("request sent", "auth", "Bearer sk-verysecretkey123")

	out := buf.String()
	if strings.Contains(out, "verysecretkey") {
		t.Errorf("credential leaked into log output: %q", out)
	}
}

func TestSetup_SetsDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	logger, err := Setup(config.LoggingConfig{Level: "info", Format: "text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slog.Default() != logger {
		t.Error("expected the default logger to be replaced")
	}
}

func TestRedactor(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		in       string
		leaked   string
	}{
		{"key is sk-abc123DEF", "abc123DEF"},
		{"header Bearer tok.en-value", "tok.en-value"},
		{"api_key: supersecret99", "supersecret99"},
	}

	for _, tt := range tests {
		out := r.Redact(tt.in)
		if strings.Contains(out, tt.leaked) {
			t.Errorf("Redact(%q) = %q, still contains %q", tt.in, out, tt.leaked)
		}
	}

	if got := r.Redact("nothing to hide"); got != "nothing to hide" {
		t.Errorf("clean string was modified: %q", got)
	}
}
