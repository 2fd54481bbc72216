package generic

import (
	"encoding/json"
	"testing"

	"meridian-hq/callisto/pkg/providers"
)

func TestDefaultRequestTransformer(t *testing.T) {
	req := &providers.ChatRequest{
		SystemPrompt: "You are terse.",
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: "hello"},
			{Role: providers.RoleAssistant, Content: "hi"},
			{Role: providers.RoleUser, Content: "bye"},
		},
		Tools: []providers.Tool{
			{Name: "lookup", Description: "look things up", InputSchema: map[string]interface{}{"type": "object"}},
		},
	}

	out, err := defaultRequestTransformer{}.TransformRequest(req, "test-model", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wire, ok := out.(*wireRequest)
	if !ok {
		t.Fatalf("expected *wireRequest, got %T", out)
	}

	if wire.Model != "test-model" {
		t.Errorf("expected model test-model, got %q", wire.Model)
	}
	if !wire.Stream {
		t.Error("expected stream flag to be set")
	}
	if len(wire.Messages) != 4 {
		t.Fatalf("expected 4 messages (system + 3), got %d", len(wire.Messages))
	}
	if wire.Messages[0].Role != providers.RoleSystem || wire.Messages[0].Content != "You are terse." {
		t.Errorf("expected system prompt first, got %+v", wire.Messages[0])
	}
	if wire.Messages[1].Content != "hello" || wire.Messages[3].Content != "bye" {
		t.Error("expected conversation order preserved")
	}
	if len(wire.Tools) != 1 || wire.Tools[0].Function.Name != "lookup" {
		t.Errorf("expected tool carried through, got %+v", wire.Tools)
	}
}

func TestDefaultRequestTransformer_NoSystemPrompt(t *testing.T) {
	req := &providers.ChatRequest{
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hello"}},
	}

	out, err := defaultRequestTransformer{}.TransformRequest(req, "m", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wire := out.(*wireRequest)
	if len(wire.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(wire.Messages))
	}
	if wire.Stream {
		t.Error("expected stream flag to be unset")
	}
}

func TestDefaultResponseTransformer(t *testing.T) {
	tests := []struct {
		name           string
		payload        string
		wantContent    string
		wantFinish     string
		wantTotalUsage int
	}{
		{
			name:        "openai-compatible shape",
			payload:     `{"choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`,
			wantContent: "hello",
			wantFinish:  providers.FinishReasonStop,

			wantTotalUsage: 7,
		},
		{
			name:        "length finish reason",
			payload:     `{"choices":[{"message":{"content":"truncated"},"finish_reason":"length"}]}`,
			wantContent: "truncated",
			wantFinish:  providers.FinishReasonLength,
		},
		{
			name:        "top-level response fallback",
			payload:     `{"response":"plain answer"}`,
			wantContent: "plain answer",
			wantFinish:  providers.FinishReasonStop,
		},
		{
			name:        "unknown shape falls back to raw payload",
			payload:     `{"text":"something else"}`,
			wantContent: `{"text":"something else"}`,
			wantFinish:  providers.FinishReasonStop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := defaultResponseTransformer{}.TransformResponse([]byte(tt.payload))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Content != tt.wantContent {
				t.Errorf("content = %q, expected %q", resp.Content, tt.wantContent)
			}
			if resp.FinishReason != tt.wantFinish {
				t.Errorf("finish reason = %q, expected %q", resp.FinishReason, tt.wantFinish)
			}
			if tt.wantTotalUsage > 0 {
				if resp.Usage == nil || resp.Usage.TotalTokens != tt.wantTotalUsage {
					t.Errorf("usage = %+v, expected total %d", resp.Usage, tt.wantTotalUsage)
				}
			}
		})
	}
}

func TestDefaultResponseTransformer_InvalidJSON(t *testing.T) {
	if _, err := (defaultResponseTransformer{}).TransformResponse([]byte("<html>")); err == nil {
		t.Fatal("expected error for non-JSON payload")
	}
}

func TestDefaultStreamTransformer(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantSkip  bool
		wantDelta string
		wantDone  bool
		wantRaw   bool
	}{
		{
			name:      "delta content",
			payload:   `{"choices":[{"delta":{"content":"Hel"}}]}`,
			wantDelta: "Hel",
		},
		{
			name:      "delta content with finish reason",
			payload:   `{"choices":[{"delta":{"content":"lo"},"finish_reason":"stop"}]}`,
			wantDelta: "lo",
			wantDone:  true,
		},
		{
			name:     "bare finish reason",
			payload:  `{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
			wantDone: true,
		},
		{
			name:    "tool call fragment passes through raw",
			payload: `{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"name":"lookup"}}]}}]}`,
			wantRaw: true,
		},
		{
			name:      "non-streaming message shape fallback",
			payload:   `{"choices":[{"message":{"content":"whole"}}]}`,
			wantDelta: "whole",
		},
		{
			name:     "no choices skipped",
			payload:  `{"object":"ping"}`,
			wantSkip: true,
		},
		{
			name:     "empty delta without finish skipped",
			payload:  `{"choices":[{"delta":{}}]}`,
			wantSkip: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk, err := defaultStreamTransformer{}.TransformChunk([]byte(tt.payload))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantSkip {
				if chunk != nil {
					t.Fatalf("expected frame to be skipped, got %+v", chunk)
				}
				return
			}
			if chunk == nil {
				t.Fatal("expected a chunk")
			}
			if chunk.Delta != tt.wantDelta {
				t.Errorf("delta = %q, expected %q", chunk.Delta, tt.wantDelta)
			}
			if chunk.Done != tt.wantDone {
				t.Errorf("done = %v, expected %v", chunk.Done, tt.wantDone)
			}
			if tt.wantRaw {
				if len(chunk.Raw) == 0 {
					t.Fatal("expected raw payload passthrough")
				}
				if !json.Valid(chunk.Raw) {
					t.Error("expected raw payload to remain valid JSON")
				}
			}
		})
	}
}

func TestDefaultStreamTransformer_UsageOnTerminalFrame(t *testing.T) {
	payload := `{"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":20,"total_tokens":30}}`

	chunk, err := defaultStreamTransformer{}.TransformChunk([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !chunk.Done {
		t.Error("expected terminal chunk")
	}
	if chunk.Usage == nil || chunk.Usage.TotalTokens != 30 {
		t.Errorf("usage = %+v, expected total 30", chunk.Usage)
	}
}

func TestNormalizeFinishReason(t *testing.T) {
	tests := map[string]string{
		"stop":       providers.FinishReasonStop,
		"end_turn":   providers.FinishReasonStop,
		"done":       providers.FinishReasonStop,
		"length":     providers.FinishReasonLength,
		"max_tokens": providers.FinishReasonLength,
		"error":      providers.FinishReasonError,
		"custom":     "custom",
	}

	for in, want := range tests {
		if got := normalizeFinishReason(in); got != want {
			t.Errorf("normalizeFinishReason(%q) = %q, expected %q", in, got, want)
		}
	}
}
