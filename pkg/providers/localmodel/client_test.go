package localmodel

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	mock "meridian-hq/callisto/internal/providers"
	"meridian-hq/callisto/pkg/providers"
)

func newTestProvider(t *testing.T, server *mock.MockServer) *Provider {
	t.Helper()

	p, err := New(mock.TestConfigWithURL("local", providers.TypeLocalModel, server.URL()))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	p.SetBackoffUnit(time.Millisecond)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNew_DefaultsEndpoint(t *testing.T) {
	p, err := New(providers.ProviderConfig{Name: "local", Model: "llama3"})
	mock.AssertNoError(t, err)
	defer p.Close()

	endpoint := p.BuildEndpoint("/api/generate")
	mock.AssertEqual(t, endpoint, "http://localhost:11434/api/generate")
}

func TestFormatPrompt(t *testing.T) {
	req := &providers.ChatRequest{
		SystemPrompt: "Be brief.",
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: "What is Go?"},
			{Role: providers.RoleAssistant, Content: "A language."},
			{Role: providers.RoleUser, Content: "Who made it?"},
		},
	}

	prompt := formatPrompt(req)

	expected := "Be brief.\n\n" +
		"Human: What is Go?\n\n" +
		"Assistant: A language.\n\n" +
		"Human: Who made it?\n\n" +
		"Assistant:"
	mock.AssertEqual(t, prompt, expected)
}

func TestFormatPrompt_EndsWithAssistantCue(t *testing.T) {
	req := &providers.ChatRequest{
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hi"}},
	}

	prompt := formatPrompt(req)
	if !strings.HasSuffix(prompt, "Assistant:") {
		t.Errorf("prompt should end with the assistant cue, got %q", prompt)
	}
}

func TestSendMessage(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()

	server.SetResponse(generatePath, mock.MockResponse{
		StatusCode: http.StatusOK,
		Body:       mock.MockGenerateResponse("Hello there.", 12, 8),
	})

	p := newTestProvider(t, server)

	resp, err := p.SendMessage(context.Background(), mock.TestChatRequest("test-model",
		mock.TestMessage(providers.RoleUser, "hi"),
	))
	mock.AssertNoError(t, err)
	mock.AssertEqual(t, resp.Content, "Hello there.")

	if resp.Usage == nil {
		t.Fatal("expected usage")
	}
	mock.AssertEqual(t, resp.Usage.PromptTokens, 12)
	mock.AssertEqual(t, resp.Usage.CompletionTokens, 8)
	mock.AssertEqual(t, resp.Usage.TotalTokens, 20)
}

func TestSendMessage_RuntimeError(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()

	server.SetResponse(generatePath, mock.MockResponse{
		StatusCode: http.StatusOK,
		Body:       map[string]interface{}{"error": "model not found"},
	})

	p := newTestProvider(t, server)

	_, err := p.SendMessage(context.Background(), mock.TestChatRequest("missing",
		mock.TestMessage(providers.RoleUser, "hi"),
	))

	var protoErr *providers.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %T: %v", err, err)
	}
	mock.AssertContains(t, err.Error(), "model not found")
}

func TestStreamMessage(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()

	server.SetResponse(generatePath, mock.MockResponse{
		RawLines: []string{
			mock.MockGenerateStreamLine("Hel", false, 0, 0),
			mock.MockGenerateStreamLine("lo", false, 0, 0),
			mock.MockGenerateStreamLine("", true, 3, 2),
		},
	})

	p := newTestProvider(t, server)

	chunks, err := p.StreamMessage(context.Background(), mock.TestChatRequest("test-model",
		mock.TestMessage(providers.RoleUser, "greet"),
	))
	mock.AssertNoError(t, err)

	collected, err := mock.CollectStreamChunks(t, chunks)
	mock.AssertNoError(t, err)

	mock.AssertEqual(t, len(collected), 3)
	mock.AssertEqual(t, mock.ConcatenateChunks(collected), "Hello")

	final := collected[len(collected)-1]
	mock.AssertTrue(t, final.Done, "final chunk should be terminal")
	if final.Usage == nil {
		t.Fatal("expected usage on the terminal chunk")
	}
	mock.AssertEqual(t, final.Usage.TotalTokens, 5)
}

func TestStreamMessage_EOFWithoutDone(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()

	server.SetResponse(generatePath, mock.MockResponse{
		RawLines: []string{
			mock.MockGenerateStreamLine("partial", false, 0, 0),
		},
	})

	p := newTestProvider(t, server)

	chunks, err := p.StreamMessage(context.Background(), mock.TestChatRequest("test-model",
		mock.TestMessage(providers.RoleUser, "go"),
	))
	mock.AssertNoError(t, err)

	collected, err := mock.CollectStreamChunks(t, chunks)
	mock.AssertNoError(t, err)

	mock.AssertEqual(t, len(collected), 2)
	mock.AssertTrue(t, collected[1].Done, "expected implicit terminal chunk")
}

func TestStreamMessage_MalformedLinesSkipped(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()

	server.SetResponse(generatePath, mock.MockResponse{
		RawLines: []string{
			mock.MockGenerateStreamLine("ok", false, 0, 0),
			`{broken`,
			mock.MockGenerateStreamLine("", true, 1, 1),
		},
	})

	p := newTestProvider(t, server)

	chunks, err := p.StreamMessage(context.Background(), mock.TestChatRequest("test-model",
		mock.TestMessage(providers.RoleUser, "go"),
	))
	mock.AssertNoError(t, err)

	collected, err := mock.CollectStreamChunks(t, chunks)
	mock.AssertNoError(t, err)

	mock.AssertEqual(t, len(collected), 2)
	mock.AssertEqual(t, collected[0].Delta, "ok")
	mock.AssertTrue(t, collected[1].Done, "expected terminal chunk")
}

func TestLoadAvailableModels(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()

	server.SetResponse(tagsPath, mock.MockResponse{
		StatusCode: http.StatusOK,
		Body:       mock.MockModelList("llama3", "mistral"),
	})

	p := newTestProvider(t, server)

	models, err := p.LoadAvailableModels(context.Background())
	mock.AssertNoError(t, err)
	mock.AssertEqual(t, len(models), 2)
	mock.AssertEqual(t, models[0], "llama3")
	mock.AssertEqual(t, models[1], "mistral")
}

func TestPullModel(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()

	server.SetResponse(pullPath, mock.MockResponse{
		StatusCode: http.StatusOK,
		Body:       map[string]interface{}{"status": "success"},
	})

	p := newTestProvider(t, server)
	mock.AssertNoError(t, p.PullModel(context.Background(), "mistral"))
	mock.AssertEqual(t, server.GetPathCount(pullPath), 1)
}

func TestPullModel_RuntimeError(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()

	server.SetResponse(pullPath, mock.MockResponse{
		StatusCode: http.StatusOK,
		Body:       map[string]interface{}{"error": "manifest unknown"},
	})

	p := newTestProvider(t, server)

	err := p.PullModel(context.Background(), "ghost-model")
	mock.AssertError(t, err)
	mock.AssertContains(t, err.Error(), "manifest unknown")
}

func TestSwitchModel_AlreadyInstalled(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()

	server.SetResponse(tagsPath, mock.MockResponse{
		StatusCode: http.StatusOK,
		Body:       mock.MockModelList("llama3", "mistral"),
	})

	p := newTestProvider(t, server)

	mock.AssertNoError(t, p.SwitchModel(context.Background(), "mistral"))
	mock.AssertEqual(t, p.Model(), "mistral")
	mock.AssertEqual(t, server.GetPathCount(pullPath), 0)
}

func TestSwitchModel_PullsMissingModel(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()

	server.SetResponse(tagsPath, mock.MockResponse{
		StatusCode: http.StatusOK,
		Body:       mock.MockModelList("llama3"),
	})
	server.SetResponse(pullPath, mock.MockResponse{
		StatusCode: http.StatusOK,
		Body:       map[string]interface{}{"status": "success"},
	})

	p := newTestProvider(t, server)

	mock.AssertNoError(t, p.SwitchModel(context.Background(), "mistral"))
	mock.AssertEqual(t, p.Model(), "mistral")
	mock.AssertEqual(t, server.GetPathCount(pullPath), 1)
}

func TestHealthProbe(t *testing.T) {
	server := mock.NewMockServer()
	defer server.Close()

	server.SetResponse(tagsPath, mock.MockResponse{
		StatusCode: http.StatusOK,
		Body:       mock.MockModelList("llama3"),
	})

	p := newTestProvider(t, server)
	mock.AssertTrue(t, p.IsAvailable(context.Background()), "expected healthy runtime")
}

func TestHealthProbe_Down(t *testing.T) {
	config := mock.TestConfigWithURL("local", providers.TypeLocalModel, "http://127.0.0.1:1")
	p, err := New(config)
	mock.AssertNoError(t, err)
	defer p.Close()

	mock.AssertFalse(t, p.IsAvailable(context.Background()), "expected unreachable runtime to be unhealthy")
}

func TestCapabilities(t *testing.T) {
	p, err := New(providers.ProviderConfig{Name: "local", Model: "llama3"})
	mock.AssertNoError(t, err)
	defer p.Close()

	caps := p.Capabilities()
	mock.AssertTrue(t, caps.Streaming, "expected streaming capability")
	mock.AssertFalse(t, caps.FunctionCalling, "local runtime has no tool calling")
}
