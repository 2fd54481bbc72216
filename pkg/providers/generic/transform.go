package generic

import (
	"encoding/json"
	"fmt"

	"meridian-hq/callisto/pkg/providers"
)

// The transform pipeline is a closed set of three named strategies that
// convert between the internal message shapes and one backend's wire
// format. A provider built without custom strategies speaks the
// OpenAI-compatible dialect.

// RequestTransformer builds the backend request body for a chat request.
type RequestTransformer interface {
	// TransformRequest returns the JSON-serializable request body.
	TransformRequest(req *providers.ChatRequest, model string, stream bool) (interface{}, error)
}

// ResponseTransformer normalizes a complete backend response payload.
type ResponseTransformer interface {
	// TransformResponse parses the payload into a ChatResponse.
	TransformResponse(payload []byte) (*providers.ChatResponse, error)
}

// StreamTransformer normalizes one streaming frame. Returning (nil, nil)
// skips the frame without producing a chunk.
type StreamTransformer interface {
	// TransformChunk parses one frame payload into a StreamChunk.
	TransformChunk(payload []byte) (*providers.StreamChunk, error)
}

// Default dialect parameters.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2048
)

// OpenAI-compatible wire types.

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Tools       []wireTool    `json:"tools,omitempty"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireDelta struct {
	Content   string          `json:"content"`
	ToolCalls json.RawMessage `json:"tool_calls,omitempty"`
}

type wireChoice struct {
	Message      wireMessage `json:"message"`
	Delta        wireDelta   `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type wireResponse struct {
	Choices  []wireChoice `json:"choices"`
	Response string       `json:"response"`
	Usage    *wireUsage   `json:"usage"`
}

// defaultRequestTransformer emits the OpenAI-compatible chat request:
// {model, messages: [system?, ...messages], stream, temperature, max_tokens, tools?}.
type defaultRequestTransformer struct{}

func (defaultRequestTransformer) TransformRequest(req *providers.ChatRequest, model string, stream bool) (interface{}, error) {
	messages := make([]wireMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, wireMessage{Role: providers.RoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, wireMessage{Role: m.Role, Content: m.Content})
	}

	out := &wireRequest{
		Model:       model,
		Messages:    messages,
		Stream:      stream,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	return out, nil
}

// defaultResponseTransformer reads choices[0].message.content
// (OpenAI-compatible), falling back to a top-level "response" string, and
// finally to the stringified payload. Finish reason defaults to "stop".
type defaultResponseTransformer struct{}

func (defaultResponseTransformer) TransformResponse(payload []byte) (*providers.ChatResponse, error) {
	var wire wireResponse
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("unrecognized response shape: %w", err)
	}

	resp := &providers.ChatResponse{FinishReason: providers.FinishReasonStop}
	if wire.Usage != nil {
		resp.Usage = &providers.TokenUsage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		}
	}

	switch {
	case len(wire.Choices) > 0:
		choice := wire.Choices[0]
		resp.Content = choice.Message.Content
		if choice.FinishReason != "" {
			resp.FinishReason = normalizeFinishReason(choice.FinishReason)
		}
	case wire.Response != "":
		resp.Content = wire.Response
	default:
		resp.Content = string(payload)
	}

	return resp, nil
}

// defaultStreamTransformer reads choices[0].delta.content, falling back to
// choices[0].message.content (non-streaming shape), and treating the bare
// presence of finish_reason as completion with empty content. Frames
// carrying only tool-call fragments pass through in Raw.
type defaultStreamTransformer struct{}

func (defaultStreamTransformer) TransformChunk(payload []byte) (*providers.StreamChunk, error) {
	var wire wireResponse
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("unrecognized stream frame: %w", err)
	}

	if len(wire.Choices) == 0 {
		return nil, nil
	}
	choice := wire.Choices[0]

	chunk := &providers.StreamChunk{
		Done: choice.FinishReason != "",
	}
	if wire.Usage != nil {
		chunk.Usage = &providers.TokenUsage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		}
	}

	switch {
	case choice.Delta.Content != "":
		chunk.Delta = choice.Delta.Content
	case len(choice.Delta.ToolCalls) > 0:
		chunk.Raw = append(json.RawMessage(nil), payload...)
	case choice.Message.Content != "":
		chunk.Delta = choice.Message.Content
	case !chunk.Done:
		// Neither content nor completion: nothing to deliver.
		return nil, nil
	}

	return chunk, nil
}

// normalizeFinishReason maps backend finish reasons onto the
// provider-agnostic set.
func normalizeFinishReason(reason string) string {
	switch reason {
	case "stop", "end_turn", "done":
		return providers.FinishReasonStop
	case "length", "max_tokens":
		return providers.FinishReasonLength
	case "error":
		return providers.FinishReasonError
	default:
		return reason
	}
}
