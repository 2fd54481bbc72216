package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockServer is a mock HTTP server for testing provider adapters.
// It simulates chat backends including errors, SSE streaming, and
// NDJSON streaming.
type MockServer struct {
	server       *httptest.Server
	responses    map[string]*MockResponse
	requestCount int
	pathCounts   map[string]int
	mu           sync.Mutex
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode   int
	Body         interface{}
	Delay        time.Duration
	Headers      map[string]string
	StreamChunks []string // SSE payloads, each emitted as "data: <chunk>"
	RawLines     []string // newline-delimited lines emitted verbatim (NDJSON)
	NoSentinel   bool     // suppress the trailing [DONE] for SSE streams
	HoldOpen     bool     // keep the stream connection open after the lines

	// FailFirst makes the first N requests to the path return 503
	// before the configured response applies. Used to exercise retry.
	FailFirst int
}

// NewMockServer creates a new mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses:  make(map[string]*MockResponse),
		pathCounts: make(map[string]int),
	}

	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))

	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse sets a mock response for a specific endpoint.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.responses[path] = &response
}

// GetRequestCount returns the number of requests received.
func (ms *MockServer) GetRequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.requestCount
}

// GetPathCount returns the number of requests received for a path.
func (ms *MockServer) GetPathCount(path string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.pathCounts[path]
}

// ResetRequestCount resets all request counters.
func (ms *MockServer) ResetRequestCount() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.requestCount = 0
	ms.pathCounts = make(map[string]int)
}

// handler handles incoming HTTP requests.
func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	ms.requestCount++
	ms.pathCounts[r.URL.Path]++

	response, ok := ms.responses[r.URL.Path]
	var failing bool
	if ok && response.FailFirst > 0 {
		response.FailFirst--
		failing = true
	}
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if failing {
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	if response.Delay > 0 {
		time.Sleep(response.Delay)
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	if len(response.RawLines) > 0 {
		ms.handleRawStream(w, r, response)
		return
	}
	if len(response.StreamChunks) > 0 {
		ms.handleStream(w, r, response)
		return
	}

	w.WriteHeader(response.StatusCode)

	if response.Body != nil {
		switch v := response.Body.(type) {
		case string:
			_, _ = w.Write([]byte(v)) // Write to response, ignore error
		case []byte:
			_, _ = w.Write(v) // Write to response, ignore error
		default:
			_ = json.NewEncoder(w).Encode(response.Body) // Write to response, ignore error
		}
	}
}

// handleStream handles Server-Sent Events streaming responses.
func (ms *MockServer) handleStream(w http.ResponseWriter, r *http.Request, response *MockResponse) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	for _, chunk := range response.StreamChunks {
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		flusher.Flush()
		time.Sleep(5 * time.Millisecond) // Small delay between chunks
	}

	if !response.NoSentinel {
		fmt.Fprintf(w, "data: [DONE]\n\n")
		flusher.Flush()
	}

	if response.HoldOpen {
		<-r.Context().Done()
	}
}

// handleRawStream emits lines verbatim, one per flush. Used for
// newline-delimited JSON backends.
func (ms *MockServer) handleRawStream(w http.ResponseWriter, r *http.Request, response *MockResponse) {
	w.Header().Set("Content-Type", "application/x-ndjson")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	for _, line := range response.RawLines {
		fmt.Fprintf(w, "%s\n", line)
		flusher.Flush()
		time.Sleep(5 * time.Millisecond)
	}

	if response.HoldOpen {
		<-r.Context().Done()
	}
}

// MockChatResponse creates a mock OpenAI-compatible chat completion response.
func MockChatResponse(content string, model string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{
			{
				"index": 0,
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}

// MockChatStreamChunk creates a mock OpenAI-compatible streaming chunk.
func MockChatStreamChunk(delta string, finishReason string) string {
	choice := map[string]interface{}{
		"index": 0,
		"delta": map[string]interface{}{
			"content": delta,
		},
	}
	if finishReason != "" {
		choice["finish_reason"] = finishReason
	}

	chunk := map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   "test-model",
		"choices": []map[string]interface{}{choice},
	}

	bytes, _ := json.Marshal(chunk)
	return string(bytes)
}

// MockGenerateResponse creates a mock local-runtime generate response.
func MockGenerateResponse(response string, promptTokens, evalTokens int) map[string]interface{} {
	return map[string]interface{}{
		"model":             "test-model",
		"response":          response,
		"done":              true,
		"prompt_eval_count": promptTokens,
		"eval_count":        evalTokens,
	}
}

// MockGenerateStreamLine creates one NDJSON line for the local-runtime
// streaming dialect.
func MockGenerateStreamLine(response string, done bool, promptTokens, evalTokens int) string {
	line := map[string]interface{}{
		"model":    "test-model",
		"response": response,
		"done":     done,
	}
	if done {
		line["prompt_eval_count"] = promptTokens
		line["eval_count"] = evalTokens
	}

	bytes, _ := json.Marshal(line)
	return string(bytes)
}

// MockModelList creates a mock local-runtime model listing.
func MockModelList(names ...string) map[string]interface{} {
	models := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		models = append(models, map[string]interface{}{
			"name":        name,
			"size":        4_000_000_000,
			"modified_at": time.Now().Format(time.RFC3339),
		})
	}
	return map[string]interface{}{"models": models}
}

// MockErrorResponse creates a mock error response.
func MockErrorResponse(statusCode int, message string) MockResponse {
	body := map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "invalid_request_error",
			"code":    statusCode,
		},
	}

	return MockResponse{
		StatusCode: statusCode,
		Body:       body,
	}
}

// MockAuthError creates a 401 authentication error response.
func MockAuthError() MockResponse {
	return MockErrorResponse(http.StatusUnauthorized, "Invalid API key")
}

// MockRateLimitError creates a 429 rate limit error response.
func MockRateLimitError(retryAfter int) MockResponse {
	response := MockErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	response.Headers = map[string]string{
		"Retry-After": fmt.Sprintf("%d", retryAfter),
	}
	return response
}

// MockServerError creates a 500 internal server error response.
func MockServerError() MockResponse {
	return MockErrorResponse(http.StatusInternalServerError, "Internal server error")
}

// ExpectHeader checks if a request has a specific header value.
func ExpectHeader(r *http.Request, key, value string) error {
	actual := r.Header.Get(key)
	if !strings.Contains(actual, value) {
		return fmt.Errorf("header %q mismatch: expected %q, got %q", key, value, actual)
	}
	return nil
}
