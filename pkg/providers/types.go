package providers

import (
	"encoding/json"
	"time"
)

// Message represents a single message in a conversation.
// Order within a conversation is significant and is preserved end-to-end.
type Message struct {
	// Role identifies the message sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"content"`

	// Timestamp is when the message was created (optional)
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Tool describes a function the model may call. It is passed through the
// request transformer and mapped to the backend's function-calling shape
// when the backend supports it.
type Tool struct {
	// Name is the tool identifier
	Name string `json:"name"`

	// Description explains what the tool does
	Description string `json:"description,omitempty"`

	// InputSchema is a JSON Schema object describing the tool parameters
	InputSchema map[string]interface{} `json:"input_schema,omitempty"`
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens used (prompt + completion)
	TotalTokens int `json:"total_tokens"`
}

// ChatRequest is a provider-agnostic chat completion request.
// Adapters transform it to their backend's wire format.
type ChatRequest struct {
	// Messages is the ordered conversation history
	Messages []Message `json:"messages"`

	// SystemPrompt is an optional system instruction prepended to the
	// conversation in whatever shape the backend expects
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Tools is an optional list of tools the model can call
	Tools []Tool `json:"tools,omitempty"`

	// Model overrides the adapter's configured model for this request
	Model string `json:"model,omitempty"`
}

// ChatResponse is a provider-agnostic completed chat response.
type ChatResponse struct {
	// Content is the generated text
	Content string `json:"content"`

	// FinishReason indicates why generation stopped (stop, length, error)
	FinishReason string `json:"finish_reason"`

	// Usage contains token consumption, when the backend reports it
	Usage *TokenUsage `json:"usage,omitempty"`

	// Metadata carries free-form response context, e.g. structured
	// tool-invocation results
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// StreamChunk is one element of a streaming response. A stream is a lazy,
// finite, non-restartable sequence of chunks terminated by exactly one
// chunk with Done set, or by transport closure (surfaced as an implicit
// terminal chunk with empty content).
type StreamChunk struct {
	// Delta is the incremental text content in this chunk
	Delta string `json:"delta"`

	// Done marks the terminal chunk of the stream
	Done bool `json:"done"`

	// Usage is present only on the terminal chunk, when reported
	Usage *TokenUsage `json:"usage,omitempty"`

	// Raw is the unparsed backend payload for non-text deltas
	// (e.g. tool-call fragments)
	Raw json.RawMessage `json:"raw,omitempty"`

	// Error is set if the stream failed; no further chunks follow
	Error error `json:"-"`
}

// Capabilities is a static declaration of what an adapter supports.
// It is read once per adapter type and never mutated.
type Capabilities struct {
	// Streaming indicates support for incremental responses
	Streaming bool

	// MaxContextLength is the largest context window, in tokens (0 = unknown)
	MaxContextLength int

	// FunctionCalling indicates support for tool/function declarations
	FunctionCalling bool

	// Embeddings indicates support for embedding generation
	Embeddings bool

	// Batching indicates support for batched requests
	Batching bool
}

// LocalEndpoint describes a caller-managed endpoint (typically a local
// inference server). When set, it takes precedence over BaseURL for
// address construction and may carry its own credentials.
type LocalEndpoint struct {
	// Host is the endpoint hostname or host:port-free address
	Host string `yaml:"host" json:"host"`

	// Port is appended to the synthesized address when Host carries no scheme
	Port int `yaml:"port" json:"port,omitempty"`

	// Scheme is the protocol to synthesize when Host has none (default http)
	Scheme string `yaml:"scheme" json:"scheme,omitempty"`

	// AuthMode selects the authentication style ("none", "bearer")
	AuthMode string `yaml:"auth_mode" json:"auth_mode,omitempty"`

	// Credentials is the secret used when AuthMode is "bearer"
	Credentials string `yaml:"credentials" json:"-"`

	// Timeout overrides the per-attempt request timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout,omitempty"`

	// RetryAttempts overrides the retry attempt count
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts,omitempty"`

	// HealthCheckPath overrides the adapter's health probe path
	HealthCheckPath string `yaml:"health_check_path" json:"health_check_path,omitempty"`
}

// RewriteRule redirects requests addressed to a matching host to an
// alternate base address. The one intended use is routing hosted-API
// traffic through a same-origin proxy so credentials never reach client
// code; it is a policy hook, not tied to any one backend.
type RewriteRule struct {
	// MatchHost is the request host that triggers the rewrite
	MatchHost string `yaml:"match_host" json:"match_host"`

	// ReplaceBase is the base address substituted for the matched host,
	// scheme included (e.g. "https://app.example.com/api/proxy")
	ReplaceBase string `yaml:"replace_base" json:"replace_base"`
}

// EnterprisePolicy carries optional operational policy for an adapter.
type EnterprisePolicy struct {
	// LoadBalancing is an advisory hint for upstream selection layers
	LoadBalancing string `yaml:"load_balancing" json:"load_balancing,omitempty"`

	// Fallbacks is the ordered failover chain of provider names
	Fallbacks []string `yaml:"fallbacks" json:"fallbacks,omitempty"`

	// Observers receive a record for every completed request
	// (metrics exporters, usage ledgers). Not serializable.
	Observers []Observer `yaml:"-" json:"-"`
}

// ProviderConfig configures a single adapter instance. It is owned by the
// caller, passed at construction, and read-only to the adapter.
type ProviderConfig struct {
	// Name is the provider identifier used for registry lookup
	Name string `yaml:"name"`

	// Type is the adapter family (generic, localmodel)
	Type string `yaml:"type"`

	// Model is the default model identifier
	Model string `yaml:"model"`

	// APIKey is the caller-supplied credential, consumed opaquely
	APIKey string `yaml:"api_key"`

	// BaseURL is the backend base address; may include a scheme
	BaseURL string `yaml:"base_url"`

	// Endpoint optionally describes a local endpoint in place of BaseURL
	Endpoint *LocalEndpoint `yaml:"endpoint"`

	// Policy carries optional enterprise policy (failover list, observers)
	Policy *EnterprisePolicy `yaml:"policy"`

	// Timeout is the per-attempt request timeout (default 30s)
	Timeout time.Duration `yaml:"timeout"`

	// RetryAttempts is the total attempt budget per logical request (default 3)
	RetryAttempts int `yaml:"retry_attempts"`

	// HealthCheckPath overrides the adapter's default health probe path
	HealthCheckPath string `yaml:"health_check_path"`

	// HealthCheckInterval throttles cached health checks (default 30s)
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`

	// Rewrites are endpoint rewrite policy rules applied after construction
	Rewrites []RewriteRule `yaml:"rewrites"`

	// MaxIdleConns caps idle connections in the pool
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost caps idle connections per host
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout bounds how long an idle connection is pooled
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// HealthState is the cached result of the throttled health check.
type HealthState struct {
	// Healthy is the cached boolean result of the last raw check
	Healthy bool

	// LastCheck is when the raw check last ran
	LastCheck time.Time

	// LastError is the most recent raw check failure (nil if healthy)
	LastError error

	// ConsecutiveFailures counts sequential raw check failures
	ConsecutiveFailures int

	// CheckInterval is the minimum spacing between raw checks
	CheckInterval time.Duration
}

// MetricsSnapshot is a point-in-time copy of an adapter's counters.
// Counters are monotonically non-decreasing and reset only by adapter
// re-creation.
type MetricsSnapshot struct {
	// Requests is the total number of completed requests
	Requests int64

	// Errors is the total number of failed requests
	Errors int64

	// TotalLatency is the cumulative wall time of completed requests
	TotalLatency time.Duration

	// AvgLatency is TotalLatency / Requests (zero when no requests)
	AvgLatency time.Duration

	// LastRequest is when the most recent request completed
	LastRequest time.Time
}

// RequestRecord describes one completed request for observers.
type RequestRecord struct {
	// ID is a unique identifier for the request
	ID string

	// Provider is the adapter name
	Provider string

	// Model is the model the request targeted
	Model string

	// Start is when the request began
	Start time.Time

	// Latency is the total request wall time
	Latency time.Duration

	// Usage is the reported token usage, when available
	Usage *TokenUsage

	// Streamed indicates the request used the streaming path
	Streamed bool

	// Err is the terminal error, nil on success
	Err error
}

// Observer receives a record for every completed request on an adapter.
// Implementations must not block; records are advisory.
type Observer interface {
	ObserveRequest(rec RequestRecord)
}

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Finish reason constants
const (
	FinishReasonStop   = "stop"
	FinishReasonLength = "length"
	FinishReasonError  = "error"
)

// Adapter type constants
const (
	TypeGeneric    = "generic"
	TypeLocalModel = "localmodel"
)

// Endpoint auth mode constants
const (
	AuthModeNone   = "none"
	AuthModeBearer = "bearer"
)
