package providers

import "context"

// Provider is the capability contract every backend adapter implements.
// It presents one stable interface over heterogeneous chat-completion
// backends (hosted APIs, local inference servers, user-defined endpoints).
//
// All methods accept a context.Context for cancellation and timeout
// control. Implementations must respect context cancellation.
//
// Example usage:
//
//	provider, err := generic.New(config)
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
//
//	resp, err := provider.SendMessage(ctx, &providers.ChatRequest{
//	    Messages: []providers.Message{
//	        {Role: providers.RoleUser, Content: "Hello!"},
//	    },
//	})
type Provider interface {
	// Name returns the provider's configured name.
	Name() string

	// Type returns the adapter family (generic, localmodel).
	Type() string

	// Config returns the provider's configuration.
	Config() ProviderConfig

	// Capabilities returns the adapter's static capability declaration.
	Capabilities() Capabilities

	// ValidateConfig checks the configuration for completeness.
	// Failures are ConfigError values and are never retried.
	ValidateConfig() error

	// Authenticate verifies the configured credentials against the backend.
	// A failure is an AuthError and may trigger failover.
	Authenticate(ctx context.Context) error

	// CheckHealth performs one raw, unthrottled health probe.
	CheckHealth(ctx context.Context) error

	// IsAvailable is the throttled, cached wrapper around CheckHealth.
	// Within the configured interval it returns the cached result without
	// network I/O; outside it, it refreshes the cache. Probe failures are
	// converted into a cached false and never surfaced.
	IsAvailable(ctx context.Context) bool

	// SendMessage sends a complete (non-streaming) chat request and
	// returns the normalized response. Transient transport failures are
	// retried with exponential backoff inside this call.
	SendMessage(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// StreamMessage sends a streaming chat request. It returns a channel
	// yielding chunks in transport order, terminated by exactly one chunk
	// with Done set (or with Error set on stream failure). Cancelling the
	// context closes the underlying transport read.
	StreamMessage(ctx context.Context, req *ChatRequest) (<-chan *StreamChunk, error)

	// Metrics returns a snapshot of the adapter's request counters.
	Metrics() MetricsSnapshot

	// Health returns the adapter's cached health state.
	Health() HealthState

	// Close releases the adapter's resources (idle connections, health
	// checker). The adapter must not be used after Close.
	Close() error
}

// StreamReader abstracts a backend's streaming wire protocol. Read returns
// the next chunk, io.EOF at normal end of stream, or an error.
type StreamReader interface {
	// Read reads the next chunk from the stream.
	Read(ctx context.Context) (*StreamChunk, error)

	// Close closes the stream and releases resources.
	Close() error
}
