// Package providers implements a unified abstraction layer over
// interchangeable chat-completion backends.
//
// # Overview
//
// The providers package presents one stable contract for talking to a
// hosted API, a local inference server, or an arbitrary user-defined HTTP
// endpoint. It normalizes requests and responses, owns the retry/backoff
// resilience primitive, caches health checks behind a time-windowed
// circuit breaker, and records per-instance request metrics.
//
// # Architecture
//
// The package is organized into layers:
//
//  1. Provider interface - the capability contract every adapter implements
//  2. BaseProvider - shared HTTP client logic (pooling, retry with
//     exponential backoff, per-attempt timeouts, endpoint and auth header
//     construction, throttled health cache, metrics)
//  3. Adapters - subpackages generic and localmodel
//  4. Registry - pkg/registry performs discovery and failover selection
//
// # Basic Usage
//
//	config := providers.ProviderConfig{
//	    Name:    "openai",
//	    Type:    providers.TypeGeneric,
//	    Model:   "gpt-4",
//	    BaseURL: "https://api.openai.com/v1",
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	}
//
//	provider, err := generic.New(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	resp, err := provider.SendMessage(context.Background(), &providers.ChatRequest{
//	    Messages: []providers.Message{
//	        {Role: providers.RoleUser, Content: "Hello!"},
//	    },
//	})
//
// # Streaming
//
//	chunks, err := provider.StreamMessage(ctx, req)
//	if err != nil {
//	    return err
//	}
//	for chunk := range chunks {
//	    if chunk.Error != nil {
//	        return chunk.Error
//	    }
//	    fmt.Print(chunk.Delta)
//	    if chunk.Done {
//	        break
//	    }
//	}
//
// # Resilience
//
// Every request goes through the shared retry helper: up to RetryAttempts
// attempts (default 3), each bound to its own timeout (default 30s), with
// exponential backoff between attempts. Health checks are throttled
// through a cached circuit breaker so repeated availability queries do not
// translate into probe traffic.
package providers
