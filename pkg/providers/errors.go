package providers

import (
	"fmt"
	"time"
)

// ConfigError reports an invalid adapter configuration. It is surfaced at
// validation time and never retried.
type ConfigError struct {
	// Provider is the name of the misconfigured provider
	Provider string

	// Field is the configuration field at fault
	Field string

	// Message describes the problem
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}

// AuthError reports an authentication failure (HTTP 401/403 or a failed
// authentication probe). It is not retried by this layer; it may trigger
// failover when a fallback chain is configured.
type AuthError struct {
	// Provider is the name of the provider that rejected authentication
	Provider string

	// Message is the error detail from the provider
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// NetworkError reports a transport failure or non-2xx response after the
// retry budget is exhausted. It carries the last observed status and body.
type NetworkError struct {
	// Provider is the name of the provider
	Provider string

	// StatusCode is the last HTTP status (0 for transport-level failures)
	StatusCode int

	// Body is the last response body, when one was read
	Body string

	// Attempts is how many attempts were made
	Attempts int

	// Cause is the last underlying error
	Cause error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q request failed after %d attempt(s) (status %d): %s",
			e.Provider, e.Attempts, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("provider %q request failed after %d attempt(s): %v",
		e.Provider, e.Attempts, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// RateLimitError reports a rate-limited request (HTTP 429). It is not
// retried locally; the Retry-After hint is passed through to the caller.
type RateLimitError struct {
	// Provider is the name of the provider
	Provider string

	// RetryAfter is the wait suggested by the provider (0 if absent)
	RetryAfter time.Duration

	// Message is the error detail from the provider
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// ProtocolError reports a response or stream payload that matches no
// recognized shape. It is surfaced immediately with the offending payload.
type ProtocolError struct {
	// Provider is the name of the provider
	Provider string

	// Payload is the raw payload that failed to parse
	Payload string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("provider %q protocol error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// StreamError reports a failure while opening or reading a stream.
type StreamError struct {
	// Provider is the name of the provider
	Provider string

	// Message describes where in the stream lifecycle the failure occurred
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %q stream error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %q stream error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamError) Unwrap() error {
	return e.Cause
}

// ValidationError reports an invalid request before it is sent.
type ValidationError struct {
	// Field is the request field at fault
	Field string

	// Message describes what is invalid
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}
