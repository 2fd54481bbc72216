// Package generic implements a chat provider for any JSON-over-HTTP
// backend. Request construction, response parsing, and stream-chunk
// decoding are pluggable strategies; the defaults speak the
// OpenAI-compatible dialect (chat completions plus "data:"-prefixed SSE
// streaming with a [DONE] sentinel), which also covers vLLM, LM Studio,
// and similar self-hosted servers without custom transformers.
package generic
