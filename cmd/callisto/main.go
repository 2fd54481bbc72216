// Callisto is a chat-completion provider gateway CLI.
//
// It speaks to OpenAI-compatible HTTP backends and local model runtimes
// through a common provider contract, providing:
//   - Unified chat requests with retry, health checking, and failover
//   - Streaming completions over SSE and NDJSON
//   - Local model management (list, pull, switch)
//   - Prometheus metrics and a SQLite usage ledger
//
// Usage:
//
//	# Send a chat message through the default provider
//	callisto chat "What is a goroutine?"
//
//	# Stream the response from a named provider
//	callisto chat --provider local --stream "Explain channels"
//
//	# List models available on a local runtime
//	callisto models list --provider local
//
//	# Check the health of every configured provider
//	callisto health
//
//	# Validate a configuration file
//	callisto validate --config /etc/callisto/config.yaml
package main

func main() {
	Execute()
}
