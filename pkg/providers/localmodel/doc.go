// Package localmodel implements a chat provider for a local model runtime
// with an Ollama-style HTTP API. Conversations are flattened into
// Human:/Assistant: dialogue prompts for /api/generate; streaming arrives
// as newline-delimited JSON with a done flag on the final object. The
// adapter also manages the runtime's model inventory: listing installed
// models, pulling new ones, and switching the active model at runtime.
package localmodel
