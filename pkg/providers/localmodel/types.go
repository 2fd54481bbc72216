package localmodel

// Wire types for the local model runtime's HTTP API.

// generateRequest is the body for POST /api/generate.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

// generateResponse is one response object from /api/generate; in
// streaming mode each NDJSON line carries one of these, with the token
// counters present only on the final line (done=true).
type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

// modelInfo describes one installed model from /api/tags.
type modelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// tagsResponse is the body of GET /api/tags.
type tagsResponse struct {
	Models []modelInfo `json:"models"`
}

// pullRequest is the body for POST /api/pull.
type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// pullResponse is the final status object from /api/pull.
type pullResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
