package logging

import "regexp"

// Redactor masks credentials in log output. Provider API keys and bearer
// tokens are the values this process actually handles, so those are the
// built-in patterns.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a redactor with the built-in credential patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			{
				// Provider API keys (sk- prefixed and key=value forms).
				regex:       regexp.MustCompile(`(sk-[a-zA-Z0-9_-]+|api[-_]?key[-_:=]\s*[a-zA-Z0-9_-]+)`),
				replacement: "sk-***",
			},
			{
				regex:       regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._~+/=-]+`),
				replacement: "Bearer ***",
			},
		},
	}
}

// Redact returns s with all credential matches masked.
func (r *Redactor) Redact(s string) string {
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}
