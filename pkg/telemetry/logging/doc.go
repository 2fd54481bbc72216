// Package logging configures the process-wide structured logger. All
// string attribute values pass through a credential redactor so provider
// API keys and bearer tokens never reach log output.
package logging
