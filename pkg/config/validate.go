package config

import (
	"fmt"
	"net/url"
	"strings"

	"meridian-hq/callisto/pkg/providers"
)

// FieldError represents a validation error for a specific configuration
// field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "providers.openai.base_url").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. All field errors are collected and reported together.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a
// ValidationError if any rule fails.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateProviders(cfg)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level %q (expected debug, info, warn, or error)", cfg.Level),
		})
	}

	switch cfg.Format {
	case "text", "json":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format %q (expected text or json)", cfg.Format),
		})
	}

	return errs
}

func validateProviders(cfg *Config) []FieldError {
	var errs []FieldError

	if cfg.DefaultProvider != "" {
		if _, ok := cfg.Providers[cfg.DefaultProvider]; !ok {
			errs = append(errs, FieldError{
				Field:   "default_provider",
				Message: fmt.Sprintf("provider %q is not configured", cfg.DefaultProvider),
			})
		}
	}

	for name, p := range cfg.Providers {
		prefix := "providers." + name

		switch p.Type {
		case providers.TypeGeneric, providers.TypeLocalModel:
		case "":
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: "provider type is required",
			})
		default:
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: fmt.Sprintf("unknown provider type %q", p.Type),
			})
		}

		if p.BaseURL != "" {
			if u, err := url.Parse(p.BaseURL); err != nil || u.Host == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".base_url",
					Message: fmt.Sprintf("invalid base URL %q", p.BaseURL),
				})
			}
		} else if p.Type == providers.TypeGeneric && (p.Endpoint == nil || p.Endpoint.Host == "") {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: "a base URL or endpoint is required",
			})
		}

		if p.Endpoint != nil && (p.Endpoint.Port < 0 || p.Endpoint.Port > 65535) {
			errs = append(errs, FieldError{
				Field:   prefix + ".endpoint.port",
				Message: fmt.Sprintf("port %d out of range", p.Endpoint.Port),
			})
		}

		if p.RetryAttempts < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".retry_attempts",
				Message: "retry attempts cannot be negative",
			})
		}
		if p.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: "timeout cannot be negative",
			})
		}

		for _, fb := range p.Fallbacks {
			if _, ok := cfg.Providers[fb]; !ok {
				errs = append(errs, FieldError{
					Field:   prefix + ".fallbacks",
					Message: fmt.Sprintf("fallback %q is not configured", fb),
				})
			}
		}

		for i, rule := range p.Rewrites {
			if rule.MatchHost == "" || rule.ReplaceBase == "" {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("%s.rewrites[%d]", prefix, i),
					Message: "match_host and replace_base are both required",
				})
			}
		}
	}

	return errs
}
