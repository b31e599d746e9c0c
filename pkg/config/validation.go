package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := "configuration validation failed:"
	for _, err := range e {
		msg += fmt.Sprintf("\n  - %s", err.Error())
	}
	return msg
}

func (e *ValidationErrors) add(err *ValidationError) {
	if err != nil {
		*e = append(*e, *err)
	}
}

// RequireNonEmpty validates that a string field is not empty
func RequireNonEmpty(field, value string) *ValidationError {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// RequirePositive validates that an integer field is positive
func RequirePositive(field string, value int) *ValidationError {
	if value <= 0 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be positive, got %d", value)}
	}
	return nil
}

func RequirePositiveDuration(field string, value time.Duration) *ValidationError {
	if value <= 0 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be positive, got %s", value)}
	}
	return nil
}

func RequireOneOf(field, value string, allowed ...string) *ValidationError {
	if !slices.Contains(allowed, value) {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be one of %s, got %q", strings.Join(allowed, ", "), value),
		}
	}
	return nil
}

// Validate checks the settings the binary cannot start without.
func (c Config) Validate() error {
	var errs ValidationErrors

	errs.add(RequireOneOf("ACCOUNTD_PERSISTENCE", c.Store.Persistence, "memory", "file", "postgres"))
	errs.add(RequireOneOf("ACCOUNTD_RATELIMIT_BACKEND", c.Store.RateLimitBackend, "memory", "file", "postgres", "redis"))
	if c.Store.Persistence == "file" || c.Store.RateLimitBackend == "file" {
		errs.add(RequireNonEmpty("ACCOUNTD_DATA_DIR", c.Store.DataDir))
	}
	if c.Store.RateLimitBackend == "redis" && len(c.Redis.Addrs) == 0 {
		errs.add(&ValidationError{Field: "ACCOUNTD_REDIS_ADDRS", Message: "is required"})
	}

	errs.add(RequireOneOf("EMAIL_PROVIDER", c.Email.Provider, "smtp", "resend", "log"))
	if c.Email.Provider == "resend" {
		errs.add(RequireNonEmpty("RESEND_API_KEY", c.Email.ResendAPIKey))
	}
	if c.Email.Provider != "log" {
		errs.add(RequireNonEmpty("EMAIL_FROM", c.Email.From))
	}

	errs.add(RequirePositiveDuration("RESET_WINDOW", c.Reset.Window))
	errs.add(RequirePositive("RESET_MAX_ATTEMPTS", c.Reset.MaxAttempts))
	errs.add(RequirePositiveDuration("RESET_UPSTREAM_TIMEOUT", c.Reset.UpstreamTimeout))
	errs.add(RequirePositiveDuration("VERIFICATION_TTL", c.Verification.TTL))
	errs.add(RequirePositiveDuration("VERIFICATION_CODE_TTL", c.Verification.CodeTTL))
	errs.add(RequirePositive("VERIFICATION_MAX_CODE_ATTEMPTS", c.Verification.MaxCodeAttempts))
	errs.add(RequirePositiveDuration("VERIFICATION_CLEANUP_INTERVAL", c.Verification.CleanupInterval))
	errs.add(RequirePositive("OUTBOX_WORKERS", c.Outbox.Workers))

	if len(errs) > 0 {
		return errs
	}
	return nil
}
