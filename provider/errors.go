package provider

import (
	"errors"
	"fmt"
)

// ConfigError indicates a misconfigured provider: a missing credential or
// an unknown provider name. It is raised at construction time, before any
// network call is attempted.
type ConfigError struct {
	Provider string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

// NewConfigError creates a ConfigError for the given provider.
func NewConfigError(provider, format string, args ...any) *ConfigError {
	return &ConfigError{
		Provider: provider,
		Message:  fmt.Sprintf(format, args...),
	}
}

// IsConfigError checks if an error is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// ConnectionError indicates that a local or self-hosted provider endpoint
// is unreachable. Hint carries a human-readable remediation step.
type ConnectionError struct {
	Provider string
	Endpoint string
	Hint     string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot reach %s at %s: %v\n%s", e.Provider, e.Endpoint, e.Err, e.Hint)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnectionError checks if an error is or wraps a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
