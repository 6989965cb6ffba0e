package waitlist

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRateLimited is returned when a client exhausted its request window.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNotMember indicates the address is not recorded in the waitlist store.
	ErrNotMember = errors.New("email not found in waitlist")
)

// ValidationError is a user-correctable input problem.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConfigError indicates a required credential or setting is absent.
type ConfigError struct {
	Component string
	Missing   []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s not configured: missing %s", e.Component, strings.Join(e.Missing, ", "))
}

// ProviderError is a downstream failure. Detail is client-safe; Err and
// Status are kept for logs.
type ProviderError struct {
	Err      error
	Provider string
	Detail   string
	Status   int
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Provider, e.Status)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// DispatchError wraps an email delivery failure.
type DispatchError struct {
	Err      error
	Provider string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch via %s: %v", e.Provider, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConfig reports whether err is a ConfigError.
func IsConfig(err error) bool {
	var c *ConfigError
	return errors.As(err, &c)
}
