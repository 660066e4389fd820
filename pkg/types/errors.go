// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// ErrNoProxyAvailable is returned when the proxy pool is empty after a
// refresh and no candidate passed validation.
var ErrNoProxyAvailable = errors.New("no working proxies available")

// ConfigurationError reports invalid caller input: a bad date, an
// unsupported sort key or export format. It is never retried.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// NewConfigurationError is a shorthand constructor.
func NewConfigurationError(field, value, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// FetchExhaustedError reports that every attempt of one HTTP operation
// failed. Callers treat it as "this batch yielded nothing", not as a reason
// to abort a whole search. Err is the error of the final attempt.
type FetchExhaustedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("fetching %s: giving up after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error { return e.Err }
