// Package errors defines the error taxonomy shared by the harvester packages.
package errors

import (
	"fmt"
	"strings"
)

// ConfigError indicates a problem with the client configuration.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// InvalidParameterError reports a request parameter rejected before any network call.
// The caller can recover by supplying a valid value.
type InvalidParameterError struct {
	// Field is the request parameter at fault, e.g. "time_range".
	Field string
	// Value is the offending value, empty when the parameter was missing.
	Value string
	// Message contains the detailed error message
	Message string
}

func (e *InvalidParameterError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid parameter %s=%q: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Message)
}

// AuthError indicates the token exchange failed or returned no access token.
type AuthError struct {
	// StatusCode is the HTTP status code (if from an HTTP response)
	StatusCode int
	// Message contains the detailed error message
	Message string
	// Body contains the raw response body (if available)
	Body string
	// Err contains the underlying error if available
	Err error
}

func (e *AuthError) Error() string {
	parts := []string{}

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status code %d", e.StatusCode))
	}
	if e.Body != "" {
		parts = append(parts, fmt.Sprintf("body: %q", e.Body))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("err: %v", e.Err))
	}

	if len(parts) == 0 {
		return "auth error"
	}
	return "auth error: " + strings.Join(parts, ", ")
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// HTTPError is returned for any non-2xx response. URL never carries the
// OAuth-only host; it is rewritten to the public host before the error is built.
type HTTPError struct {
	// StatusCode is the HTTP status code
	StatusCode int
	// Reason is the status text sent by the server
	Reason string
	// URL is the sanitized request URL
	URL string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request returned a %d error for the url %s: %s", e.StatusCode, e.URL, e.Reason)
}

// StateError indicates an operation was attempted when the client is not ready.
type StateError struct {
	// Operation is the name of the operation that was attempted
	Operation string
	// Message contains the detailed error message
	Message string
}

func (e *StateError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("state error during %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("state error: %s", e.Message)
}

// RequestError indicates the request could not be sent or its body could not be read.
type RequestError struct {
	// Operation is the name of the API operation that failed
	Operation string
	// URL is the sanitized URL that was being accessed
	URL string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Operation != "" && e.URL != "" {
		return fmt.Sprintf("request error during %s to %s: %s", e.Operation, e.URL, msg)
	} else if e.Operation != "" {
		return fmt.Sprintf("request error during %s: %s", e.Operation, msg)
	}
	return fmt.Sprintf("request error: %s", msg)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ParseError indicates a response body did not have the expected shape.
type ParseError struct {
	// Operation is the name of the API operation where parsing failed
	Operation string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Operation != "" {
		return fmt.Sprintf("parse error during %s: %s", e.Operation, msg)
	}
	return fmt.Sprintf("parse error: %s", msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
