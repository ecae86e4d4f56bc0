package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an upstream failure. The pipeline's retry policy keys
// off this classification: transient kinds are retried, everything else
// aborts the query immediately.
type ErrorKind string

const (
	// ErrorKindAuthentication indicates a missing, rejected, or under-scoped credential.
	ErrorKindAuthentication ErrorKind = "authentication_error"
	// ErrorKindNotFound indicates a malformed endpoint or an upstream contract change.
	ErrorKindNotFound ErrorKind = "not_found_error"
	// ErrorKindTransient indicates a retryable upstream failure (unavailable, timeout).
	ErrorKindTransient ErrorKind = "transient_error"
	// ErrorKindMalformed indicates a response whose shape could not be parsed.
	ErrorKindMalformed ErrorKind = "malformed_response"
	// ErrorKindInvalidRequest indicates a client-side mistake in the query itself.
	ErrorKindInvalidRequest ErrorKind = "invalid_request_error"
)

// UpstreamError is the structured error value for all upstream failures.
// It replaces message-substring classification with an explicit kind and
// status so retry decisions are testable independently of any provider.
type UpstreamError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Provider   string    `json:"provider,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the status code to surface for this error.
func (e *UpstreamError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Kind {
	case ErrorKindAuthentication:
		return http.StatusUnauthorized
	case ErrorKindNotFound:
		return http.StatusNotFound
	case ErrorKindInvalidRequest:
		return http.StatusBadRequest
	case ErrorKindTransient, ErrorKindMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map for HTTP responses.
func (e *UpstreamError) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Kind,
			"message": e.Message,
		},
	}
}

// NewAuthenticationError creates an authentication/permission error (fatal, no retry).
func NewAuthenticationError(provider, message string) *UpstreamError {
	return &UpstreamError{
		Kind:       ErrorKindAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Provider:   provider,
	}
}

// NewNotFoundError creates a not-found error (fatal, no retry).
func NewNotFoundError(provider, message string) *UpstreamError {
	return &UpstreamError{
		Kind:       ErrorKindNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Provider:   provider,
	}
}

// NewTransientError creates a retryable upstream error.
func NewTransientError(provider string, statusCode int, message string, err error) *UpstreamError {
	return &UpstreamError{
		Kind:       ErrorKindTransient,
		Message:    message,
		StatusCode: statusCode,
		Provider:   provider,
		Err:        err,
	}
}

// NewMalformedResponseError creates an error for an unparseable upstream payload.
func NewMalformedResponseError(provider, message string, err error) *UpstreamError {
	return &UpstreamError{
		Kind:       ErrorKindMalformed,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Provider:   provider,
		Err:        err,
	}
}

// NewInvalidRequestError creates an error for a malformed query.
func NewInvalidRequestError(message string, err error) *UpstreamError {
	return &UpstreamError{
		Kind:       ErrorKindInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// IsTransient reports whether err is retryable. Plain network errors (no
// structured classification available) are treated as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind == ErrorKindTransient
	}
	return true
}

// ParseUpstreamError classifies an error response from a billing API into an
// UpstreamError. It extracts a human-readable message from common JSON error
// envelopes, falling back to the raw body.
func ParseUpstreamError(provider string, statusCode int, body []byte) *UpstreamError {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}

	message := string(body)
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch {
		case envelope.Error.Message != "":
			message = envelope.Error.Message
		case envelope.Message != "":
			message = envelope.Message
		case envelope.Detail != "":
			message = envelope.Detail
		}
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e := NewAuthenticationError(provider, message)
		e.StatusCode = statusCode
		return e
	case statusCode == http.StatusNotFound:
		return NewNotFoundError(provider, message)
	case statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= 500:
		return NewTransientError(provider, statusCode, message, nil)
	default:
		e := NewInvalidRequestError(message, nil)
		e.Provider = provider
		e.StatusCode = statusCode
		return e
	}
}
