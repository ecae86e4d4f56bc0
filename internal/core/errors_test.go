package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestParseUpstreamError_Classification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantKind   ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, ErrorKindAuthentication},
		{"forbidden", http.StatusForbidden, ErrorKindAuthentication},
		{"not found", http.StatusNotFound, ErrorKindNotFound},
		{"timeout", http.StatusRequestTimeout, ErrorKindTransient},
		{"rate limited", http.StatusTooManyRequests, ErrorKindTransient},
		{"unavailable", http.StatusServiceUnavailable, ErrorKindTransient},
		{"internal", http.StatusInternalServerError, ErrorKindTransient},
		{"bad request", http.StatusBadRequest, ErrorKindInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseUpstreamError("openai", tt.statusCode, []byte(`{}`))
			if err.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", err.Kind, tt.wantKind)
			}
			if err.Provider != "openai" {
				t.Errorf("provider = %q, want openai", err.Provider)
			}
		})
	}
}

func TestParseUpstreamError_MessageExtraction(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"openai envelope", `{"error":{"message":"invalid key","type":"invalid_request_error"}}`, "invalid key"},
		{"flat message", `{"message":"workspace not found"}`, "workspace not found"},
		{"detail field", `{"detail":"quota exceeded"}`, "quota exceeded"},
		{"plain text", `service unavailable`, "service unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseUpstreamError("p", http.StatusServiceUnavailable, []byte(tt.body))
			if err.Message != tt.want {
				t.Errorf("message = %q, want %q", err.Message, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
	if IsTransient(NewAuthenticationError("p", "denied")) {
		t.Error("authentication errors must not be retried")
	}
	if IsTransient(NewNotFoundError("p", "gone")) {
		t.Error("not-found errors must not be retried")
	}
	if !IsTransient(NewTransientError("p", http.StatusServiceUnavailable, "down", nil)) {
		t.Error("transient errors must be retried")
	}
	// Unclassified errors (raw network failures) are treated as transient.
	if !IsTransient(errors.New("connection reset")) {
		t.Error("plain errors should be treated as transient")
	}
	// Wrapped structured errors keep their classification.
	wrapped := fmt.Errorf("fetch window: %w", NewAuthenticationError("p", "denied"))
	if IsTransient(wrapped) {
		t.Error("wrapped authentication error must not be retried")
	}
}

func TestUpstreamError_Error(t *testing.T) {
	err := NewAuthenticationError("deepgram", "token rejected")
	want := "[deepgram] authentication_error: token rejected"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestUpstreamError_HTTPStatusCode(t *testing.T) {
	e := &UpstreamError{Kind: ErrorKindTransient}
	if got := e.HTTPStatusCode(); got != http.StatusBadGateway {
		t.Errorf("default transient status = %d, want %d", got, http.StatusBadGateway)
	}
	e = &UpstreamError{Kind: ErrorKindAuthentication, StatusCode: http.StatusForbidden}
	if got := e.HTTPStatusCode(); got != http.StatusForbidden {
		t.Errorf("explicit status = %d, want %d", got, http.StatusForbidden)
	}
}
