package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"costwatch/internal/cache"
	"costwatch/internal/core"
	"costwatch/internal/costs"
	"costwatch/internal/providers"
)

type mockProvider struct {
	computeErr error
}

func (m *mockProvider) ID() string { return "mock" }

func (m *mockProvider) ListWorkspaces(context.Context) ([]core.Workspace, error) {
	return []core.Workspace{{ID: "ws-1", Name: "main"}}, nil
}

func (m *mockProvider) ListProjects(context.Context, string) ([]core.Project, error) {
	return []core.Project{{ID: "proj-1", Name: "backend", WorkspaceID: "ws-1"}}, nil
}

func (m *mockProvider) ComputeCosts(context.Context, core.CostQuery) (*core.CostResult, error) {
	if m.computeErr != nil {
		return nil, m.computeErr
	}
	return &core.CostResult{
		TotalCostUSD: 4.25,
		LastUpdated:  time.Now().UTC(),
		Breakdown:    []core.ModelCost{{Model: "m-1", CostUSD: 4.25, Requests: 7}},
	}, nil
}

func newTestServer(p core.Provider, cfg *Config) *Server {
	registry := providers.NewRegistry()
	registry.Add(p)
	service := costs.NewService(registry, cache.NewMemoryCache(cache.DefaultTTL), nil, nil)
	return New(service, cfg)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&mockProvider{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListProvidersEndpoint(t *testing.T) {
	srv := newTestServer(&mockProvider{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/providers", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Providers []string `json:"providers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Providers) != 1 || body.Providers[0] != "mock" {
		t.Errorf("providers = %v", body.Providers)
	}
}

func TestListWorkspacesEndpoint(t *testing.T) {
	srv := newTestServer(&mockProvider{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/providers/mock/workspaces", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ws-1") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGetCostsEndpoint(t *testing.T) {
	srv := newTestServer(&mockProvider{}, nil)

	url := "/v1/costs?provider=mock&start=2026-03-01&end=2026-03-15"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", got)
	}

	var result core.CostResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.TotalCostUSD != 4.25 || len(result.Breakdown) != 1 {
		t.Errorf("result = %+v", result)
	}

	// Same query again comes from the cache.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	if got := rec.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", got)
	}
}

func TestGetCostsValidation(t *testing.T) {
	srv := newTestServer(&mockProvider{}, nil)

	tests := []struct {
		name string
		url  string
	}{
		{"missing provider", "/v1/costs?start=2026-03-01&end=2026-03-15"},
		{"bad start date", "/v1/costs?provider=mock&start=yesterday&end=2026-03-15"},
		{"end before start", "/v1/costs?provider=mock&start=2026-03-15&end=2026-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), "invalid_request_error") {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestGetCostsUpstreamErrorMapping(t *testing.T) {
	srv := newTestServer(&mockProvider{
		computeErr: core.NewAuthenticationError("mock", "key rejected"),
	}, nil)

	url := "/v1/costs?provider=mock&start=2026-03-01&end=2026-03-15"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "authentication_error") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestUnknownProviderIs404(t *testing.T) {
	srv := newTestServer(&mockProvider{}, nil)

	url := "/v1/costs?provider=ghost&start=2026-03-01&end=2026-03-15"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404, body = %s", rec.Code, rec.Body.String())
	}
}

func TestClearCacheEndpoint(t *testing.T) {
	srv := newTestServer(&mockProvider{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/v1/cache", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		config         *Config
		requestPath    string
		expectedStatus int
		expectBody     string
	}{
		{
			name:           "metrics enabled - default endpoint accessible",
			config:         &Config{MetricsEnabled: true},
			requestPath:    "/metrics",
			expectedStatus: http.StatusOK,
			expectBody:     "go_goroutines",
		},
		{
			name:           "metrics enabled - custom endpoint",
			config:         &Config{MetricsEnabled: true, MetricsEndpoint: "/internal/metrics"},
			requestPath:    "/internal/metrics",
			expectedStatus: http.StatusOK,
			expectBody:     "go_goroutines",
		},
		{
			name:           "metrics disabled - endpoint absent",
			config:         nil,
			requestPath:    "/metrics",
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockProvider{}, tt.config)

			req := httptest.NewRequest(http.MethodGet, tt.requestPath, nil)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.expectedStatus)
			}
			if tt.expectBody != "" && !strings.Contains(rec.Body.String(), tt.expectBody) {
				t.Errorf("body missing %q", tt.expectBody)
			}
		})
	}
}
