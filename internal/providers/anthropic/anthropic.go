// Package anthropic implements the billing adapter for the Anthropic Admin API.
//
// Anthropic is the usage-data-unavailable variant: the admin API enumerates
// organizational structure (workspaces and API keys) but has no usage or cost
// endpoint, so ComputeCosts reports the cost-unavailable sentinel instead of
// failing.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"costwatch/internal/apiclient"
	"costwatch/internal/core"
	"costwatch/internal/providers"
	"costwatch/internal/retry"
	"costwatch/internal/usage"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"

	// apiVersion is the required anthropic-version header value.
	apiVersion = "2023-06-01"

	unavailableNote = "the Anthropic admin API does not expose usage data; see the console for billing"
)

func init() {
	providers.Register("anthropic", New)
}

// Provider implements core.Provider for the Anthropic Admin API.
type Provider struct {
	client *apiclient.Client
	apiKey string
	retry  retry.Policy
}

// New creates an Anthropic provider with the given admin API key.
func New(apiKey string, opts providers.Options) (core.Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: admin API key is required")
	}

	p := &Provider{apiKey: apiKey, retry: opts.Retry}

	cfg := apiclient.DefaultConfig("anthropic", defaultBaseURL)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		p.client = apiclient.NewWithHTTPClient(opts.HTTPClient, cfg, p.setHeaders)
	} else {
		p.client = apiclient.New(cfg, p.setHeaders)
	}
	return p, nil
}

// ID returns the provider identifier.
func (p *Provider) ID() string { return "anthropic" }

// setHeaders sets the admin credential and API version headers.
func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
}

// ListWorkspaces enumerates organization workspaces. The listing paginates
// with an after_id cursor.
func (p *Provider) ListWorkspaces(ctx context.Context) ([]core.Workspace, error) {
	var workspaces []core.Workspace
	afterID := ""
	for page := 0; page < usage.DefaultMaxPages; page++ {
		query := url.Values{"limit": {"100"}}
		if afterID != "" {
			query.Set("after_id", afterID)
		}

		var resp struct {
			Data []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"data"`
			HasMore bool   `json:"has_more"`
			LastID  string `json:"last_id"`
		}
		err := p.retry.Do(ctx, func() error {
			return p.client.Do(ctx, apiclient.Request{
				Method:   http.MethodGet,
				Endpoint: "/organizations/workspaces",
				Query:    query,
			}, &resp)
		})
		if err != nil {
			return nil, err
		}

		for _, ws := range resp.Data {
			workspaces = append(workspaces, core.Workspace{ID: ws.ID, Name: ws.Name})
		}
		if !resp.HasMore || resp.LastID == "" {
			return workspaces, nil
		}
		afterID = resp.LastID
	}
	return workspaces, nil
}

// ListProjects enumerates organization API keys, which stand in for projects.
// An empty workspaceID lists keys across the whole organization.
func (p *Provider) ListProjects(ctx context.Context, workspaceID string) ([]core.Project, error) {
	query := url.Values{"limit": {"100"}}
	if workspaceID != "" {
		query.Set("workspace_id", workspaceID)
	}

	var resp struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			WorkspaceID string `json:"workspace_id"`
		} `json:"data"`
	}
	err := p.retry.Do(ctx, func() error {
		return p.client.Do(ctx, apiclient.Request{
			Method:   http.MethodGet,
			Endpoint: "/organizations/api_keys",
			Query:    query,
		}, &resp)
	})
	if err != nil {
		return nil, err
	}

	projects := make([]core.Project, 0, len(resp.Data))
	for _, key := range resp.Data {
		projects = append(projects, core.Project{
			ID:          key.ID,
			Name:        key.Name,
			WorkspaceID: key.WorkspaceID,
		})
	}
	return projects, nil
}

// ComputeCosts reports the cost-unavailable sentinel: the upstream API
// genuinely lacks a usage endpoint, which is not an error condition.
func (p *Provider) ComputeCosts(_ context.Context, _ core.CostQuery) (*core.CostResult, error) {
	return core.UnavailableResult(unavailableNote), nil
}
