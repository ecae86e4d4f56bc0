// Package openai implements the billing adapter for the OpenAI Admin API.
//
// OpenAI is the multi-workspace, token-denominated variant: organization
// projects map onto workspaces, project API keys stand in for projects, and
// usage is served by a paginated, bucketed listing grouped by model.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"costwatch/internal/apiclient"
	"costwatch/internal/core"
	"costwatch/internal/providers"
	"costwatch/internal/retry"
	"costwatch/internal/usage"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	// maxWindowDays is the upstream cap on the queryable span per usage request.
	maxWindowDays = 30

	// pageLimit is the bucket count requested per usage page.
	pageLimit = 31
)

func init() {
	providers.Register("openai", New)
}

// Provider implements core.Provider for the OpenAI Admin API.
type Provider struct {
	client  *apiclient.Client
	apiKey  string
	retry   retry.Policy
	pricing *usage.PricingTable
	logger  *slog.Logger
}

// New creates an OpenAI provider with the given admin API key.
func New(apiKey string, opts providers.Options) (core.Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: admin API key is required")
	}

	p := &Provider{
		apiKey:  apiKey,
		retry:   opts.Retry,
		pricing: defaultPricing(),
		logger:  slog.Default().With("provider", "openai"),
	}
	p.pricing.Apply(opts.PricingOverrides)

	cfg := apiclient.DefaultConfig("openai", defaultBaseURL)
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
func (p *Provider) ID() string { return "openai" }

// setHeaders sets the admin bearer credential on upstream requests.
func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
}

// ListWorkspaces enumerates organization projects, which act as workspaces
// for this provider. The listing is cursor-paginated.
func (p *Provider) ListWorkspaces(ctx context.Context) ([]core.Workspace, error) {
	var workspaces []core.Workspace
	after := ""
	for page := 0; page < usage.DefaultMaxPages; page++ {
		query := url.Values{"limit": {"100"}}
		if after != "" {
			query.Set("after", after)
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
				Endpoint: "/organization/projects",
				Query:    query,
			}, &resp)
		})
		if err != nil {
			return nil, err
		}

		for _, proj := range resp.Data {
			workspaces = append(workspaces, core.Workspace{ID: proj.ID, Name: proj.Name})
		}
		if !resp.HasMore || resp.LastID == "" {
			return workspaces, nil
		}
		after = resp.LastID
	}
	return workspaces, nil
}

// ListProjects enumerates the API keys of one organization project; keys are
// the billing-trackable unit below a workspace for this provider.
func (p *Provider) ListProjects(ctx context.Context, workspaceID string) ([]core.Project, error) {
	if workspaceID == "" {
		return nil, core.NewInvalidRequestError("openai: workspace id is required to list projects", nil)
	}

	var resp struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	err := p.retry.Do(ctx, func() error {
		return p.client.Do(ctx, apiclient.Request{
			Method:   http.MethodGet,
			Endpoint: "/organization/projects/" + url.PathEscape(workspaceID) + "/api_keys",
			Query:    url.Values{"limit": {"100"}},
		}, &resp)
	})
	if err != nil {
		return nil, err
	}

	projects := make([]core.Project, 0, len(resp.Data))
	for _, key := range resp.Data {
		projects = append(projects, core.Project{ID: key.ID, Name: key.Name, WorkspaceID: workspaceID})
	}
	return projects, nil
}

// ComputeCosts runs the chunk/paginate/aggregate pipeline over the usage
// listing and prices the accumulated token counts.
func (p *Provider) ComputeCosts(ctx context.Context, query core.CostQuery) (*core.CostResult, error) {
	windows := usage.SplitWindows(query.Start, query.End, maxWindowDays)
	agg := usage.NewAggregator()
	fetcher := &usage.Fetcher{Retry: p.retry, Logger: p.logger}

	// Windows run strictly sequentially to bound upstream concurrency.
	for _, w := range windows {
		entries, err := fetcher.Drain(ctx, p.usagePage(w, query))
		if err != nil {
			return nil, fmt.Errorf("openai usage window %s: %w",
				w.Start.Format(core.DateLayout), err)
		}
		agg.Add(entries...)
	}

	breakdown, total := usage.ComputeBreakdown(agg.Totals(), p.pricing)
	return &core.CostResult{
		TotalCostUSD: total,
		LastUpdated:  time.Now().UTC(),
		Breakdown:    breakdown,
	}, nil
}

// usagePage returns a PageFunc fetching one page of the bucketed usage
// listing for a window.
func (p *Provider) usagePage(w core.TimeWindow, query core.CostQuery) usage.PageFunc {
	return func(ctx context.Context, cursor string) (*core.UsagePage, error) {
		q := url.Values{
			"start_time": {strconv.FormatInt(w.Start.Unix(), 10)},
			"end_time":   {strconv.FormatInt(w.End.Unix(), 10)},
			"group_by":   {"model"},
			"limit":      {strconv.Itoa(pageLimit)},
		}
		if query.WorkspaceID != "" {
			q.Set("project_ids", query.WorkspaceID)
		}
		if query.ProjectID != "" {
			q.Set("api_key_ids", query.ProjectID)
		}
		if cursor != "" {
			q.Set("page", cursor)
		}

		resp, err := p.client.DoRaw(ctx, apiclient.Request{
			Method:   http.MethodGet,
			Endpoint: "/organization/usage/completions",
			Query:    q,
		})
		if err != nil {
			return nil, err
		}
		return p.parseUsagePage(resp.Body), nil
	}
}

// parseUsagePage normalizes one raw usage response. The listing nests
// per-model results inside daily buckets; a payload with neither shape is
// treated as an empty page and logged for diagnosis.
func (p *Provider) parseUsagePage(body []byte) *core.UsagePage {
	if !gjson.ValidBytes(body) {
		p.logger.Warn("malformed usage payload, treating as empty page")
		return &core.UsagePage{}
	}

	schema := usage.EntrySchema{
		Model:       "model",
		InputUnits:  "input_tokens",
		OutputUnits: "output_tokens",
		Requests:    "num_model_requests",
	}

	page := &core.UsagePage{}
	root := gjson.ParseBytes(body)
	if buckets := root.Get("data"); buckets.IsArray() {
		for _, bucket := range buckets.Array() {
			page.Entries = append(page.Entries,
				usage.ParseEntries([]byte(bucket.Raw), "results", schema)...)
		}
	} else {
		// Some deployments return a single flat result object.
		page.Entries = usage.ParseEntries(body, "results", schema)
		if len(page.Entries) == 0 {
			p.logger.Warn("unexpected usage payload shape, treating as empty page")
		}
	}
	page.HasMore = root.Get("has_more").Bool()
	page.NextCursor = root.Get("next_page").String()
	return page
}

// defaultPricing is the static USD-per-Mtok table for OpenAI models.
func defaultPricing() *usage.PricingTable {
	return &usage.PricingTable{
		Prices: map[string]usage.PriceTuple{
			"gpt-4o":        {Input: 2.50, Output: 10.00},
			"gpt-4o-mini":   {Input: 0.15, Output: 0.60},
			"gpt-4.1":       {Input: 2.00, Output: 8.00},
			"gpt-4.1-mini":  {Input: 0.40, Output: 1.60},
			"gpt-4.1-nano":  {Input: 0.10, Output: 0.40},
			"o3":            {Input: 2.00, Output: 8.00},
			"o4-mini":       {Input: 1.10, Output: 4.40},
			"gpt-3.5-turbo": {Input: 0.50, Output: 1.50},
		},
		Default:     usage.PriceTuple{Input: 2.50, Output: 10.00},
		UnitDivisor: 1_000_000,
	}
}
