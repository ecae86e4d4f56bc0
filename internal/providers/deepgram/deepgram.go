// Package deepgram implements the billing adapter for the Deepgram API.
//
// Deepgram is the project-scoped, duration-denominated variant: usage is
// reported per project as transcribed audio time, bounded by calendar dates
// rather than epoch timestamps, in at most 31-day slices. When a query names
// no workspace the adapter walks every project in the account sequentially.
package deepgram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"costwatch/internal/apiclient"
	"costwatch/internal/core"
	"costwatch/internal/providers"
	"costwatch/internal/retry"
	"costwatch/internal/usage"
)

const (
	defaultBaseURL = "https://api.deepgram.com/v1"

	// maxWindowDays is the longest date range the usage endpoint accepts.
	maxWindowDays = 31
)

func init() {
	providers.Register("deepgram", New)
}

// Provider implements core.Provider for the Deepgram management API.
type Provider struct {
	client  *apiclient.Client
	apiKey  string
	retry   retry.Policy
	pricing *usage.PricingTable
	logger  *slog.Logger
}

// New creates a Deepgram provider with the given API key.
func New(apiKey string, opts providers.Options) (core.Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram: API key is required")
	}

	p := &Provider{
		apiKey:  apiKey,
		retry:   opts.Retry,
		pricing: defaultPricing(),
		logger:  slog.Default().With("provider", "deepgram"),
	}
	p.pricing.Apply(opts.PricingOverrides)

	cfg := apiclient.DefaultConfig("deepgram", defaultBaseURL)
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
func (p *Provider) ID() string { return "deepgram" }

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Token "+p.apiKey)
}

type projectList struct {
	Projects []struct {
		ProjectID string `json:"project_id"`
		Name      string `json:"name"`
	} `json:"projects"`
}

// ListWorkspaces maps Deepgram projects onto workspaces; they are the
// account's only grouping level.
func (p *Provider) ListWorkspaces(ctx context.Context) ([]core.Workspace, error) {
	var list projectList
	err := p.retry.Do(ctx, func() error {
		return p.client.Do(ctx, apiclient.Request{
			Method:   http.MethodGet,
			Endpoint: "/projects",
		}, &list)
	})
	if err != nil {
		return nil, err
	}

	workspaces := make([]core.Workspace, 0, len(list.Projects))
	for _, proj := range list.Projects {
		workspaces = append(workspaces, core.Workspace{ID: proj.ProjectID, Name: proj.Name})
	}
	return workspaces, nil
}

type keyList struct {
	APIKeys []struct {
		APIKey struct {
			APIKeyID string `json:"api_key_id"`
			Comment  string `json:"comment"`
		} `json:"api_key"`
	} `json:"api_keys"`
}

// ListProjects maps a Deepgram project's API keys onto projects. Keys
// identify callers, but the usage endpoint reports at project granularity
// only, so key-scoped cost queries are rejected.
func (p *Provider) ListProjects(ctx context.Context, workspaceID string) ([]core.Project, error) {
	var list keyList
	err := p.retry.Do(ctx, func() error {
		return p.client.Do(ctx, apiclient.Request{
			Method:   http.MethodGet,
			Endpoint: "/projects/" + url.PathEscape(workspaceID) + "/keys",
		}, &list)
	})
	if err != nil {
		return nil, err
	}

	projects := make([]core.Project, 0, len(list.APIKeys))
	for _, k := range list.APIKeys {
		projects = append(projects, core.Project{
			ID:          k.APIKey.APIKeyID,
			Name:        k.APIKey.Comment,
			WorkspaceID: workspaceID,
		})
	}
	return projects, nil
}

// ComputeCosts sums transcription time across the query's date range and
// prices it per audio hour. A query without a workspace walks every project
// in the account, one at a time.
func (p *Provider) ComputeCosts(ctx context.Context, q core.CostQuery) (*core.CostResult, error) {
	if q.ProjectID != "" {
		return nil, core.NewInvalidRequestError(
			"deepgram: usage is reported per project and cannot be filtered by API key", nil)
	}

	projectIDs := []string{q.WorkspaceID}
	if q.WorkspaceID == "" {
		workspaces, err := p.ListWorkspaces(ctx)
		if err != nil {
			return nil, err
		}
		projectIDs = projectIDs[:0]
		for _, ws := range workspaces {
			projectIDs = append(projectIDs, ws.ID)
		}
	}

	windows := usage.SplitWindows(q.Start, q.End, maxWindowDays)
	fetcher := &usage.Fetcher{Retry: p.retry, Logger: p.logger}
	agg := usage.NewAggregator()

	for _, projectID := range projectIDs {
		for _, w := range windows {
			entries, err := fetcher.Drain(ctx, p.usagePage(projectID, w))
			if err != nil {
				return nil, fmt.Errorf("project %s window %s: %w",
					projectID, w.Start.Format(core.DateLayout), err)
			}
			agg.Add(entries...)
		}
	}

	breakdown, total := usage.ComputeBreakdown(agg.Totals(), p.pricing)
	return &core.CostResult{
		TotalCostUSD: total,
		LastUpdated:  time.Now().UTC(),
		Breakdown:    breakdown,
	}, nil
}

// usagePage fetches the usage summary for one project and window. The
// endpoint is not paginated; the whole window arrives in one response.
func (p *Provider) usagePage(projectID string, w core.TimeWindow) usage.PageFunc {
	return func(ctx context.Context, _ string) (*core.UsagePage, error) {
		// The upstream treats both calendar bounds inclusively, so the
		// window's exclusive End maps to the preceding day.
		query := url.Values{}
		query.Set("start", w.Start.Format(core.DateLayout))
		query.Set("end", w.End.AddDate(0, 0, -1).Format(core.DateLayout))

		resp, err := p.client.DoRaw(ctx, apiclient.Request{
			Method:   http.MethodGet,
			Endpoint: "/projects/" + url.PathEscape(projectID) + "/usage",
			Query:    query,
		})
		if err != nil {
			return nil, err
		}
		return p.parseUsage(resp.Body, w), nil
	}
}

// parseUsage converts the per-day result buckets of a usage summary into
// normalized entries. Hours are converted to whole seconds so all duration
// providers accumulate in the same unit. Buckets without a model label fall
// into the unknown bucket and are priced at the default rate.
func (p *Provider) parseUsage(raw []byte, w core.TimeWindow) *core.UsagePage {
	if !gjson.ValidBytes(raw) {
		p.logger.Warn("unparseable usage response, treating window as empty",
			"window_start", w.Start.Format(core.DateLayout))
		return &core.UsagePage{}
	}

	var entries []core.UsageEntry
	for _, r := range gjson.GetBytes(raw, "results").Array() {
		hours := r.Get("total_hours").Float()
		if hours == 0 {
			hours = r.Get("hours").Float()
		}
		entries = append(entries, core.UsageEntry{
			Model:      r.Get("model").String(),
			InputUnits: int64(hours*3600 + 0.5),
			Requests:   r.Get("requests").Int(),
		})
	}
	return &core.UsagePage{Entries: entries}
}

// defaultPricing maps transcription models to USD per audio hour, expressed
// over seconds so the accumulated units divide cleanly.
func defaultPricing() *usage.PricingTable {
	return &usage.PricingTable{
		Prices: map[string]usage.PriceTuple{
			"nova-3":        {Input: 0.462},
			"nova-2":        {Input: 0.258},
			"nova":          {Input: 0.258},
			"enhanced":      {Input: 0.870},
			"base":          {Input: 0.750},
			"whisper-cloud": {Input: 0.288},
		},
		Default:     usage.PriceTuple{Input: 0.258},
		UnitDivisor: 3600,
	}
}
