// Package elevenlabs implements the billing adapter for the ElevenLabs API.
//
// ElevenLabs is the single-account, unit-denominated variant: one synchronous
// subscription call returns a running character count and quota for the
// current billing cycle; there is no pagination and no per-model split.
// Characters are priced by subscription tier.
package elevenlabs

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"costwatch/internal/apiclient"
	"costwatch/internal/core"
	"costwatch/internal/providers"
	"costwatch/internal/retry"
	"costwatch/internal/usage"
)

const defaultBaseURL = "https://api.elevenlabs.io/v1"

func init() {
	providers.Register("elevenlabs", New)
}

// Provider implements core.Provider for the ElevenLabs subscription API.
type Provider struct {
	client  *apiclient.Client
	apiKey  string
	retry   retry.Policy
	pricing *usage.PricingTable
}

// New creates an ElevenLabs provider with the given API key.
func New(apiKey string, opts providers.Options) (core.Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs: API key is required")
	}

	p := &Provider{
		apiKey:  apiKey,
		retry:   opts.Retry,
		pricing: defaultPricing(),
	}
	p.pricing.Apply(opts.PricingOverrides)

	cfg := apiclient.DefaultConfig("elevenlabs", defaultBaseURL)
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
func (p *Provider) ID() string { return "elevenlabs" }

// setHeaders sets the xi-api-key credential header.
func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("xi-api-key", p.apiKey)
}

// ListWorkspaces returns one synthetic workspace: the API is scoped to a
// single account.
func (p *Provider) ListWorkspaces(_ context.Context) ([]core.Workspace, error) {
	return []core.Workspace{{ID: "account", Name: "Account"}}, nil
}

// ListProjects returns an empty list; the account has no billing-trackable
// sub-units.
func (p *Provider) ListProjects(_ context.Context, _ string) ([]core.Project, error) {
	return []core.Project{}, nil
}

// subscription is the relevant slice of the upstream subscription response.
type subscription struct {
	Tier           string `json:"tier"`
	CharacterCount int64  `json:"character_count"`
	CharacterLimit int64  `json:"character_limit"`
}

// ComputeCosts prices the running character count of the current billing
// cycle at the subscription tier's per-1k-characters rate. The query's date
// range is ignored: the upstream exposes only a cycle-to-date total.
func (p *Provider) ComputeCosts(ctx context.Context, q core.CostQuery) (*core.CostResult, error) {
	if q.ProjectID != "" {
		return nil, core.NewInvalidRequestError(
			"elevenlabs: account usage has no project scope", nil)
	}

	var sub subscription
	err := p.retry.Do(ctx, func() error {
		return p.client.Do(ctx, apiclient.Request{
			Method:   http.MethodGet,
			Endpoint: "/user/subscription",
		}, &sub)
	})
	if err != nil {
		return nil, err
	}

	tier := sub.Tier
	if tier == "" {
		tier = usage.UnknownModel
	}

	agg := usage.NewAggregator()
	agg.Add(core.UsageEntry{Model: tier, InputUnits: sub.CharacterCount})

	breakdown, total := usage.ComputeBreakdown(agg.Totals(), p.pricing)
	return &core.CostResult{
		TotalCostUSD: total,
		LastUpdated:  time.Now().UTC(),
		Breakdown:    breakdown,
	}, nil
}

// defaultPricing maps subscription tiers to USD per 1k characters. The free
// tier costs nothing; paid tiers use the effective per-character rate of
// their plan quota.
func defaultPricing() *usage.PricingTable {
	return &usage.PricingTable{
		Prices: map[string]usage.PriceTuple{
			"free":     {Input: 0},
			"starter":  {Input: 0.50},
			"creator":  {Input: 0.22},
			"pro":      {Input: 0.20},
			"scale":    {Input: 0.165},
			"business": {Input: 0.132},
		},
		Default:     usage.PriceTuple{Input: 0.30},
		UnitDivisor: 1000,
	}
}
