// Package core provides shared types and interfaces for the cost pipeline.
package core

import (
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DateLayout is the calendar-date format used in queries and cache keys.
const DateLayout = "2006-01-02"

// CostUnavailable is the reserved total_cost_usd value meaning the upstream
// API does not expose usage data for this provider. It is distinct from a
// legitimate zero-cost result.
const CostUnavailable float64 = -1

// CostQuery identifies one cost computation. WorkspaceID and ProjectID are
// optional; an empty ProjectID means the workspace (or account) total.
// Start is inclusive, End is exclusive, both at day granularity.
type CostQuery struct {
	Provider    string    `json:"provider"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	ProjectID   string    `json:"project_id,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// Key returns a deterministic cache key for the query. Two queries with the
// same provider, scope, and date range always produce the same key.
func (q CostQuery) Key() string {
	s := strings.Join([]string{
		q.Provider,
		q.WorkspaceID,
		q.ProjectID,
		q.Start.UTC().Format(DateLayout),
		q.End.UTC().Format(DateLayout),
	}, "|")
	return strconv.FormatUint(xxhash.Sum64String(s), 16)
}

// TimeWindow is one bounded sub-range of a query's date range, respecting an
// upstream provider's maximum queryable span. Start is inclusive, End exclusive.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Days returns the window length in whole days, rounding partial days up.
func (w TimeWindow) Days() int {
	return int((w.End.Sub(w.Start) + 24*time.Hour - 1) / (24 * time.Hour))
}

// UsageEntry is one normalized usage record from an upstream listing.
// Units are provider-specific (tokens, characters, audio-seconds, credits).
type UsageEntry struct {
	Model       string
	InputUnits  int64
	OutputUnits int64
	Requests    int64
}

// UsagePage is one page of normalized upstream results. Pages are ephemeral:
// they are consumed by the aggregator immediately and never persisted.
type UsagePage struct {
	Entries    []UsageEntry
	NextCursor string
	HasMore    bool
}

// ModelCost is one row of a cost breakdown.
type ModelCost struct {
	Model    string  `json:"model"`
	CostUSD  float64 `json:"cost_usd"`
	Requests int64   `json:"requests"`
}

// CostResult is the final output of a cost computation. TotalCostUSD is
// CostUnavailable (-1) when the upstream API has no usage endpoint.
type CostResult struct {
	TotalCostUSD float64     `json:"total_cost_usd"`
	LastUpdated  time.Time   `json:"last_updated"`
	Breakdown    []ModelCost `json:"breakdown"`
}

// Unavailable reports whether the result carries the -1 sentinel instead of
// a real total.
func (r *CostResult) Unavailable() bool {
	return r.TotalCostUSD == CostUnavailable
}

// UnavailableResult builds the sentinel result for providers whose upstream
// API lacks a usage endpoint. The note becomes an explanatory breakdown row
// so callers can render a distinct "not available" state.
func UnavailableResult(note string) *CostResult {
	return &CostResult{
		TotalCostUSD: CostUnavailable,
		LastUpdated:  time.Now().UTC(),
		Breakdown: []ModelCost{
			{Model: note},
		},
	}
}

// Workspace is an upstream organizational scope under which projects, keys,
// and usage are grouped.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project is a billing-trackable unit within a workspace. Some providers
// expose access keys instead; those are mapped onto Project.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}
