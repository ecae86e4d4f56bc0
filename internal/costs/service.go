// Package costs is the query front of the pipeline: it validates cost
// queries, memoizes results, dispatches to the configured provider adapters,
// and appends computed reports to the ledger.
package costs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"costwatch/internal/cache"
	"costwatch/internal/core"
	"costwatch/internal/observability"
	"costwatch/internal/providers"
	"costwatch/internal/report"
)

// DefaultRangeDays is the date range applied when a query carries no bounds.
const DefaultRangeDays = 30

// Ledger records computed cost reports. A nil ledger disables persistence.
type Ledger interface {
	Append(ctx context.Context, query core.CostQuery, result *core.CostResult) error
	Recent(ctx context.Context, provider string, limit int64) ([]report.Record, error)
}

// Service is the sole entry point for cost queries.
type Service struct {
	registry *providers.Registry
	cache    cache.Cache
	ledger   Ledger
	logger   *slog.Logger

	// now is the clock source; overridable in tests.
	now func() time.Time
}

// NewService wires the query front. cache must be non-nil; ledger may be nil.
func NewService(registry *providers.Registry, c cache.Cache, ledger Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry: registry,
		cache:    c,
		ledger:   ledger,
		logger:   logger,
		now:      time.Now,
	}
}

// Providers returns the configured provider ids.
func (s *Service) Providers() []string {
	return s.registry.IDs()
}

// ListWorkspaces enumerates the billing scopes of one provider.
func (s *Service) ListWorkspaces(ctx context.Context, providerID string) ([]core.Workspace, error) {
	p, err := s.registry.Get(providerID)
	if err != nil {
		return nil, err
	}
	return p.ListWorkspaces(ctx)
}

// ListProjects enumerates the billing-trackable units below a workspace.
func (s *Service) ListProjects(ctx context.Context, providerID, workspaceID string) ([]core.Project, error) {
	p, err := s.registry.Get(providerID)
	if err != nil {
		return nil, err
	}
	return p.ListProjects(ctx, workspaceID)
}

// ComputeCosts answers a cost query, from the cache when a fresh result
// exists and through the provider's full pipeline otherwise. The boolean
// reports whether the result came from the cache.
func (s *Service) ComputeCosts(ctx context.Context, query core.CostQuery) (*core.CostResult, bool, error) {
	query, err := s.normalize(query)
	if err != nil {
		return nil, false, err
	}

	key := query.Key()
	if cached, err := s.cache.Get(ctx, key); err != nil {
		// A broken cache degrades to a miss, never to a failed query.
		s.logger.Warn("cache lookup failed", "provider", query.Provider, "error", err)
	} else if cached != nil {
		observability.CacheHits.Inc()
		return cached, true, nil
	}
	observability.CacheMisses.Inc()

	p, err := s.registry.Get(query.Provider)
	if err != nil {
		return nil, false, err
	}

	result, err := p.ComputeCosts(ctx, query)
	if err != nil {
		observability.QueryFailures.WithLabelValues(query.Provider, errorKind(err)).Inc()
		return nil, false, err
	}
	observability.QueriesComputed.WithLabelValues(query.Provider).Inc()

	if err := s.cache.Set(ctx, key, result); err != nil {
		s.logger.Warn("cache store failed", "provider", query.Provider, "error", err)
	}

	if s.ledger != nil {
		if err := s.ledger.Append(ctx, query, result); err != nil {
			s.logger.Warn("report append failed", "provider", query.Provider, "error", err)
		}
	}

	return result, false, nil
}

// RecentReports returns the newest persisted reports, optionally filtered by
// provider.
func (s *Service) RecentReports(ctx context.Context, provider string, limit int64) ([]report.Record, error) {
	if s.ledger == nil {
		return []report.Record{}, nil
	}
	return s.ledger.Recent(ctx, provider, limit)
}

// InvalidateQuery drops the cached result for one query.
func (s *Service) InvalidateQuery(ctx context.Context, query core.CostQuery) error {
	query, err := s.normalize(query)
	if err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, query.Key())
}

// ClearCache drops all cached results.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// normalize validates a query and fills in the default date range: the
// trailing DefaultRangeDays days when both bounds are absent.
func (s *Service) normalize(query core.CostQuery) (core.CostQuery, error) {
	if query.Provider == "" {
		return query, core.NewInvalidRequestError("provider is required", nil)
	}

	if query.Start.IsZero() && query.End.IsZero() {
		end := s.now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
		query.End = end
		query.Start = end.AddDate(0, 0, -DefaultRangeDays)
		return query, nil
	}
	if query.Start.IsZero() || query.End.IsZero() {
		return query, core.NewInvalidRequestError("start and end must be provided together", nil)
	}
	if !query.End.After(query.Start) {
		return query, core.NewInvalidRequestError("end must be after start", nil)
	}
	return query, nil
}

// errorKind extracts the taxonomy kind for metrics labeling.
func errorKind(err error) string {
	var upstreamErr *core.UpstreamError
	if errors.As(err, &upstreamErr) {
		return string(upstreamErr.Kind)
	}
	return "unknown"
}
