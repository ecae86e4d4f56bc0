package usage

import (
	"context"
	"fmt"
	"log/slog"

	"costwatch/internal/core"
	"costwatch/internal/retry"
)

// DefaultMaxPages is the safety ceiling on pages drained for one window.
// It guards against runaway pagination on a malformed upstream contract.
const DefaultMaxPages = 100

// PageFunc fetches one page of upstream results. cursor is empty for the
// first page and carries the previous page's continuation token afterwards.
type PageFunc func(ctx context.Context, cursor string) (*core.UsagePage, error)

// Fetcher drains a continuation-token-based listing for a single time window.
// Each individual page request is wrapped in the retry policy; a fatal error
// on any page aborts the drain with no partial result.
type Fetcher struct {
	Retry    retry.Policy
	MaxPages int
	Logger   *slog.Logger
}

// Drain fetches pages until the upstream reports no more, flattening all
// entries into one ordered list. Hitting the page ceiling stops the drain
// and returns what was collected, with a warning: the alternative is looping
// forever on an upstream that always claims more pages.
func (f *Fetcher) Drain(ctx context.Context, fetch PageFunc) ([]core.UsageEntry, error) {
	maxPages := f.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var entries []core.UsageEntry
	cursor := ""
	for page := 0; page < maxPages; page++ {
		var p *core.UsagePage
		err := f.Retry.Do(ctx, func() error {
			var fetchErr error
			p, fetchErr = fetch(ctx, cursor)
			return fetchErr
		})
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page+1, err)
		}

		entries = append(entries, p.Entries...)

		if !p.HasMore || p.NextCursor == "" {
			return entries, nil
		}
		if p.NextCursor == cursor {
			logger.Warn("upstream returned an unchanged continuation token, stopping drain",
				"page", page+1)
			return entries, nil
		}
		cursor = p.NextCursor
	}

	logger.Warn("page ceiling reached while draining usage listing",
		"max_pages", maxPages, "entries", len(entries))
	return entries, nil
}
