// Package usage implements the usage-collection pipeline: time-window
// chunking, paginated fetching with bounded retry, per-model aggregation,
// and pricing resolution.
package usage

import (
	"time"

	"costwatch/internal/core"
)

// SplitWindows splits [start, end) into ordered, contiguous, non-overlapping
// windows of at most maxDays each. Upstream billing APIs cap the queryable
// span per request (typically 30-31 days), so longer report ranges are
// chunked transparently.
//
// The end of window i equals the start of window i+1, windows are never
// zero-length, and a range that already fits produces exactly one window.
func SplitWindows(start, end time.Time, maxDays int) []core.TimeWindow {
	if maxDays < 1 {
		maxDays = 1
	}
	if !end.After(start) {
		return nil
	}

	maxSpan := time.Duration(maxDays) * 24 * time.Hour
	var windows []core.TimeWindow
	cursor := start
	for cursor.Before(end) {
		next := cursor.Add(maxSpan)
		if next.After(end) {
			next = end
		}
		windows = append(windows, core.TimeWindow{Start: cursor, End: next})
		cursor = next
	}
	return windows
}
