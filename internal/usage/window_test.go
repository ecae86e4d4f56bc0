package usage

import (
	"testing"
	"time"

	"costwatch/internal/core"
)

func day(s string) time.Time {
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSplitWindows_SingleWindowWhenRangeFits(t *testing.T) {
	windows := SplitWindows(day("2025-01-01"), day("2025-01-15"), 30)
	if len(windows) != 1 {
		t.Fatalf("len = %d, want 1", len(windows))
	}
	if !windows[0].Start.Equal(day("2025-01-01")) || !windows[0].End.Equal(day("2025-01-15")) {
		t.Errorf("window = %+v, want full range", windows[0])
	}
}

func TestSplitWindows_ChunksLongRange(t *testing.T) {
	// 365 days at 30 days per window -> ceil(365/30) = 13 windows.
	windows := SplitWindows(day("2024-01-01"), day("2024-12-31"), 30)
	if len(windows) != 13 {
		t.Fatalf("len = %d, want 13", len(windows))
	}
}

func TestSplitWindows_ContiguousNonOverlapping(t *testing.T) {
	start, end := day("2024-03-01"), day("2024-09-17")
	windows := SplitWindows(start, end, 31)

	if !windows[0].Start.Equal(start) {
		t.Errorf("first window starts at %v, want %v", windows[0].Start, start)
	}
	if !windows[len(windows)-1].End.Equal(end) {
		t.Errorf("last window ends at %v, want %v", windows[len(windows)-1].End, end)
	}
	for i := 1; i < len(windows); i++ {
		if !windows[i].Start.Equal(windows[i-1].End) {
			t.Errorf("window %d starts at %v, previous ends at %v (gap or overlap)",
				i, windows[i].Start, windows[i-1].End)
		}
	}
	for i, w := range windows {
		if !w.End.After(w.Start) {
			t.Errorf("window %d is zero-length: %+v", i, w)
		}
		if w.Days() > 31 {
			t.Errorf("window %d spans %d days, max 31", i, w.Days())
		}
	}
}

func TestSplitWindows_CountMatchesCeil(t *testing.T) {
	tests := []struct {
		days    int
		maxDays int
		want    int
	}{
		{1, 30, 1},
		{30, 30, 1},
		{31, 30, 2},
		{60, 30, 2},
		{61, 30, 3},
		{90, 31, 3},
		{100, 7, 15},
	}
	start := day("2025-01-01")
	for _, tt := range tests {
		end := start.AddDate(0, 0, tt.days)
		windows := SplitWindows(start, end, tt.maxDays)
		if len(windows) != tt.want {
			t.Errorf("SplitWindows(%d days, max %d) = %d windows, want %d",
				tt.days, tt.maxDays, len(windows), tt.want)
		}
	}
}

func TestSplitWindows_EmptyRange(t *testing.T) {
	if windows := SplitWindows(day("2025-01-15"), day("2025-01-15"), 30); windows != nil {
		t.Errorf("empty range produced %d windows, want none", len(windows))
	}
	if windows := SplitWindows(day("2025-01-15"), day("2025-01-01"), 30); windows != nil {
		t.Errorf("inverted range produced %d windows, want none", len(windows))
	}
}
