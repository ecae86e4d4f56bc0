package cache

import (
	"context"
	"testing"
	"time"

	"costwatch/internal/core"
)

// fakeClock advances only when told to.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func sampleResult(total float64) *core.CostResult {
	return &core.CostResult{
		TotalCostUSD: total,
		LastUpdated:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Breakdown:    []core.ModelCost{{Model: "gpt-4o", CostUSD: total, Requests: 5}},
	}
}

func TestMemoryCache_SetThenGet(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCacheWithClock(5*time.Minute, clock.now)
	ctx := context.Background()

	want := sampleResult(7.5)
	if err := c.Set(ctx, "k1", want); err != nil {
		t.Fatalf("Set() = %v", err)
	}

	got, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if got == nil || got.TotalCostUSD != 7.5 || len(got.Breakdown) != 1 {
		t.Errorf("Get() = %+v, want the stored result", got)
	}
}

func TestMemoryCache_MissReturnsNil(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	got, err := c.Get(context.Background(), "absent")
	if err != nil || got != nil {
		t.Errorf("Get(absent) = %v, %v; want nil, nil", got, err)
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCacheWithClock(5*time.Minute, clock.now)
	ctx := context.Background()

	_ = c.Set(ctx, "k1", sampleResult(1))

	// Just within TTL: still present.
	clock.advance(5 * time.Minute)
	if got, _ := c.Get(ctx, "k1"); got == nil {
		t.Fatal("entry expired exactly at TTL, want still valid")
	}

	// Past TTL: absent, and lazily evicted.
	clock.advance(time.Second)
	if got, _ := c.Get(ctx, "k1"); got != nil {
		t.Fatal("entry past TTL must be treated as absent")
	}
	if c.Len() != 0 {
		t.Error("expired entry must be evicted on lookup")
	}

	// A subsequent Set for the same key succeeds cleanly.
	if err := c.Set(ctx, "k1", sampleResult(2)); err != nil {
		t.Fatalf("Set after expiry = %v", err)
	}
	if got, _ := c.Get(ctx, "k1"); got == nil || got.TotalCostUSD != 2 {
		t.Errorf("Get after re-set = %+v, want the new result", got)
	}
}

func TestMemoryCache_SetOverwrites(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	_ = c.Set(ctx, "k", sampleResult(1))
	_ = c.Set(ctx, "k", sampleResult(9))

	got, _ := c.Get(ctx, "k")
	if got == nil || got.TotalCostUSD != 9 {
		t.Errorf("Get() = %+v, want the overwritten value", got)
	}
}

func TestMemoryCache_InvalidateAndClear(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	_ = c.Set(ctx, "a", sampleResult(1))
	_ = c.Set(ctx, "b", sampleResult(2))

	if err := c.Invalidate(ctx, "a"); err != nil {
		t.Fatalf("Invalidate() = %v", err)
	}
	if got, _ := c.Get(ctx, "a"); got != nil {
		t.Error("invalidated entry still present")
	}
	if got, _ := c.Get(ctx, "b"); got == nil {
		t.Error("Invalidate must not touch other keys")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() = %v", err)
	}
	if c.Len() != 0 {
		t.Error("Clear must remove all entries")
	}
}

func TestMemoryCache_StoredValueIsACopy(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	original := sampleResult(3)
	_ = c.Set(ctx, "k", original)
	original.TotalCostUSD = 999

	got, _ := c.Get(ctx, "k")
	if got.TotalCostUSD != 3 {
		t.Error("mutating the caller's result must not affect the cached entry")
	}
}
