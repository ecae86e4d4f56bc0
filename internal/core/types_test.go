package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCostQuery_Key_Deterministic(t *testing.T) {
	q := CostQuery{
		Provider:    "openai",
		WorkspaceID: "ws_1",
		ProjectID:   "proj_2",
		Start:       date("2025-01-01"),
		End:         date("2025-02-01"),
	}
	if q.Key() != q.Key() {
		t.Fatal("key must be deterministic")
	}

	other := q
	other.ProjectID = ""
	if q.Key() == other.Key() {
		t.Error("distinct queries must produce distinct keys")
	}

	shifted := q
	shifted.End = date("2025-02-02")
	if q.Key() == shifted.Key() {
		t.Error("date range must contribute to the key")
	}
}

func TestCostResult_JSONShape(t *testing.T) {
	res := CostResult{
		TotalCostUSD: 7.50075,
		LastUpdated:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Breakdown: []ModelCost{
			{Model: "gpt-4o", CostUSD: 7.5, Requests: 12},
		},
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, field := range []string{`"total_cost_usd"`, `"last_updated"`, `"breakdown"`, `"model"`, `"cost_usd"`, `"requests"`} {
		if !strings.Contains(s, field) {
			t.Errorf("serialized result missing %s: %s", field, s)
		}
	}
	// last_updated must be ISO-8601.
	if !strings.Contains(s, `"2025-06-01T12:00:00Z"`) {
		t.Errorf("last_updated not RFC3339: %s", s)
	}
}

func TestUnavailableResult(t *testing.T) {
	res := UnavailableResult("usage API not exposed by this provider")
	if !res.Unavailable() {
		t.Fatal("sentinel result must report unavailable")
	}
	if res.TotalCostUSD != CostUnavailable {
		t.Errorf("total = %v, want %v", res.TotalCostUSD, CostUnavailable)
	}
	if len(res.Breakdown) != 1 || res.Breakdown[0].Model == "" {
		t.Error("sentinel result must carry an explanatory breakdown row")
	}

	zero := &CostResult{TotalCostUSD: 0}
	if zero.Unavailable() {
		t.Error("a legitimate zero-cost result is not the sentinel")
	}
}

func TestTimeWindow_Days(t *testing.T) {
	w := TimeWindow{Start: date("2025-01-01"), End: date("2025-01-31")}
	if got := w.Days(); got != 30 {
		t.Errorf("Days() = %d, want 30", got)
	}
	single := TimeWindow{Start: date("2025-01-01"), End: date("2025-01-02")}
	if got := single.Days(); got != 1 {
		t.Errorf("Days() = %d, want 1", got)
	}
}
