package usage

import (
	"sort"

	"costwatch/internal/core"
)

// ComputeBreakdown converts per-model accumulators into cost rows using the
// pricing table, returning the breakdown sorted by descending cost and the
// grand total. The sum of the breakdown always equals the total.
func ComputeBreakdown(totals map[string]Accumulator, table *PricingTable) ([]core.ModelCost, float64) {
	divisor := table.UnitDivisor
	if divisor <= 0 {
		divisor = 1
	}

	breakdown := make([]core.ModelCost, 0, len(totals))
	var total float64
	for model, acc := range totals {
		tuple := table.Resolve(model)
		cost := float64(acc.InputUnits)/divisor*tuple.Input +
			float64(acc.OutputUnits)/divisor*tuple.Output
		breakdown = append(breakdown, core.ModelCost{
			Model:    model,
			CostUSD:  cost,
			Requests: acc.Requests,
		})
		total += cost
	}

	// Descending by cost; model name breaks ties for deterministic output.
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].CostUSD != breakdown[j].CostUSD {
			return breakdown[i].CostUSD > breakdown[j].CostUSD
		}
		return breakdown[i].Model < breakdown[j].Model
	})

	return breakdown, total
}
