package usage

import "costwatch/internal/core"

// UnknownModel is the bucket for upstream entries that omit a model identifier.
const UnknownModel = "unknown"

// Accumulator holds running totals for one model. An accumulator is owned
// exclusively by one in-flight query and discarded when the query completes.
type Accumulator struct {
	InputUnits  int64
	OutputUnits int64
	Requests    int64
}

// Aggregator groups usage entries by model identifier, summing unit counts
// across all pages of all windows of a query. Not safe for concurrent use;
// windows are processed sequentially by design.
type Aggregator struct {
	models map[string]*Accumulator
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{models: make(map[string]*Accumulator)}
}

// Add folds entries into the per-model accumulators.
func (a *Aggregator) Add(entries ...core.UsageEntry) {
	for _, e := range entries {
		model := e.Model
		if model == "" {
			model = UnknownModel
		}
		acc, ok := a.models[model]
		if !ok {
			acc = &Accumulator{}
			a.models[model] = acc
		}
		acc.InputUnits += e.InputUnits
		acc.OutputUnits += e.OutputUnits
		acc.Requests += e.Requests
	}
}

// Totals returns a copy of the per-model accumulators.
func (a *Aggregator) Totals() map[string]Accumulator {
	out := make(map[string]Accumulator, len(a.models))
	for model, acc := range a.models {
		out[model] = *acc
	}
	return out
}

// Empty reports whether no usage has been accumulated.
func (a *Aggregator) Empty() bool {
	return len(a.models) == 0
}
