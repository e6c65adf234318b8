package usage

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Usage holds token counts for a single run.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// ModelTotals aggregates recorded usage for one model.
type ModelTotals struct {
	Runs         int64  `json:"runs"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	CostUSD      string `json:"cost_usd"`
}

// Snapshot is a point-in-time copy of the tracker totals.
type Snapshot struct {
	Runs         int64                  `json:"runs"`
	InputTokens  int64                  `json:"input_tokens"`
	OutputTokens int64                  `json:"output_tokens"`
	TotalTokens  int64                  `json:"total_tokens"`
	CostUSD      string                 `json:"cost_usd"`
	Models       map[string]ModelTotals `json:"models"`
}

// Tracker accumulates run counts, token usage and estimated cost across
// runs. It is safe for concurrent use.
type Tracker struct {
	pricing map[string]ModelPricing

	mu     sync.Mutex
	runs   int64
	usage  Usage
	cost   decimal.Decimal
	models map[string]*modelTotals
}

type modelTotals struct {
	runs  int64
	usage Usage
	cost  decimal.Decimal
}

// NewTracker creates a tracker. Nil pricing uses DefaultPricing.
func NewTracker(pricing map[string]ModelPricing) *Tracker {
	if pricing == nil {
		pricing = DefaultPricing
	}
	return &Tracker{
		pricing: pricing,
		cost:    decimal.Zero,
		models:  make(map[string]*modelTotals),
	}
}

// Record adds one run's token usage and updates the cumulative cost.
// Unknown models have their tokens counted but add no cost.
func (t *Tracker) Record(model string, usage Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.runs++
	t.usage.InputTokens += usage.InputTokens
	t.usage.OutputTokens += usage.OutputTokens

	mt, ok := t.models[model]
	if !ok {
		mt = &modelTotals{cost: decimal.Zero}
		t.models[model] = mt
	}
	mt.runs++
	mt.usage.InputTokens += usage.InputTokens
	mt.usage.OutputTokens += usage.OutputTokens

	pricing, ok := t.pricing[model]
	if !ok {
		return
	}
	callCost := pricing.Cost(usage.InputTokens, usage.OutputTokens)
	t.cost = t.cost.Add(callCost)
	mt.cost = mt.cost.Add(callCost)
}

// TotalCost returns the cumulative estimated cost across all recorded runs.
func (t *Tracker) TotalCost() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cost
}

// TotalUsage returns the cumulative token usage across all recorded runs.
func (t *Tracker) TotalUsage() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// Snapshot returns a copy of the current totals for serving.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		Runs:         t.runs,
		InputTokens:  t.usage.InputTokens,
		OutputTokens: t.usage.OutputTokens,
		TotalTokens:  t.usage.InputTokens + t.usage.OutputTokens,
		CostUSD:      t.cost.StringFixed(6),
		Models:       make(map[string]ModelTotals, len(t.models)),
	}
	for model, mt := range t.models {
		snap.Models[model] = ModelTotals{
			Runs:         mt.runs,
			InputTokens:  mt.usage.InputTokens,
			OutputTokens: mt.usage.OutputTokens,
			CostUSD:      mt.cost.StringFixed(6),
		}
	}
	return snap
}
