package usage

import "github.com/shopspring/decimal"

// ModelPricing holds per-model token prices in USD per million tokens.
type ModelPricing struct {
	InputPerMTok  decimal.Decimal
	OutputPerMTok decimal.Decimal
}

var million = decimal.NewFromInt(1_000_000)

// Cost returns the USD cost of a single call at these rates.
func (p ModelPricing) Cost(inputTokens, outputTokens int64) decimal.Decimal {
	in := decimal.NewFromInt(inputTokens).Mul(p.InputPerMTok).Div(million)
	out := decimal.NewFromInt(outputTokens).Mul(p.OutputPerMTok).Div(million)
	return in.Add(out)
}

// DefaultPricing contains built-in rates for commonly routed models
// (USD per million tokens). Can be overridden via NewTracker.
var DefaultPricing = map[string]ModelPricing{
	"gpt-4o": {
		InputPerMTok:  decimal.NewFromFloat(2.5),
		OutputPerMTok: decimal.NewFromFloat(10),
	},
	"gpt-4o-mini": {
		InputPerMTok:  decimal.NewFromFloat(0.15),
		OutputPerMTok: decimal.NewFromFloat(0.6),
	},
	"gpt-4.1": {
		InputPerMTok:  decimal.NewFromFloat(2),
		OutputPerMTok: decimal.NewFromFloat(8),
	},
	"gpt-4.1-mini": {
		InputPerMTok:  decimal.NewFromFloat(0.4),
		OutputPerMTok: decimal.NewFromFloat(1.6),
	},
	"claude-opus-4-6": {
		InputPerMTok:  decimal.NewFromFloat(5),
		OutputPerMTok: decimal.NewFromFloat(25),
	},
	"claude-sonnet-4-5": {
		InputPerMTok:  decimal.NewFromFloat(3),
		OutputPerMTok: decimal.NewFromFloat(15),
	},
	"claude-haiku-4-5": {
		InputPerMTok:  decimal.NewFromFloat(1),
		OutputPerMTok: decimal.NewFromFloat(5),
	},
}
