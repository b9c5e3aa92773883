package core

import "github.com/shopspring/decimal"

// Score is one symbol's health score as returned by the scoring API.
type Score struct {
	Symbol string          `json:"symbol"`
	Value  decimal.Decimal `json:"score"`
}

// Report is a parsed scoring response.
// Scores keep the order in which the server listed the symbols.
type Report struct {
	Scores  []Score         `json:"portfolio"`
	Average decimal.Decimal `json:"average_health_score"`
}

// Symbols returns the symbols in server order.
func (r Report) Symbols() []string {
	out := make([]string, len(r.Scores))
	for i, s := range r.Scores {
		out[i] = s.Symbol
	}
	return out
}
