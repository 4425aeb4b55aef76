package core

import "github.com/shopspring/decimal"

// Summary is the per-type fold of group totals for one period.
type Summary struct {
	Income    float64 `json:"income"`
	Expense   float64 `json:"expense"`
	Asset     float64 `json:"asset"`
	Liability float64 `json:"liability"`
	Cashflow  float64 `json:"cashflow"`
	NetWorth  float64 `json:"netWorth"`
}

// Summary totals the display groups of mode at period. In the day view
// only balance groups contribute, so income and expense are zero there.
func (r Report) Summary(mode ViewMode, period string) Summary {
	totals := make(map[GroupType]decimal.Decimal, 4)
	for _, g := range r.DisplayGroups(mode) {
		totals[g.Type] = totals[g.Type].Add(dec(g.Total(period)))
	}
	return Summary{
		Income:    totals[Income].InexactFloat64(),
		Expense:   totals[Expense].InexactFloat64(),
		Asset:     totals[Asset].InexactFloat64(),
		Liability: totals[Liability].InexactFloat64(),
		Cashflow:  totals[Income].Sub(totals[Expense]).InexactFloat64(),
		NetWorth:  totals[Asset].Sub(totals[Liability]).InexactFloat64(),
	}
}
