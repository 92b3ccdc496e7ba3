package core

import "github.com/shopspring/decimal"

// KidSummary is a compact per-kid line of the scoreboard.
type KidSummary struct {
	Index      int
	Name       string
	Completed  int // sub-checks ticked this week
	Weekly     decimal.Decimal
	Monthly    decimal.Decimal
	Cumulative decimal.Decimal
}

// Summarize returns one KidSummary per kid, in display order.
func Summarize(s State) []KidSummary {
	e := ComputeEarnings(s)
	out := make([]KidSummary, len(s.KidNames))
	for kid, name := range s.KidNames {
		completed := 0
		for _, t := range s.Tasks {
			for _, d := range Days() {
				completed += s.Completions.Flags(kid, t.ID, d).Count()
			}
		}
		out[kid] = KidSummary{
			Index:      kid,
			Name:       name,
			Completed:  completed,
			Weekly:     e.Weekly[kid],
			Monthly:    e.Monthly[kid],
			Cumulative: e.Cumulative[kid],
		}
	}
	return out
}
