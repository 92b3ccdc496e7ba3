package core

import "github.com/shopspring/decimal"

// Earnings are derived from a State and never stored authoritatively.
// Every slice has exactly one entry per kid.
type Earnings struct {
	Daily      [][DaysPerWeek]decimal.Decimal
	Weekly     []decimal.Decimal
	Monthly    []decimal.Decimal
	Cumulative []decimal.Decimal
}

// ComputeEarnings sums, for each kid and day, the checked sub-flag count of
// every task times its value. Weekly is the sum of the seven days, Monthly
// echoes the accumulator and Cumulative is Monthly plus Weekly.
func ComputeEarnings(s State) Earnings {
	n := s.KidCount()
	e := Earnings{
		Daily:      make([][DaysPerWeek]decimal.Decimal, n),
		Weekly:     make([]decimal.Decimal, n),
		Monthly:    make([]decimal.Decimal, n),
		Cumulative: make([]decimal.Decimal, n),
	}
	for kid := 0; kid < n; kid++ {
		weekly := decimal.Zero
		for _, day := range Days() {
			daily := decimal.Zero
			for _, t := range s.Tasks {
				checked := s.Completions.Flags(kid, t.ID, day).Count()
				if checked == 0 {
					continue
				}
				daily = daily.Add(t.Value.Mul(decimal.NewFromInt(int64(checked))))
			}
			e.Daily[kid][day] = daily
			weekly = weekly.Add(daily)
		}
		e.Weekly[kid] = weekly
		e.Monthly[kid] = s.MonthlyFor(kid)
		e.Cumulative[kid] = e.Monthly[kid].Add(weekly)
	}
	return e
}
