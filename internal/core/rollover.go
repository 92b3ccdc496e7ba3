package core

import "github.com/shopspring/decimal"

// RolloverPrompt is asked before a week is banked.
const RolloverPrompt = "Are you sure you want to reset the scoreboard for this week? Monthly totals will be carried over."

// RolloverNotice is shown once a week has been banked.
const RolloverNotice = "Scoreboard reset for the week! Current week's earnings added to monthly totals."

// RolloverResult records what a rollover banked per kid.
type RolloverResult struct {
	Banked  []decimal.Decimal
	Monthly []decimal.Decimal
}

// Rollover adds each kid's weekly earnings to the monthly accumulator and
// clears the completion matrix. It can be applied any number of times; a
// second rollover with no new completions banks zero.
func (s State) Rollover() (State, RolloverResult) {
	weekly := ComputeEarnings(s).Weekly
	next := s.clone()
	res := RolloverResult{
		Banked:  weekly,
		Monthly: make([]decimal.Decimal, len(weekly)),
	}
	for kid, amount := range weekly {
		total := next.MonthlyFor(kid).Add(amount)
		next.Monthly[kid] = total
		res.Monthly[kid] = total
	}
	next.Completions = CompletionMatrix{}
	return next, res
}
