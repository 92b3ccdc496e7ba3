package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	// DaysPerWeek is the fixed width of every per-day array, Monday first.
	DaysPerWeek = 7
	// SubFlagsPerDay is the number of independent completion marks per task and day.
	SubFlagsPerDay = 3
)

type (
	// Day indexes the week, 0 = Monday .. 6 = Sunday.
	Day int

	// Flags are the sub-completion marks for one (kid, task, day).
	Flags [SubFlagsPerDay]bool

	Task struct {
		ID    int64
		Name  string
		Value decimal.Decimal
	}

	// CompletionMatrix maps kid index -> task id -> day -> flags.
	// A missing entry at any level reads as all false.
	CompletionMatrix map[int]map[int64]map[Day]Flags

	// State is one immutable snapshot of the household scoreboard.
	// Reducers never modify the receiver; they return a new State.
	State struct {
		KidNames    []string
		Tasks       []Task
		Completions CompletionMatrix
		// Monthly is the running accumulator banked at every rollover.
		Monthly map[int]decimal.Decimal
		// Revision increases by one on every transition. It is not persisted.
		Revision uint64
	}
)

var (
	ErrKidOutOfRange     = errors.New("kid index out of range")
	ErrTaskNotFound      = errors.New("task not found")
	ErrDayOutOfRange     = errors.New("day index out of range")
	ErrSubFlagOutOfRange = errors.New("sub-flag index out of range")
)

var dayNames = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Days returns the week in display order.
func Days() []Day {
	out := make([]Day, DaysPerWeek)
	for i := range out {
		out[i] = Day(i)
	}
	return out
}

func (d Day) Valid() bool { return d >= 0 && d < DaysPerWeek }

func (d Day) Name() string {
	if !d.Valid() {
		return ""
	}
	return dayNames[d]
}

// Count returns how many of the flags are set.
func (f Flags) Count() int {
	n := 0
	for _, v := range f {
		if v {
			n++
		}
	}
	return n
}

// DefaultKidNames returns the placeholder names used when nothing is saved.
func DefaultKidNames() []string {
	return []string{"Kid 1", "Kid 2", "Kid 3", "Kid 4"}
}

// DefaultTasks returns the seed chores used when nothing is saved.
func DefaultTasks() []Task {
	return []Task{
		{ID: 1, Name: "Make Bed", Value: decimal.RequireFromString("2.00")},
		{ID: 2, Name: "Do Dishes", Value: decimal.RequireFromString("3.50")},
		{ID: 3, Name: "Read Book", Value: decimal.RequireFromString("1.00")},
		{ID: 4, Name: "Walk Dog", Value: decimal.RequireFromString("5.00")},
	}
}

// DefaultState is the scoreboard of a household that has never saved anything.
func DefaultState() State {
	return State{
		KidNames:    DefaultKidNames(),
		Tasks:       DefaultTasks(),
		Completions: CompletionMatrix{},
		Monthly:     map[int]decimal.Decimal{},
	}
}

// KidCount is the width of every per-kid derived array.
func (s State) KidCount() int { return len(s.KidNames) }

// Task returns the task with the given id.
func (s State) Task(id int64) (Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// MonthlyFor returns the banked total for a kid, zero when absent.
func (s State) MonthlyFor(kid int) decimal.Decimal {
	if v, ok := s.Monthly[kid]; ok {
		return v
	}
	return decimal.Zero
}

// Flags returns the marks for (kid, task, day); absent entries are all false.
func (m CompletionMatrix) Flags(kid int, taskID int64, day Day) Flags {
	return m[kid][taskID][day]
}

// Clone deep-copies the matrix so reducers can work copy-on-write.
func (m CompletionMatrix) Clone() CompletionMatrix {
	out := make(CompletionMatrix, len(m))
	for kid, byTask := range m {
		tasks := make(map[int64]map[Day]Flags, len(byTask))
		for id, byDay := range byTask {
			days := make(map[Day]Flags, len(byDay))
			for d, f := range byDay {
				days[d] = f
			}
			tasks[id] = days
		}
		out[kid] = tasks
	}
	return out
}

// clone copies every reference-typed field of s and bumps the revision.
func (s State) clone() State {
	next := State{
		KidNames:    append([]string(nil), s.KidNames...),
		Tasks:       append([]Task(nil), s.Tasks...),
		Completions: s.Completions.Clone(),
		Monthly:     make(map[int]decimal.Decimal, len(s.Monthly)),
		Revision:    s.Revision + 1,
	}
	for k, v := range s.Monthly {
		next.Monthly[k] = v
	}
	return next
}
