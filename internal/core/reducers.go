package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RenameKid replaces the display name at idx. Empty names are allowed.
func (s State) RenameKid(idx int, name string) (State, error) {
	if idx < 0 || idx >= len(s.KidNames) {
		return s, fmt.Errorf("rename kid %d: %w", idx, ErrKidOutOfRange)
	}
	next := s.clone()
	next.KidNames[idx] = name
	return next, nil
}

// RenameTask replaces the name of task id.
func (s State) RenameTask(id int64, name string) (State, error) {
	i := s.taskIndex(id)
	if i < 0 {
		return s, fmt.Errorf("rename task %d: %w", id, ErrTaskNotFound)
	}
	next := s.clone()
	next.Tasks[i].Name = name
	return next, nil
}

// SetTaskValue parses raw with ParseTaskValue and stores the result.
// Unparsable input becomes zero; it is never an error.
func (s State) SetTaskValue(id int64, raw string) (State, error) {
	v, _ := ParseTaskValue(raw)
	return s.setTaskValue(id, v)
}

func (s State) setTaskValue(id int64, v decimal.Decimal) (State, error) {
	i := s.taskIndex(id)
	if i < 0 {
		return s, fmt.Errorf("set value of task %d: %w", id, ErrTaskNotFound)
	}
	if v.IsNegative() {
		v = decimal.Zero
	}
	next := s.clone()
	next.Tasks[i].Value = v
	return next, nil
}

// NextTaskID is max(existing ids)+1, or 1 for an empty list.
func (s State) NextTaskID() int64 {
	var max int64
	for _, t := range s.Tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// AddTask appends an unnamed task worth zero with a fresh id.
func (s State) AddTask() (State, Task) {
	t := Task{ID: s.NextTaskID(), Value: decimal.Zero}
	next := s.clone()
	next.Tasks = append(next.Tasks, t)
	return next, t
}

// RemoveTask drops task id and every completion entry referencing it,
// for every kid. Remaining ids are not renumbered.
func (s State) RemoveTask(id int64) (State, error) {
	i := s.taskIndex(id)
	if i < 0 {
		return s, fmt.Errorf("remove task %d: %w", id, ErrTaskNotFound)
	}
	next := s.clone()
	next.Tasks = append(next.Tasks[:i], next.Tasks[i+1:]...)
	for _, byTask := range next.Completions {
		delete(byTask, id)
	}
	return next, nil
}

// ToggleCompletion flips one sub-flag, materializing missing levels first.
func (s State) ToggleCompletion(kid int, taskID int64, day Day, sub int) (State, error) {
	if kid < 0 || kid >= len(s.KidNames) {
		return s, fmt.Errorf("toggle kid %d: %w", kid, ErrKidOutOfRange)
	}
	if s.taskIndex(taskID) < 0 {
		return s, fmt.Errorf("toggle task %d: %w", taskID, ErrTaskNotFound)
	}
	if !day.Valid() {
		return s, fmt.Errorf("toggle day %d: %w", day, ErrDayOutOfRange)
	}
	if sub < 0 || sub >= SubFlagsPerDay {
		return s, fmt.Errorf("toggle sub-flag %d: %w", sub, ErrSubFlagOutOfRange)
	}

	next := s.clone()
	byTask, ok := next.Completions[kid]
	if !ok {
		byTask = map[int64]map[Day]Flags{}
		next.Completions[kid] = byTask
	}
	byDay, ok := byTask[taskID]
	if !ok {
		byDay = map[Day]Flags{}
		byTask[taskID] = byDay
	}
	f := byDay[day]
	f[sub] = !f[sub]
	byDay[day] = f
	return next, nil
}

func (s State) taskIndex(id int64) int {
	for i, t := range s.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
