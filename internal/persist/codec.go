// Package persist converts scoreboard snapshots to and from the four named
// slots of the blob store.
//
// The slot names and field names are shared with saves made by the browser
// app, so they must not change. Nested mappings use stringified
// integer keys on the wire only.
package persist

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"scoreboard/internal/core"
)

// Slot names.
const (
	KeyKidNames       = "kidNames"
	KeyTasks          = "tasks"
	KeyCheckboxStates = "checkboxStates"
	KeyMonthlyTotal   = "monthlyTotalRef"
)

// Keys lists every slot in write order.
var Keys = []string{KeyKidNames, KeyTasks, KeyCheckboxStates, KeyMonthlyTotal}

// ErrMalformed marks a slot whose content could not be decoded.
var ErrMalformed = errors.New("malformed slot")

// Issue describes a slot that fell back to its default.
type Issue struct {
	Key string
	Err error
}

func (i Issue) Error() string { return i.Key + ": " + i.Err.Error() }

type taskRecord struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Encode renders all four slots.
func Encode(s core.State) (map[string][]byte, error) {
	out := make(map[string][]byte, len(Keys))

	names := s.KidNames
	if names == nil {
		names = []string{}
	}
	b, err := json.Marshal(names)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", KeyKidNames, err)
	}
	out[KeyKidNames] = b

	tasks := make([]taskRecord, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		tasks = append(tasks, taskRecord{ID: t.ID, Name: t.Name, Value: json.RawMessage(t.Value.String())})
	}
	if b, err = json.Marshal(tasks); err != nil {
		return nil, fmt.Errorf("encode %s: %w", KeyTasks, err)
	}
	out[KeyTasks] = b

	checks := make(map[string]map[string]map[string][]bool, len(s.Completions))
	for kid, byTask := range s.Completions {
		wireTasks := make(map[string]map[string][]bool, len(byTask))
		for id, byDay := range byTask {
			days := make(map[string][]bool, len(byDay))
			for day, flags := range byDay {
				days[strconv.Itoa(int(day))] = []bool{flags[0], flags[1], flags[2]}
			}
			wireTasks[strconv.FormatInt(id, 10)] = days
		}
		checks[strconv.Itoa(kid)] = wireTasks
	}
	if b, err = json.Marshal(checks); err != nil {
		return nil, fmt.Errorf("encode %s: %w", KeyCheckboxStates, err)
	}
	out[KeyCheckboxStates] = b

	monthly := make(map[string]json.RawMessage, len(s.Monthly))
	for kid, v := range s.Monthly {
		monthly[strconv.Itoa(kid)] = json.RawMessage(v.String())
	}
	if b, err = json.Marshal(monthly); err != nil {
		return nil, fmt.Errorf("encode %s: %w", KeyMonthlyTotal, err)
	}
	out[KeyMonthlyTotal] = b

	return out, nil
}

// Decode rebuilds a snapshot from whatever slots are present. Each slot is
// decoded on its own: a missing or malformed slot takes its default and is
// reported as an Issue, without affecting the others.
func Decode(blobs map[string][]byte) (core.State, []Issue) {
	s := core.DefaultState()
	var issues []Issue

	if raw, ok := present(blobs, KeyKidNames); ok {
		if names, err := decodeKidNames(raw); err != nil {
			issues = append(issues, Issue{Key: KeyKidNames, Err: err})
		} else {
			s.KidNames = names
		}
	}
	if raw, ok := present(blobs, KeyTasks); ok {
		if tasks, err := decodeTasks(raw); err != nil {
			issues = append(issues, Issue{Key: KeyTasks, Err: err})
		} else {
			s.Tasks = tasks
		}
	}
	if raw, ok := present(blobs, KeyCheckboxStates); ok {
		if m, err := decodeCompletions(raw); err != nil {
			issues = append(issues, Issue{Key: KeyCheckboxStates, Err: err})
		} else {
			s.Completions = m
		}
	}
	if raw, ok := present(blobs, KeyMonthlyTotal); ok {
		if m, err := decodeMonthly(raw); err != nil {
			issues = append(issues, Issue{Key: KeyMonthlyTotal, Err: err})
		} else {
			s.Monthly = m
		}
	}
	return s, issues
}

// present treats an empty or JSON null slot the same as a missing one.
func present(blobs map[string][]byte, key string) ([]byte, bool) {
	raw, ok := blobs[key]
	if !ok {
		return nil, false
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, false
	}
	return raw, true
}

func decodeKidNames(raw []byte) ([]string, error) {
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return names, nil
}

func decodeTasks(raw []byte) ([]core.Task, error) {
	var records []taskRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	tasks := make([]core.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, core.Task{ID: r.ID, Name: r.Name, Value: decodeAmount(r.Value)})
	}
	return tasks, nil
}

func decodeCompletions(raw []byte) (core.CompletionMatrix, error) {
	var wire map[string]map[string]map[string][]bool
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	m := core.CompletionMatrix{}
	for kidKey, byTask := range wire {
		kid, err := strconv.Atoi(kidKey)
		if err != nil || kid < 0 {
			continue
		}
		for taskKey, byDay := range byTask {
			id, err := strconv.ParseInt(taskKey, 10, 64)
			if err != nil {
				continue
			}
			for dayKey, values := range byDay {
				d, err := strconv.Atoi(dayKey)
				if err != nil || !core.Day(d).Valid() {
					continue
				}
				var f core.Flags
				copy(f[:], values)
				if m[kid] == nil {
					m[kid] = map[int64]map[core.Day]core.Flags{}
				}
				if m[kid][id] == nil {
					m[kid][id] = map[core.Day]core.Flags{}
				}
				m[kid][id][core.Day(d)] = f
			}
		}
	}
	return m, nil
}

func decodeMonthly(raw []byte) (map[int]decimal.Decimal, error) {
	var wire map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(map[int]decimal.Decimal, len(wire))
	for k, v := range wire {
		kid, err := strconv.Atoi(k)
		if err != nil || kid < 0 {
			continue
		}
		out[kid] = decodeAmount(v)
	}
	return out, nil
}

// decodeAmount accepts a JSON number or a numeric string; anything else is zero.
func decodeAmount(raw json.RawMessage) decimal.Decimal {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return decimal.Zero
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero
		}
		v, _ := core.ParseTaskValue(s)
		return v
	}
	v, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return v
}
