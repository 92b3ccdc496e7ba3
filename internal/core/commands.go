package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Command names understood by ApplyCommand.
const (
	CmdRenameKid        = "rename_kid"
	CmdRenameTask       = "rename_task"
	CmdSetTaskValue     = "set_task_value"
	CmdAddTask          = "add_task"
	CmdRemoveTask       = "remove_task"
	CmdToggleCompletion = "toggle_completion"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Args carries command arguments as text, the way forms and CLI flags deliver them.
type Args map[string]string

// Command is a named state transition.
type Command struct {
	Name string
	Args Args
}

// CommandHandler turns a command into a new snapshot.
type CommandHandler interface {
	Apply(s State, args Args) (State, error)
}

type commandFunc func(s State, args Args) (State, error)

func (f commandFunc) Apply(s State, args Args) (State, error) { return f(s, args) }

var registry = map[string]CommandHandler{
	CmdRenameKid: commandFunc(func(s State, a Args) (State, error) {
		kid, err := a.Int("kid")
		if err != nil {
			return s, err
		}
		return s.RenameKid(kid, a["name"])
	}),
	CmdRenameTask: commandFunc(func(s State, a Args) (State, error) {
		id, err := a.Int64("task")
		if err != nil {
			return s, err
		}
		return s.RenameTask(id, a["name"])
	}),
	CmdSetTaskValue: commandFunc(func(s State, a Args) (State, error) {
		id, err := a.Int64("task")
		if err != nil {
			return s, err
		}
		return s.SetTaskValue(id, a["value"])
	}),
	CmdAddTask: commandFunc(func(s State, _ Args) (State, error) {
		next, _ := s.AddTask()
		return next, nil
	}),
	CmdRemoveTask: commandFunc(func(s State, a Args) (State, error) {
		id, err := a.Int64("task")
		if err != nil {
			return s, err
		}
		return s.RemoveTask(id)
	}),
	CmdToggleCompletion: commandFunc(func(s State, a Args) (State, error) {
		kid, err := a.Int("kid")
		if err != nil {
			return s, err
		}
		id, err := a.Int64("task")
		if err != nil {
			return s, err
		}
		day, err := a.Int("day")
		if err != nil {
			return s, err
		}
		sub, err := a.Int("sub")
		if err != nil {
			return s, err
		}
		return s.ToggleCompletion(kid, id, Day(day), sub)
	}),
}

// ApplyCommand dispatches cmd to its handler.
func ApplyCommand(s State, cmd Command) (State, error) {
	h, ok := registry[cmd.Name]
	if !ok {
		return s, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}
	return h.Apply(s, cmd.Args)
}

// Int parses an integer argument.
func (a Args) Int(key string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(a[key]))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidArgument, key, a[key])
	}
	return v, nil
}

// Int64 parses a 64-bit integer argument.
func (a Args) Int64(key string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(a[key]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidArgument, key, a[key])
	}
	return v, nil
}
