package core

import (
	"errors"
	"testing"
)

func TestApplyCommand(t *testing.T) {
	s := DefaultState()
	steps := []Command{
		{Name: CmdRenameKid, Args: Args{"kid": "1", "name": "Bea"}},
		{Name: CmdAddTask},
		{Name: CmdRenameTask, Args: Args{"task": "5", "name": "Feed Cat"}},
		{Name: CmdSetTaskValue, Args: Args{"task": "5", "value": "0.75"}},
		{Name: CmdToggleCompletion, Args: Args{"kid": "1", "task": "5", "day": "2", "sub": "1"}},
		{Name: CmdRemoveTask, Args: Args{"task": "4"}},
	}
	var err error
	for _, cmd := range steps {
		s, err = ApplyCommand(s, cmd)
		if err != nil {
			t.Fatalf("%s: %v", cmd.Name, err)
		}
	}
	if s.KidNames[1] != "Bea" {
		t.Fatalf("rename kid not applied: %v", s.KidNames)
	}
	task, ok := s.Task(5)
	if !ok || task.Name != "Feed Cat" || task.Value.String() != "0.75" {
		t.Fatalf("unexpected task 5: %+v", task)
	}
	if !s.Completions.Flags(1, 5, 2)[1] {
		t.Fatalf("toggle not applied")
	}
	if _, ok := s.Task(4); ok {
		t.Fatalf("task 4 should be removed")
	}
	if e := ComputeEarnings(s); e.Weekly[1].String() != "0.75" {
		t.Fatalf("unexpected weekly %s", e.Weekly[1])
	}
}

func TestApplyCommandErrors(t *testing.T) {
	s := DefaultState()
	tests := []struct {
		name string
		cmd  Command
		want error
	}{
		{"unknown", Command{Name: "explode"}, ErrUnknownCommand},
		{"bad kid", Command{Name: CmdRenameKid, Args: Args{"kid": "x"}}, ErrInvalidArgument},
		{"missing task", Command{Name: CmdRemoveTask}, ErrInvalidArgument},
		{"kid range", Command{Name: CmdRenameKid, Args: Args{"kid": "9"}}, ErrKidOutOfRange},
		{"bad sub", Command{Name: CmdToggleCompletion, Args: Args{"kid": "0", "task": "1", "day": "0", "sub": "5"}}, ErrSubFlagOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := ApplyCommand(s, tt.cmd)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if next.Revision != s.Revision {
				t.Fatalf("failed command must not advance the snapshot")
			}
		})
	}
}
