package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"scoreboard/internal/cli"
	"scoreboard/internal/core"
	"scoreboard/internal/persist"
	"scoreboard/internal/services"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "scoreboardctl",
		Short:         "Inspect and edit the family chore scoreboard",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)

	root.AddCommand(
		a.showCmd(),
		a.resetCmd(),
		a.addTaskCmd(),
		a.removeTaskCmd(),
		a.renameKidCmd(),
		a.renameTaskCmd(),
		a.setValueCmd(),
		a.toggleCmd(),
		a.exportCmd(),
		a.importCmd(),
	)
	return root
}

// withBoard opens the board, runs fn and releases the backend.
func (a *app) withBoard(ctx context.Context, fn func(svc *services.ScoreboardService) error) error {
	board, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer board.Close()
	return fn(board.Service)
}

// mutate runs one command and prints the resulting board.
func (a *app) mutate(cmd *cobra.Command, fn func(ctx context.Context, svc *services.ScoreboardService) (services.View, error)) error {
	return a.withBoard(cmd.Context(), func(svc *services.ScoreboardService) error {
		v, err := fn(cmd.Context(), svc)
		if err != nil {
			return commandError(err)
		}
		if err := svc.LastSaveError(); err != nil {
			return codeError(exitFailure, "change applied but not saved: %v", err)
		}
		return renderBoard(a.out, v)
	})
}

func commandError(err error) error {
	if services.IsInvalidInput(err) {
		return codeError(exitRejected, "%v", err)
	}
	return err
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print tasks, daily totals and weekly/monthly/cumulative earnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBoard(cmd.Context(), func(svc *services.ScoreboardService) error {
				return renderBoard(a.out, svc.View())
			})
		},
	}
}

func (a *app) resetCmd() *cobra.Command {
	var yes bool
	c := &cobra.Command{
		Use:   "reset",
		Short: "Bank this week's earnings into the monthly totals and clear all checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var confirmer services.Confirmer = cli.PromptConfirmer{In: a.in, Out: a.out}
			if yes {
				confirmer = services.Confirmed(true)
			}
			return a.withBoard(cmd.Context(), func(svc *services.ScoreboardService) error {
				out, err := svc.ResetWeek(cmd.Context(), confirmer)
				if err != nil {
					return err
				}
				if !out.Confirmed {
					fmt.Fprintln(a.out, "Reset cancelled.")
					return nil
				}
				fmt.Fprintln(a.out, core.RolloverNotice)
				return renderBoard(a.out, out.View)
			})
		},
	}
	c.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return c
}

func (a *app) addTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-task",
		Short: "Append an empty task worth $0.00",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd, func(ctx context.Context, svc *services.ScoreboardService) (services.View, error) {
				t, v, err := svc.AddTask(ctx)
				if err == nil {
					fmt.Fprintf(a.out, "Added task %d\n", t.ID)
				}
				return v, err
			})
		},
	}
}

func (a *app) removeTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-task <id>",
		Short: "Delete a task and its checks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.mutate(cmd, func(ctx context.Context, svc *services.ScoreboardService) (services.View, error) {
				return svc.RemoveTask(ctx, id)
			})
		},
	}
}

func (a *app) renameKidCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename-kid <index> <name>",
		Short: "Rename the kid at a zero-based index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kid, err := parseIndex("index", args[0])
			if err != nil {
				return err
			}
			return a.mutate(cmd, func(ctx context.Context, svc *services.ScoreboardService) (services.View, error) {
				return svc.RenameKid(ctx, kid, args[1])
			})
		},
	}
}

func (a *app) renameTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename-task <id> <name>",
		Short: "Rename a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.mutate(cmd, func(ctx context.Context, svc *services.ScoreboardService) (services.View, error) {
				return svc.RenameTask(ctx, id, args[1])
			})
		},
	}
}

func (a *app) setValueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-value <id> <amount>",
		Short: "Set a task's value; text that is not a number becomes 0",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.mutate(cmd, func(ctx context.Context, svc *services.ScoreboardService) (services.View, error) {
				return svc.SetTaskValue(ctx, id, args[1])
			})
		},
	}
}

func (a *app) toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <kid> <task-id> <day> <sub>",
		Short: "Flip one check (day 0 = Monday, sub 0-2)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			kid, err := parseIndex("kid", args[0])
			if err != nil {
				return err
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			day, err := parseIndex("day", args[2])
			if err != nil {
				return err
			}
			sub, err := parseIndex("sub", args[3])
			if err != nil {
				return err
			}
			return a.mutate(cmd, func(ctx context.Context, svc *services.ScoreboardService) (services.View, error) {
				return svc.ToggleCompletion(ctx, kid, id, core.Day(day), sub)
			})
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var outPath string
	c := &cobra.Command{
		Use:   "export",
		Short: "Write the four stored slots as a JSON dump",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBoard(cmd.Context(), func(svc *services.ScoreboardService) error {
				dump, err := persist.ExportDump(svc.State())
				if err != nil {
					return err
				}
				if outPath == "" {
					_, err = a.out.Write(append(dump, '\n'))
					return err
				}
				if err := os.WriteFile(outPath, dump, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
				fmt.Fprintf(a.out, "Exported to %s\n", outPath)
				return nil
			})
		},
	}
	c.Flags().StringVarP(&outPath, "out", "o", "", "Write to file instead of stdout")
	return c
}

func (a *app) importCmd() *cobra.Command {
	var yes bool
	c := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the board with a JSON dump (export output or a browser localStorage dump)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return codeError(exitFailure, "read %s: %v", args[0], err)
			}
			st, issues, err := persist.ImportDump(bytes.NewReader(raw))
			if err != nil {
				return codeError(exitRejected, "%v", err)
			}
			for _, issue := range issues {
				fmt.Fprintf(a.out, "warning: %s; using the default\n", issue.Error())
			}

			var confirmer services.Confirmer = cli.PromptConfirmer{In: a.in, Out: a.out}
			if yes {
				confirmer = services.Confirmed(true)
			}
			ok, err := confirmer.Confirm(cmd.Context(), "Replace the current scoreboard with "+args[0]+"?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.out, "Import cancelled.")
				return nil
			}

			return a.withBoard(cmd.Context(), func(svc *services.ScoreboardService) error {
				v := svc.Replace(cmd.Context(), st)
				if err := svc.LastSaveError(); err != nil {
					return codeError(exitFailure, "import not saved: %v", err)
				}
				return renderBoard(a.out, v)
			})
		},
	}
	c.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return c
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, codeError(exitRejected, "task id %q is not a number", raw)
	}
	return id, nil
}

func parseIndex(name, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, codeError(exitRejected, "%s %q is not a number", name, raw)
	}
	return n, nil
}

// renderBoard prints the task list and one earnings line per kid.
func renderBoard(w io.Writer, v services.View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tTASK\tVALUE")
	for _, t := range v.State.Tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", t.ID, t.Name, core.FormatAmount(t.Value))
	}
	fmt.Fprintln(tw)

	fmt.Fprint(tw, "#\tKID")
	for _, d := range core.Days() {
		fmt.Fprintf(tw, "\t%s", d.Name()[:3])
	}
	fmt.Fprintln(tw, "\tWEEKLY\tMONTHLY\tCUMULATIVE")
	for _, s := range v.Summary {
		fmt.Fprintf(tw, "%d\t%s", s.Index, s.Name)
		for _, d := range core.Days() {
			fmt.Fprintf(tw, "\t%s", core.FormatAmount(v.Earnings.Daily[s.Index][d]))
		}
		fmt.Fprintf(tw, "\t%s\t%s\t%s\n",
			core.FormatAmount(s.Weekly), core.FormatAmount(s.Monthly), core.FormatAmount(s.Cumulative))
	}
	return tw.Flush()
}
