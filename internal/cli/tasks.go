package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

const maxTitleWidth = 80

var errNotSaved = errors.New("the task API did not confirm the change; not saved")

// loaded returns a controller holding the server's list.
func (s *session) loaded(ctx context.Context) (*app.Controller, error) {
	ctrl, err := s.controller(s.stderrLogger())
	if err != nil {
		return nil, err
	}
	ctrl.Load(ctx)
	if err := ctrl.LoadErr(); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return ctrl, nil
}

func (s *session) lsCmd() *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List tasks",
		Args:  noArgs("ls"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := s.loaded(cmd.Context())
			if err != nil {
				return err
			}
			renderList(ctrl.Tasks(), group)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&group, "group", "g", false, "group by pending/done")
	return cmd
}

func (s *session) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a new task (title can be multiple words)",
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return usagef("add: empty title")
			}
			ctrl, err := s.controller(s.stderrLogger())
			if err != nil {
				return err
			}
			t := ctrl.Add(cmd.Context(), title)
			if t.Sync != model.Synced {
				return fmt.Errorf("add: %w", errNotSaved)
			}
			ui.OK(fmt.Sprintf("added #%d", t.ID))
			return nil
		},
	}
}

func (s *session) doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <index>",
		Short: "Toggle done for the task at a 1-based index",
		Args:  indexArg("done"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, t, err := s.pick(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			toggled, _ := ctrl.Toggle(cmd.Context(), t.ID)
			if toggled.Sync != model.Synced {
				return fmt.Errorf("done: %w", errNotSaved)
			}
			ui.OK("toggled")
			return nil
		},
	}
}

func (s *session) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Remove the task at a 1-based index",
		Args:  indexArg("rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, t, err := s.pick(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ctrl.Delete(cmd.Context(), t.ID)
			if ctrl.Unsynced() > 0 {
				return fmt.Errorf("rm: %w", errNotSaved)
			}
			ui.OK("removed")
			return nil
		},
	}
}

func (s *session) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Check that the task API is reachable",
		Args:  noArgs("sync"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := s.client(s.stderrLogger())
			if err != nil {
				return err
			}
			tasks, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			ui.OK(fmt.Sprintf("%s: %d tasks", client.BaseURL(), len(tasks)))
			return nil
		},
	}
}

// pick loads the list and resolves a 1-based index argument.
func (s *session) pick(ctx context.Context, arg string) (*app.Controller, model.Task, error) {
	n, _ := strconv.Atoi(arg)
	ctrl, err := s.loaded(ctx)
	if err != nil {
		return nil, model.Task{}, err
	}
	tasks := ctrl.Tasks()
	if n < 1 || n > len(tasks) {
		fmt.Fprintln(ui.Stderr, ui.C(ui.Current().Muted, "Hint: run `tada ls` to see valid indexes"))
		return nil, model.Task{}, usagef("index out of range: have %d, got %d", len(tasks), n)
	}
	return ctrl, tasks[n-1], nil
}

func noArgs(name string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) > 0 {
			return usagef("usage: tada %s", name)
		}
		return nil
	}
}

func indexArg(name string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != 1 {
			return usagef("usage: tada %s <index>", name)
		}
		if _, err := strconv.Atoi(args[0]); err != nil {
			return usagef("%s: not a number: %s", name, args[0])
		}
		return nil
	}
}

// -------------- rendering helpers --------------

func renderList(tasks []model.Task, group bool) {
	th := ui.Current()
	done, pending := model.Stats(tasks)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(th.Title, "Tasks"),
		ui.C(th.Success, th.SymDone), done,
		ui.C(th.Pending, th.SymPending), pending,
		ui.C(th.Accent, "Total"), len(tasks),
	)

	lines := []string{
		header,
		ui.C(th.Muted, ui.ProgressBar(done, done+pending, 28)),
		"",
	}
	if group {
		lines = append(lines, groupLines(tasks)...)
	} else {
		lines = append(lines, flatLines(tasks, 1)...)
	}
	lines = append(lines, "", ui.C(th.Muted, "Tip: add with `tada add \"Buy milk\"`"))
	ui.Panel(lines)
}

// flatLines numbers rows from first so grouped output keeps list indexes.
func flatLines(tasks []model.Task, first int) []string {
	th := ui.Current()
	if len(tasks) == 0 {
		return []string{ui.C(th.Muted, "No tasks yet! Add your first one with `tada add`")}
	}
	out := make([]string, 0, len(tasks))
	for i, t := range tasks {
		idx := fmt.Sprintf("%2d.", first+i)
		box, color := th.BoxUnchecked, th.Muted
		if t.Completed {
			box, color = th.BoxChecked, th.Success
		}
		line := fmt.Sprintf("%s %s %s", ui.C(th.Muted, idx), ui.C(color, box), ui.Truncate(t.Title, maxTitleWidth))
		if t.Sync != model.Synced {
			line += " " + ui.C(th.Pending, th.SymUnsynced)
		}
		out = append(out, line)
	}
	return out
}

func groupLines(tasks []model.Task) []string {
	th := ui.Current()
	var pend, done []string
	for i, t := range tasks {
		line := flatLines([]model.Task{t}, i+1)[0]
		if t.Completed {
			done = append(done, line)
		} else {
			pend = append(pend, line)
		}
	}
	section := func(title string, rows []string) []string {
		out := []string{ui.C(th.Accent, title)}
		if len(rows) == 0 {
			return append(out, ui.C(th.Muted, "(none)"))
		}
		return append(out, rows...)
	}
	lines := section("Pending", pend)
	lines = append(lines, "")
	return append(lines, section("Done", done)...)
}
