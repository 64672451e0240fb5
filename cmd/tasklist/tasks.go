package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/basket/tasklist/internal/shared"
	"github.com/basket/tasklist/internal/tasks"
	"github.com/basket/tasklist/internal/telemetry"
)

func runAddCommand(ctx context.Context, args []string, out io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: tasklist add <text...>")
		return 2
	}
	text := strings.Join(args, " ")
	rt, ok := openOrReport(ctx)
	if !ok {
		return 1
	}
	defer rt.Close()

	ctx = commandContext(ctx, "add", tasks.ID{})
	t, err := rt.tasks.Add(ctx, text)
	if err != nil {
		return reportTaskError(err)
	}
	telemetry.WithContext(shared.WithTaskID(ctx, t.ID.String()), rt.logger).Info("cli command completed")
	fmt.Fprintf(out, "added %s\n", t.ID)
	return 0
}

func runEditCommand(ctx context.Context, args []string, out io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: tasklist edit <id> <text...>")
		return 2
	}
	rt, ok := openOrReport(ctx)
	if !ok {
		return 1
	}
	defer rt.Close()

	id := tasks.ParseID(args[0])
	ctx = commandContext(ctx, "update", id)
	t, err := rt.tasks.Update(ctx, id, strings.Join(args[1:], " "))
	if err != nil {
		return reportTaskError(explainMissing(rt.tasks, id, err))
	}
	telemetry.WithContext(ctx, rt.logger).Info("cli command completed")
	fmt.Fprintf(out, "updated %s on %s\n", t.ID, *t.UpdatedAt)
	return 0
}

func runDeleteCommand(ctx context.Context, args []string, out io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tasklist delete <id>")
		return 2
	}
	rt, ok := openOrReport(ctx)
	if !ok {
		return 1
	}
	defer rt.Close()

	id := tasks.ParseID(args[0])
	ctx = commandContext(ctx, "delete", id)
	t, err := rt.tasks.Delete(ctx, id)
	if err != nil {
		return reportTaskError(explainMissing(rt.tasks, id, err))
	}
	telemetry.WithContext(ctx, rt.logger).Info("cli command completed")
	fmt.Fprintf(out, "deleted %s\n", t.ID)
	return 0
}

// commandContext tags ctx with a fresh trace id, the operation and, when
// known, the task it targets.
func commandContext(ctx context.Context, op string, id tasks.ID) context.Context {
	ctx = shared.WithOperation(shared.WithTraceID(ctx, shared.NewTraceID()), op)
	if !id.IsZero() {
		ctx = shared.WithTaskID(ctx, id.String())
	}
	return ctx
}

// explainMissing adds the deletion date when id names a deleted task.
func explainMissing(store *tasks.Store, id tasks.ID, err error) error {
	if !errors.Is(err, tasks.ErrNotFound) {
		return err
	}
	if t, ok := store.Get(id); ok && t.Deleted() {
		return fmt.Errorf("task %s was deleted on %s", id, *t.DeletedAt)
	}
	return err
}

func reportTaskError(err error) int {
	switch {
	case errors.Is(err, tasks.ErrEmptyText):
		fmt.Fprintln(os.Stderr, "Task cannot be empty")
		return 2
	case errors.Is(err, tasks.ErrNotFound):
		fmt.Fprintln(os.Stderr, "no active task with that id")
	default:
		fmt.Fprintf(os.Stderr, "tasklist: %v\n", err)
	}
	return 1
}

// selectionFlags are the filter flags shared by list and export.
type selectionFlags struct {
	filter *string
	text   *string
	date   *string
}

func addSelectionFlags(fs *flag.FlagSet) selectionFlags {
	return selectionFlags{
		filter: fs.String("filter", "all", "filter mode: all, text or date"),
		text:   fs.String("q", "", "text to search for (with -filter text)"),
		date:   fs.String("date", "", "creation date YYYY-MM-DD (with -filter date)"),
	}
}

// query builds the selection, inferring the filter from -q or -date when
// -filter was left at all.
func (f selectionFlags) query() (tasks.Query, error) {
	ft, err := tasks.ParseFilterType(*f.filter)
	if err != nil {
		return tasks.Query{}, err
	}
	q := tasks.Query{Filter: ft, SearchText: *f.text}
	if *f.date != "" {
		d, err := tasks.ParseDate(*f.date)
		if err != nil {
			return tasks.Query{}, err
		}
		q.SearchDate = d
	}
	if q.Filter == tasks.FilterAll {
		switch {
		case q.SearchText != "":
			q.Filter = tasks.FilterText
		case q.SearchDate != "":
			q.Filter = tasks.FilterDate
		}
	}
	return q, nil
}

func runListCommand(ctx context.Context, args []string, out io.Writer) int {
	fs := flag.NewFlagSet("tasklist list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sel := addSelectionFlags(fs)
	size := fs.Int("size", 0, "page size (default from config)")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	q, err := sel.query()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	rt, ok := openOrReport(ctx)
	if !ok {
		return 1
	}
	defer rt.Close()

	store := rt.tasks
	store.SetFilter(q.Filter)
	store.SetSearchText(q.SearchText)
	store.SetSearchDate(q.SearchDate)
	if *size != 0 {
		if err := store.SetPageSize(*size); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}
	store.SetPage(*page)

	view := store.View()
	counts := store.Counts()
	fmt.Fprintln(out, renderTable(view))
	fmt.Fprintf(out, "Page %d of %d · %d matching · Total %d · Active %d\n",
		view.CurrentPage, view.TotalPages, view.TotalActiveCount, counts.Total, counts.Active)
	return 0
}

func renderTable(view tasks.ActiveView) string {
	if len(view.Items) == 0 {
		return "No tasks to show."
	}
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Sr. No.", "ID", "Task", "Created", "Updated").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for i, task := range view.Items {
		updated := "-"
		if task.UpdatedAt != nil {
			updated = task.UpdatedAt.String()
		}
		t.Row(strconv.Itoa(view.Offset+i+1), task.ID.String(), task.Text, task.CreatedAt.String(), updated)
	}
	return t.String()
}
