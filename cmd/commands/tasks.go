package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"todoapp/internal/todo"
)

// NewAddCommand returns the add subcommand.
func NewAddCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a task",
		ArgsUsage: "<title>",
		Flags:     taskFlags(),
		Action:    loggedIn(runAdd),
	}
}

// NewListCommand returns the list subcommand.
func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List tasks of the current view",
		Flags:   viewFlags(),
		Action:  loggedIn(runList),
	}
}

// NewEditCommand returns the edit subcommand.
func NewEditCommand() *cli.Command {
	flags := append(taskFlags(),
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
		&cli.BoolFlag{Name: "no-due", Usage: "Remove the due date"},
	)
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit a task",
		ArgsUsage: "<task_id>",
		Flags:     flags,
		Action:    loggedIn(runEdit),
	}
}

// NewToggleCommand returns the toggle subcommand.
func NewToggleCommand() *cli.Command {
	return &cli.Command{
		Name:      "toggle",
		Usage:     "Flip a task between active and completed",
		ArgsUsage: "<task_id>",
		Action:    loggedIn(runToggle),
	}
}

// NewRemoveCommand returns the rm subcommand.
func NewRemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a task",
		ArgsUsage: "<task_id>",
		Action:    loggedIn(runRemove),
	}
}

func taskFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Description"},
		&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "high, medium or low"},
		&cli.StringFlag{Name: "due", Usage: "Due date (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "category", Usage: "Category name or id"},
		&cli.StringFlag{Name: "notes", Usage: "Notes"},
	}
}

func viewFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "status", Usage: "all, active or completed"},
		&cli.StringFlag{Name: "category", Usage: "Category name or id"},
		&cli.StringFlag{Name: "priority", Usage: "high, medium, low or all"},
		&cli.StringFlag{Name: "range", Usage: "Due date range: all, today, week or month"},
		&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Match title, description or notes"},
		&cli.StringFlag{Name: "sort", Usage: "name, dueDate, priority or category"},
	}
}

// applyViewFlags narrows the session's view to the filters given on the
// command line.
func applyViewFlags(cmd *cli.Command, s *session) error {
	var patch todo.FilterPatch
	if cmd.IsSet("status") {
		st := todo.StatusFilter(strings.ToLower(cmd.String("status")))
		if !st.Valid() {
			return fmt.Errorf("status %q: want all, active or completed", cmd.String("status"))
		}
		patch.Status = &st
	}
	if cmd.IsSet("category") {
		id := todo.All
		if v := cmd.String("category"); !strings.EqualFold(v, todo.All) {
			c, err := resolveCategory(s.app.Repo(), v)
			if err != nil {
				return err
			}
			id = c.ID
		}
		patch.Category = &id
	}
	if cmd.IsSet("priority") {
		v := strings.ToLower(cmd.String("priority"))
		if v != todo.All {
			p, err := parsePriority(v)
			if err != nil {
				return err
			}
			v = string(p)
		}
		patch.Priority = &v
	}
	if cmd.IsSet("range") {
		r := todo.DateRange(strings.ToLower(cmd.String("range")))
		if !r.Valid() {
			return fmt.Errorf("range %q: want all, today, week or month", cmd.String("range"))
		}
		patch.DateRange = &r
	}
	if cmd.IsSet("search") {
		term := cmd.String("search")
		patch.SearchTerm = &term
	}
	s.app.UpdateFilters(patch)
	if cmd.IsSet("sort") {
		if err := s.app.SetSort(todo.SortOption(cmd.String("sort"))); err != nil {
			return err
		}
	}
	return nil
}

func runAdd(ctx context.Context, cmd *cli.Command, s *session) error {
	title := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(title) == "" {
		return errors.New("usage: todo add [flags] <title>")
	}
	draft := todo.TaskDraft{
		Title:       title,
		Description: cmd.String("description"),
		Notes:       cmd.String("notes"),
		Priority:    todo.PriorityMedium,
	}
	if cmd.IsSet("priority") {
		p, err := parsePriority(cmd.String("priority"))
		if err != nil {
			return err
		}
		draft.Priority = p
	}
	if cmd.IsSet("due") {
		due, err := parseDue(cmd.String("due"))
		if err != nil {
			return err
		}
		draft.DueDate = due
	}
	if cmd.IsSet("category") {
		c, err := resolveCategory(s.app.Repo(), cmd.String("category"))
		if err != nil {
			return err
		}
		draft.Category = c.ID
	} else if cats := s.app.Repo().Categories(); len(cats) > 0 {
		draft.Category = cats[0].ID
	}

	t, err := s.app.Repo().AddTask(ctx, draft)
	if err != nil {
		return fmt.Errorf("add task: %w", err)
	}
	fmt.Fprintf(stdout(cmd), "Added %s %q.\n", shortID(t.ID), t.Title)
	return nil
}

func runList(_ context.Context, cmd *cli.Command, s *session) error {
	if err := applyViewFlags(cmd, s); err != nil {
		return err
	}
	view := s.app.View()
	out := stdout(cmd)
	if len(view) == 0 {
		fmt.Fprintln(out, "No tasks found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tPRIORITY\tDUE\tCATEGORY\tTITLE")
	for _, t := range view {
		done := " "
		if t.Completed {
			done = "x"
		}
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		category := "-"
		if c, ok := s.app.Repo().Category(t.Category); ok {
			category = c.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(t.ID),
			done,
			t.Priority,
			due,
			category,
			t.Title,
		)
	}
	return w.Flush()
}

func runEdit(ctx context.Context, cmd *cli.Command, s *session) error {
	t, err := resolveTask(s.app.Repo(), cmd.Args().First())
	if err != nil {
		return err
	}

	var patch todo.TaskPatch
	if cmd.IsSet("title") {
		title := cmd.String("title")
		if strings.TrimSpace(title) == "" {
			return errors.New("title cannot be empty")
		}
		patch.Title = &title
	}
	if cmd.IsSet("description") {
		v := cmd.String("description")
		patch.Description = &v
	}
	if cmd.IsSet("notes") {
		v := cmd.String("notes")
		patch.Notes = &v
	}
	if cmd.IsSet("priority") {
		p, err := parsePriority(cmd.String("priority"))
		if err != nil {
			return err
		}
		patch.Priority = &p
	}
	if cmd.IsSet("category") {
		c, err := resolveCategory(s.app.Repo(), cmd.String("category"))
		if err != nil {
			return err
		}
		patch.Category = &c.ID
	}
	switch {
	case cmd.Bool("no-due"):
		patch.ClearDueDate = true
	case cmd.IsSet("due"):
		due, err := parseDue(cmd.String("due"))
		if err != nil {
			return err
		}
		patch.DueDate = due
	}

	if err := s.app.Repo().UpdateTask(ctx, t.ID, patch); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	fmt.Fprintf(stdout(cmd), "Updated %s.\n", shortID(t.ID))
	return nil
}

func runToggle(ctx context.Context, cmd *cli.Command, s *session) error {
	t, err := resolveTask(s.app.Repo(), cmd.Args().First())
	if err != nil {
		return err
	}
	if err := s.app.Repo().ToggleTaskCompletion(ctx, t.ID); err != nil {
		return fmt.Errorf("toggle task: %w", err)
	}
	state := "completed"
	if t.Completed {
		state = "active"
	}
	fmt.Fprintf(stdout(cmd), "Task %s is now %s.\n", shortID(t.ID), state)
	return nil
}

func runRemove(ctx context.Context, cmd *cli.Command, s *session) error {
	t, err := resolveTask(s.app.Repo(), cmd.Args().First())
	if err != nil {
		return err
	}
	if err := s.app.Repo().DeleteTask(ctx, t.ID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	fmt.Fprintf(stdout(cmd), "Deleted %s %q.\n", shortID(t.ID), t.Title)
	return nil
}
