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

// NewCategoryCommand returns the category subcommand.
func NewCategoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "category",
		Usage: "Manage categories",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List categories",
				Action: loggedIn(runCategoryList),
			},
			{
				Name:      "add",
				Usage:     "Add a category",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "color", Usage: "Color as #RRGGBB", Value: "#6b7280"},
				},
				Action: loggedIn(runCategoryAdd),
			},
			{
				Name:      "rename",
				Usage:     "Rename a category",
				ArgsUsage: "<category> <new_name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "color", Usage: "New color as #RRGGBB"},
				},
				Action: loggedIn(runCategoryRename),
			},
			{
				Name:      "rm",
				Usage:     "Delete a category; its tasks move to the first remaining category",
				ArgsUsage: "<category>",
				Action:    loggedIn(runCategoryRemove),
			},
		},
		DefaultCommand: "list",
	}
}

func runCategoryList(_ context.Context, cmd *cli.Command, s *session) error {
	counts := make(map[string]int)
	for _, t := range s.app.Repo().Tasks() {
		counts[t.Category]++
	}

	w := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLOR\tTASKS")
	for _, c := range s.app.Repo().Categories() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.ID, c.Name, c.Color, counts[c.ID])
	}
	return w.Flush()
}

func runCategoryAdd(ctx context.Context, cmd *cli.Command, s *session) error {
	name := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(name) == "" {
		return errors.New("usage: todo category add [--color #RRGGBB] <name>")
	}
	c, err := s.app.Repo().AddCategory(ctx, todo.CategoryDraft{Name: name, Color: cmd.String("color")})
	if err != nil {
		return fmt.Errorf("add category: %w", err)
	}
	fmt.Fprintf(stdout(cmd), "Added category %s %q.\n", c.ID, c.Name)
	return nil
}

func runCategoryRename(ctx context.Context, cmd *cli.Command, s *session) error {
	if cmd.Args().Len() < 2 {
		return errors.New("usage: todo category rename <category> <new_name>")
	}
	c, err := resolveCategory(s.app.Repo(), cmd.Args().First())
	if err != nil {
		return err
	}
	name := strings.Join(cmd.Args().Tail(), " ")
	if strings.TrimSpace(name) == "" {
		return errors.New("name cannot be empty")
	}
	patch := todo.CategoryPatch{Name: &name}
	if cmd.IsSet("color") {
		color := cmd.String("color")
		patch.Color = &color
	}
	if err := s.app.Repo().UpdateCategory(ctx, c.ID, patch); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	fmt.Fprintf(stdout(cmd), "Renamed %q to %q.\n", c.Name, strings.TrimSpace(name))
	return nil
}

func runCategoryRemove(ctx context.Context, cmd *cli.Command, s *session) error {
	c, err := resolveCategory(s.app.Repo(), cmd.Args().First())
	if err != nil {
		return err
	}
	if err := s.app.Repo().DeleteCategory(ctx, c.ID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	fmt.Fprintf(stdout(cmd), "Deleted category %q.\n", c.Name)
	return nil
}
