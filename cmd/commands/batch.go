package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// NewBatchCommand returns the batch subcommand. Each action applies to every
// task of the filtered view.
func NewBatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Apply an action to all tasks matching the filters",
		Commands: []*cli.Command{
			{
				Name:   "complete",
				Usage:  "Mark matching tasks completed",
				Flags:  viewFlags(),
				Action: loggedIn(batchComplete(true)),
			},
			{
				Name:   "reopen",
				Usage:  "Mark matching tasks active",
				Flags:  viewFlags(),
				Action: loggedIn(batchComplete(false)),
			},
			{
				Name:   "delete",
				Usage:  "Delete matching tasks",
				Flags:  viewFlags(),
				Action: loggedIn(runBatchDelete),
			},
		},
	}
}

func batchComplete(completed bool) sessionAction {
	return func(ctx context.Context, cmd *cli.Command, s *session) error {
		if err := applyViewFlags(cmd, s); err != nil {
			return err
		}
		s.app.SelectAllVisible()
		n, err := s.app.BatchCompleteSelected(ctx, completed)
		if err != nil {
			return fmt.Errorf("batch update: %w", err)
		}
		state := "completed"
		if !completed {
			state = "reopened"
		}
		fmt.Fprintf(stdout(cmd), "%d task(s) %s.\n", n, state)
		return nil
	}
}

func runBatchDelete(ctx context.Context, cmd *cli.Command, s *session) error {
	if err := applyViewFlags(cmd, s); err != nil {
		return err
	}
	s.app.SelectAllVisible()
	n, err := s.app.BatchDeleteSelected(ctx)
	if err != nil {
		return fmt.Errorf("batch delete: %w", err)
	}
	fmt.Fprintf(stdout(cmd), "%d task(s) deleted.\n", n)
	return nil
}
