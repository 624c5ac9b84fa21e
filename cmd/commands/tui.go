package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"todoapp/internal/identity"
	"todoapp/internal/ui"
)

// NewTUICommand returns the tui subcommand.
func NewTUICommand() *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive TUI",
		Action: runTUI,
	}
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	// The terminal belongs to bubbletea, so logs go to a file.
	s, err := openSession(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, ok := s.app.Current(); !ok {
		return fmt.Errorf("%w: run `todo login` first", identity.ErrNotLoggedIn)
	}
	return ui.Run(s.app, s.cfg)
}
