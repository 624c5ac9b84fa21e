package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"todoapp/internal/todo"
)

// NewStatsCommand returns the stats subcommand.
func NewStatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show task statistics",
		Action: loggedIn(runStats),
	}
}

func runStats(_ context.Context, cmd *cli.Command, s *session) error {
	st := s.app.Stats()
	w := stdout(cmd)
	fmt.Fprintf(w, "Total:       %d\n", st.Total)
	fmt.Fprintf(w, "Completed:   %d (%d%%)\n", st.Completed, st.CompletionRate)
	fmt.Fprintf(w, "Active:      %d\n", st.Active)
	fmt.Fprintf(w, "Due today:   %d\n", st.DueToday)
	fmt.Fprintf(w, "Due in 7d:   %d\n", st.DueThisWeek)
	fmt.Fprintf(w, "Priority:    high %d, medium %d, low %d\n",
		st.ByPriority[todo.PriorityHigh],
		st.ByPriority[todo.PriorityMedium],
		st.ByPriority[todo.PriorityLow],
	)
	return nil
}
