package todo

import (
	"math"
	"time"
)

// Stats summarises a task collection for the overview screen.
type Stats struct {
	Total          int
	Completed      int
	Active         int
	CompletionRate int // percent, rounded
	DueToday       int
	DueThisWeek    int
	ByPriority     map[Priority]int
}

func ComputeStats(tasks []Task, now time.Time) Stats {
	s := Stats{
		Total: len(tasks),
		ByPriority: map[Priority]int{
			PriorityHigh:   0,
			PriorityMedium: 0,
			PriorityLow:    0,
		},
	}
	today := startOfDay(now)
	weekEnd := today.AddDate(0, 0, 7)
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
		if t.Priority.Valid() {
			s.ByPriority[t.Priority]++
		}
		if t.DueDate == nil {
			continue
		}
		day := startOfDay(t.DueDate.In(now.Location()))
		if day.Equal(today) {
			s.DueToday++
		}
		if !day.Before(today) && !day.After(weekEnd) {
			s.DueThisWeek++
		}
	}
	s.Active = s.Total - s.Completed
	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) * 100 / float64(s.Total)))
	}
	return s
}
