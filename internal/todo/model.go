package todo

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// All matches every value of a filter field.
const All = "all"

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// ParsePriority accepts a priority name in any case.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Category    string     `json:"category"`
	Priority    Priority   `json:"priority"`
	Notes       string     `json:"notes,omitempty"`
}

func (t Task) clone() Task {
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return t
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TaskDraft carries the caller-supplied fields of a new task.
type TaskDraft struct {
	Title       string
	Description string
	Completed   bool
	DueDate     *time.Time
	Category    string
	Priority    Priority
	Notes       string
}

// TaskPatch holds the fields to change on an existing task. Nil fields are
// left untouched.
type TaskPatch struct {
	Title        *string
	Description  *string
	Completed    *bool
	DueDate      *time.Time
	ClearDueDate bool
	Category     *string
	Priority     *Priority
	Notes        *string
}

func (p TaskPatch) apply(t *Task) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
}

type CategoryDraft struct {
	Name  string
	Color string
}

type CategoryPatch struct {
	Name  *string
	Color *string
}

func (p CategoryPatch) apply(c *Category) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
}

// Snapshot is the complete dataset of one principal.
type Snapshot struct {
	Tasks      []Task     `json:"tasks"`
	Categories []Category `json:"categories"`
}

func cloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.clone()
	}
	return out
}

func cloneCategories(cats []Category) []Category {
	out := make([]Category, len(cats))
	copy(out, cats)
	return out
}
