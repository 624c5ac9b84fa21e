package todo

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type StatusFilter string

const (
	StatusAll       StatusFilter = All
	StatusActive    StatusFilter = "active"
	StatusCompleted StatusFilter = "completed"
)

func (s StatusFilter) Valid() bool {
	return s == StatusAll || s == StatusActive || s == StatusCompleted
}

type DateRange string

const (
	RangeAll   DateRange = All
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
)

func (r DateRange) Valid() bool {
	switch r {
	case RangeAll, RangeToday, RangeWeek, RangeMonth:
		return true
	}
	return false
}

type SortOption string

const (
	SortName     SortOption = "name"
	SortDueDate  SortOption = "dueDate"
	SortPriority SortOption = "priority"
	SortCategory SortOption = "category"
)

// SortOptions lists the sort options in display order.
var SortOptions = []SortOption{SortDueDate, SortName, SortPriority, SortCategory}

func (s SortOption) Valid() bool {
	switch s {
	case SortName, SortDueDate, SortPriority, SortCategory:
		return true
	}
	return false
}

// Filters selects the tasks of a view. Category and Priority hold All or a
// concrete value.
type Filters struct {
	Status     StatusFilter `json:"status"`
	Category   string       `json:"category"`
	Priority   string       `json:"priority"`
	DateRange  DateRange    `json:"dateRange"`
	SearchTerm string       `json:"searchTerm"`
}

func DefaultFilters() Filters {
	return Filters{
		Status:    StatusAll,
		Category:  All,
		Priority:  All,
		DateRange: RangeAll,
	}
}

// FilterPatch is a partial filter update; nil fields keep their value.
type FilterPatch struct {
	Status     *StatusFilter
	Category   *string
	Priority   *string
	DateRange  *DateRange
	SearchTerm *string
}

func (f Filters) Merge(p FilterPatch) Filters {
	if p.Status != nil {
		f.Status = *p.Status
	}
	if p.Category != nil {
		f.Category = *p.Category
	}
	if p.Priority != nil {
		f.Priority = *p.Priority
	}
	if p.DateRange != nil {
		f.DateRange = *p.DateRange
	}
	if p.SearchTerm != nil {
		f.SearchTerm = *p.SearchTerm
	}
	return f
}

type viewConfig struct {
	now  time.Time
	lang language.Tag
}

type ViewOption func(*viewConfig)

// WithNow sets the reference time for date range filters. Calendar days are
// taken in now's location.
func WithNow(now time.Time) ViewOption {
	return func(c *viewConfig) { c.now = now }
}

// WithLanguage sets the collation locale for name and category sorting.
func WithLanguage(tag language.Tag) ViewOption {
	return func(c *viewConfig) { c.lang = tag }
}

// View filters and sorts tasks. It does not modify its inputs.
func View(tasks []Task, filters Filters, sortBy SortOption, categories []Category, opts ...ViewOption) []Task {
	cfg := viewConfig{now: time.Now(), lang: language.English}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := newMatcher(filters, cfg.now)
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if m.match(t) {
			out = append(out, t.clone())
		}
	}
	sortTasks(out, sortBy, categories, cfg.lang)
	return out
}

type matcher struct {
	filters Filters
	search  string
	today   time.Time
	limit   time.Time
}

func newMatcher(f Filters, now time.Time) matcher {
	m := matcher{filters: f, search: strings.ToLower(f.SearchTerm)}
	m.today = startOfDay(now)
	switch f.DateRange {
	case RangeToday:
		m.limit = m.today
	case RangeWeek:
		m.limit = m.today.AddDate(0, 0, 7)
	case RangeMonth:
		m.limit = m.today.AddDate(0, 1, 0)
	}
	return m
}

func (m matcher) match(t Task) bool {
	f := m.filters
	switch f.Status {
	case StatusActive:
		if t.Completed {
			return false
		}
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	}
	if f.Category != "" && f.Category != All && t.Category != f.Category {
		return false
	}
	if f.Priority != "" && f.Priority != All && string(t.Priority) != f.Priority {
		return false
	}
	if !m.matchDate(t) {
		return false
	}
	if m.search != "" {
		return containsFold(t.Title, m.search) ||
			containsFold(t.Description, m.search) ||
			containsFold(t.Notes, m.search)
	}
	return true
}

func (m matcher) matchDate(t Task) bool {
	switch m.filters.DateRange {
	case RangeToday, RangeWeek, RangeMonth:
	default:
		return true
	}
	if t.DueDate == nil {
		return false
	}
	day := startOfDay(t.DueDate.In(m.today.Location()))
	return !day.Before(m.today) && !day.After(m.limit)
}

func containsFold(s, lowerTerm string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), lowerTerm)
}

func startOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

func sortTasks(tasks []Task, sortBy SortOption, categories []Category, lang language.Tag) {
	var less func(a, b Task) bool
	switch sortBy {
	case SortName:
		col := collate.New(lang)
		less = func(a, b Task) bool { return col.CompareString(a.Title, b.Title) < 0 }
	case SortDueDate:
		less = func(a, b Task) bool {
			switch {
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			}
			return a.DueDate.Before(*b.DueDate)
		}
	case SortPriority:
		less = func(a, b Task) bool { return a.Priority.rank() < b.Priority.rank() }
	case SortCategory:
		col := collate.New(lang)
		names := make(map[string]string, len(categories))
		for _, c := range categories {
			if _, seen := names[c.ID]; !seen {
				names[c.ID] = c.Name
			}
		}
		less = func(a, b Task) bool { return col.CompareString(names[a.Category], names[b.Category]) < 0 }
	default:
		return
	}
	sort.SliceStable(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) })
}
