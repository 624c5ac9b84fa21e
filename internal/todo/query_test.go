package todo

import (
	"testing"
	"time"
)

var queryNow = time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 18, 0, 0, 0, time.UTC)
	return &t
}

func ids(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sampleTasks() []Task {
	return []Task{
		{ID: "1", Title: "Buy Milk", Category: "shop", Priority: PriorityLow, DueDate: day(2024, 3, 1)},
		{ID: "2", Title: "write report", Description: "Quarterly numbers", Category: "work", Priority: PriorityHigh, Completed: true, DueDate: day(2024, 3, 8)},
		{ID: "3", Title: "Dentist", Notes: "bring insurance card", Category: "health", Priority: PriorityMedium, DueDate: day(2024, 4, 1)},
		{ID: "4", Title: "apples", Category: "shop", Priority: PriorityHigh},
		{ID: "5", Title: "Old bill", Category: "gone", Priority: PriorityMedium, Completed: true, DueDate: day(2024, 2, 28)},
	}
}

func TestViewStatusPartitions(t *testing.T) {
	tasks := sampleTasks()
	f := DefaultFilters()

	f.Status = StatusActive
	active := View(tasks, f, SortName, nil, WithNow(queryNow))
	f.Status = StatusCompleted
	completed := View(tasks, f, SortName, nil, WithNow(queryNow))

	for _, task := range active {
		if task.Completed {
			t.Errorf("active view contains completed task %s", task.ID)
		}
	}
	for _, task := range completed {
		if !task.Completed {
			t.Errorf("completed view contains active task %s", task.ID)
		}
	}
	if len(active)+len(completed) != len(tasks) {
		t.Errorf("Expected partitions to cover %d tasks, got %d+%d", len(tasks), len(active), len(completed))
	}
}

func TestViewFilters(t *testing.T) {
	tests := []struct {
		name  string
		patch FilterPatch
		want  []string
	}{
		{"default keeps everything", FilterPatch{}, []string{"1", "2", "3", "4", "5"}},
		{"category", FilterPatch{Category: ptr("shop")}, []string{"1", "4"}},
		{"priority", FilterPatch{Priority: ptr("high")}, []string{"2", "4"}},
		{"today", FilterPatch{DateRange: ptr(RangeToday)}, []string{"1"}},
		{"week is inclusive", FilterPatch{DateRange: ptr(RangeWeek)}, []string{"1", "2"}},
		{"month is inclusive", FilterPatch{DateRange: ptr(RangeMonth)}, []string{"1", "2", "3"}},
		{"search title case-insensitive", FilterPatch{SearchTerm: ptr("milk")}, []string{"1"}},
		{"search description", FilterPatch{SearchTerm: ptr("QUARTERLY")}, []string{"2"}},
		{"search notes", FilterPatch{SearchTerm: ptr("insurance")}, []string{"3"}},
		{"search no match", FilterPatch{SearchTerm: ptr("zebra")}, []string{}},
		{"combined", FilterPatch{Category: ptr("shop"), Priority: ptr("high")}, []string{"4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFilters().Merge(tt.patch)
			got := ids(View(sampleTasks(), f, "", nil, WithNow(queryNow)))
			if !equalIDs(got, tt.want) {
				t.Errorf("View = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViewDateRangeUsesCalendarDays(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, 3, 1, 0, 30, 0, 0, loc)
	// 23:00 UTC on Feb 29 is already March 1st in now's location.
	due := time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)
	tasks := []Task{{ID: "late", Title: "x", DueDate: &due}}

	f := DefaultFilters()
	f.DateRange = RangeToday
	if got := View(tasks, f, "", nil, WithNow(now)); len(got) != 1 {
		t.Errorf("Expected task due today in local calendar, got %v", ids(got))
	}
}

func TestViewSortByDueDate(t *testing.T) {
	tasks := []Task{
		{ID: "a", Title: "a", DueDate: day(2024, 3, 5)},
		{ID: "b", Title: "b"},
		{ID: "c", Title: "c", DueDate: day(2024, 3, 1)},
		{ID: "d", Title: "d"},
	}
	got := ids(View(tasks, DefaultFilters(), SortDueDate, nil, WithNow(queryNow)))
	want := []string{"c", "a", "b", "d"}
	if !equalIDs(got, want) {
		t.Errorf("dueDate sort = %v, want %v", got, want)
	}
}

func TestViewSortByName(t *testing.T) {
	tasks := []Task{
		{ID: "1", Title: "banana"},
		{ID: "2", Title: "Apple"},
		{ID: "3", Title: "éclair"},
		{ID: "4", Title: "apple"},
		{ID: "5", Title: "Zucchini"},
	}
	got := View(tasks, DefaultFilters(), SortName, nil)
	titles := make([]string, len(got))
	for i, task := range got {
		titles[i] = task.Title
	}
	if titles[0] != "apple" && titles[0] != "Apple" {
		t.Errorf("Expected an apple first, got %v", titles)
	}
	if titles[2] != "banana" || titles[3] != "éclair" || titles[4] != "Zucchini" {
		t.Errorf("Expected locale-aware order, got %v", titles)
	}
}

func TestViewSortByPriorityIsStable(t *testing.T) {
	tasks := []Task{
		{ID: "1", Priority: PriorityLow},
		{ID: "2", Priority: PriorityHigh},
		{ID: "3", Priority: PriorityMedium},
		{ID: "4", Priority: PriorityHigh},
		{ID: "5", Priority: PriorityLow},
	}
	got := ids(View(tasks, DefaultFilters(), SortPriority, nil))
	want := []string{"2", "4", "3", "1", "5"}
	if !equalIDs(got, want) {
		t.Errorf("priority sort = %v, want %v", got, want)
	}
}

func TestViewSortByCategoryName(t *testing.T) {
	cats := []Category{
		{ID: "w", Name: "Work"},
		{ID: "h", Name: "Health"},
		{ID: "p", Name: "personal"},
	}
	tasks := []Task{
		{ID: "1", Category: "w"},
		{ID: "2", Category: "missing"},
		{ID: "3", Category: "p"},
		{ID: "4", Category: "h"},
	}
	got := ids(View(tasks, DefaultFilters(), SortCategory, cats))
	want := []string{"2", "4", "3", "1"}
	if !equalIDs(got, want) {
		t.Errorf("category sort = %v, want %v", got, want)
	}
}

func TestViewDoesNotModifyInput(t *testing.T) {
	tasks := []Task{{ID: "b", Title: "b"}, {ID: "a", Title: "a"}}
	View(tasks, DefaultFilters(), SortName, nil)
	if tasks[0].ID != "b" {
		t.Error("View reordered its input")
	}
}

func TestFiltersMerge(t *testing.T) {
	f := DefaultFilters().Merge(FilterPatch{Status: ptr(StatusActive)})
	f = f.Merge(FilterPatch{SearchTerm: ptr("milk")})
	if f.Status != StatusActive || f.SearchTerm != "milk" || f.Category != All {
		t.Errorf("unexpected merged filters: %+v", f)
	}
}

func TestOptionValidity(t *testing.T) {
	if !StatusActive.Valid() || StatusFilter("done").Valid() {
		t.Error("unexpected StatusFilter validity")
	}
	if !RangeWeek.Valid() || DateRange("year").Valid() {
		t.Error("unexpected DateRange validity")
	}
	if !SortCategory.Valid() || SortOption("size").Valid() {
		t.Error("unexpected SortOption validity")
	}
}
