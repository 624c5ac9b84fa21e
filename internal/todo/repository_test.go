package todo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type memStore struct {
	data    map[string]Snapshot
	saves   int
	saveErr error
	loadErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]Snapshot{}}
}

func (m *memStore) Load(_ context.Context, id string) (Snapshot, error) {
	if m.loadErr != nil {
		return Snapshot{}, m.loadErr
	}
	return m.data[id], nil
}

func (m *memStore) Save(_ context.Context, id string, snap Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data[id] = Snapshot{Tasks: cloneTasks(snap.Tasks), Categories: cloneCategories(snap.Categories)}
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func ptr[T any](v T) *T { return &v }

func newTestRepo(t *testing.T) (*Repository, *memStore, *fakeClock) {
	t.Helper()
	store := newMemStore()
	store.data["u1"] = Snapshot{Categories: []Category{
		{ID: "A", Name: "Alpha", Color: "#000001"},
		{ID: "B", Name: "Beta", Color: "#000002"},
		{ID: "C", Name: "Gamma", Color: "#000003"},
	}}
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	repo := NewRepository(store, WithClock(clock.Now), WithIDGenerator(sequentialIDs()))
	if err := repo.Reload(context.Background(), "u1"); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	return repo, store, clock
}

func TestAddTask(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newTestRepo(t)

	first, err := repo.AddTask(ctx, TaskDraft{Title: "  First  ", Category: "A"})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if first.Title != "First" {
		t.Errorf("Expected trimmed title 'First', got %q", first.Title)
	}
	if !first.CreatedAt.Equal(first.UpdatedAt) {
		t.Errorf("Expected createdAt == updatedAt, got %v and %v", first.CreatedAt, first.UpdatedAt)
	}
	if first.Priority != PriorityMedium {
		t.Errorf("Expected default priority medium, got %q", first.Priority)
	}
	if _, err := repo.AddTask(ctx, TaskDraft{Title: "Second"}); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	tasks := repo.Tasks()
	if len(tasks) != 2 || tasks[0].Title != "Second" || tasks[1].Title != "First" {
		t.Fatalf("Expected newest-first order, got %+v", tasks)
	}
	if store.saves != 2 {
		t.Errorf("Expected 2 saves, got %d", store.saves)
	}
	if got := len(store.data["u1"].Tasks); got != 2 {
		t.Errorf("Expected 2 persisted tasks, got %d", got)
	}
}

func TestAddTaskRejectsBlankTitle(t *testing.T) {
	repo, store, _ := newTestRepo(t)

	task, err := repo.AddTask(context.Background(), TaskDraft{Title: "   "})
	if err != nil || task != nil {
		t.Fatalf("Expected silent rejection, got task=%v err=%v", task, err)
	}
	if len(repo.Tasks()) != 0 {
		t.Error("Expected no task to be added")
	}
	if store.saves != 0 {
		t.Errorf("Expected no save, got %d", store.saves)
	}
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	repo, _, clock := newTestRepo(t)
	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	task, _ := repo.AddTask(ctx, TaskDraft{Title: "Write report", DueDate: &due})

	clock.Advance(time.Hour)
	err := repo.UpdateTask(ctx, task.ID, TaskPatch{
		Title:    ptr("Write final report"),
		Priority: ptr(PriorityHigh),
		Notes:    ptr("two pages"),
	})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	got, ok := repo.Task(task.ID)
	if !ok {
		t.Fatal("task missing after update")
	}
	if got.Title != "Write final report" || got.Priority != PriorityHigh || got.Notes != "two pages" {
		t.Errorf("patch not applied: %+v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("Expected due date to be kept, got %v", got.DueDate)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("Expected updatedAt after createdAt, got %v <= %v", got.UpdatedAt, got.CreatedAt)
	}

	if err := repo.UpdateTask(ctx, task.ID, TaskPatch{ClearDueDate: true}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if got, _ := repo.Task(task.ID); got.DueDate != nil {
		t.Errorf("Expected due date cleared, got %v", got.DueDate)
	}
}

func TestUpdateTaskIgnoresUnknownAndBlank(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newTestRepo(t)
	task, _ := repo.AddTask(ctx, TaskDraft{Title: "Keep me"})
	saves := store.saves

	if err := repo.UpdateTask(ctx, "missing", TaskPatch{Title: ptr("x")}); err != nil {
		t.Fatalf("UpdateTask on unknown id returned %v", err)
	}
	if err := repo.UpdateTask(ctx, task.ID, TaskPatch{Title: ptr(" "), Notes: ptr("n")}); err != nil {
		t.Fatalf("UpdateTask with blank title returned %v", err)
	}
	got, _ := repo.Task(task.ID)
	if got.Title != "Keep me" || got.Notes != "" {
		t.Errorf("Expected task unchanged, got %+v", got)
	}
	if store.saves != saves {
		t.Errorf("Expected no extra saves, got %d", store.saves-saves)
	}
}

func TestTimestampsNeverGoBackwards(t *testing.T) {
	ctx := context.Background()
	repo, _, clock := newTestRepo(t)
	task, _ := repo.AddTask(ctx, TaskDraft{Title: "Clock skew"})

	clock.Advance(-time.Hour)
	if err := repo.ToggleTaskCompletion(ctx, task.ID); err != nil {
		t.Fatalf("ToggleTaskCompletion failed: %v", err)
	}
	got, _ := repo.Task(task.ID)
	if !got.Completed {
		t.Error("Expected task to be completed")
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("updatedAt %v before createdAt %v", got.UpdatedAt, got.CreatedAt)
	}
}

func TestDeleteTaskPrunesSelection(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newTestRepo(t)
	a, _ := repo.AddTask(ctx, TaskDraft{Title: "a"})
	b, _ := repo.AddTask(ctx, TaskDraft{Title: "b"})
	repo.SelectAll([]string{a.ID, b.ID})

	if err := repo.DeleteTask(ctx, a.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if repo.IsSelected(a.ID) {
		t.Error("Expected deleted task to leave the selection")
	}
	if !repo.IsSelected(b.ID) {
		t.Error("Expected remaining task to stay selected")
	}
	if len(repo.Tasks()) != 1 {
		t.Errorf("Expected 1 task, got %d", len(repo.Tasks()))
	}
}

func TestDeleteCategoryReassignsTasks(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newTestRepo(t)
	a, _ := repo.AddTask(ctx, TaskDraft{Title: "in A", Category: "A"})
	c, _ := repo.AddTask(ctx, TaskDraft{Title: "in C", Category: "C"})

	if err := repo.DeleteCategory(ctx, "A"); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	if got, _ := repo.Task(a.ID); got.Category != "B" {
		t.Errorf("Expected task moved to B, got %q", got.Category)
	}
	if got, _ := repo.Task(c.ID); got.Category != "C" {
		t.Errorf("Expected unrelated task to stay in C, got %q", got.Category)
	}

	if err := repo.DeleteCategory(ctx, "B"); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	if got, _ := repo.Task(a.ID); got.Category != "C" {
		t.Errorf("Expected task moved to C, got %q", got.Category)
	}
	if err := repo.DeleteCategory(ctx, "C"); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	for _, task := range repo.Tasks() {
		if task.Category != "" {
			t.Errorf("Expected empty category once none remain, got %q for %s", task.Category, task.Title)
		}
	}
	if len(store.data["u1"].Categories) != 0 {
		t.Errorf("Expected persisted categories to be empty, got %d", len(store.data["u1"].Categories))
	}
}

func TestCategoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newTestRepo(t)

	if c, err := repo.AddCategory(ctx, CategoryDraft{Name: ""}); c != nil || err != nil {
		t.Fatalf("Expected blank category to be rejected, got %v %v", c, err)
	}
	c, err := repo.AddCategory(ctx, CategoryDraft{Name: "Errands", Color: "#123456"})
	if err != nil {
		t.Fatalf("AddCategory failed: %v", err)
	}
	cats := repo.Categories()
	if cats[len(cats)-1].ID != c.ID {
		t.Error("Expected new category to be appended")
	}
	if err := repo.UpdateCategory(ctx, c.ID, CategoryPatch{Color: ptr("#654321")}); err != nil {
		t.Fatalf("UpdateCategory failed: %v", err)
	}
	if err := repo.UpdateCategory(ctx, c.ID, CategoryPatch{Name: ptr("")}); err != nil {
		t.Fatalf("UpdateCategory failed: %v", err)
	}
	got, _ := repo.Category(c.ID)
	if got.Name != "Errands" || got.Color != "#654321" {
		t.Errorf("Unexpected category after updates: %+v", got)
	}
}

func TestBatchOperations(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newTestRepo(t)
	a, _ := repo.AddTask(ctx, TaskDraft{Title: "a"})
	b, _ := repo.AddTask(ctx, TaskDraft{Title: "b"})
	c, _ := repo.AddTask(ctx, TaskDraft{Title: "c"})

	saves := store.saves
	if err := repo.BatchDeleteTasks(ctx, nil); err != nil {
		t.Fatalf("BatchDeleteTasks failed: %v", err)
	}
	if err := repo.BatchCompleteTasks(ctx, []string{}, true); err != nil {
		t.Fatalf("BatchCompleteTasks failed: %v", err)
	}
	if store.saves != saves || len(repo.Tasks()) != 3 {
		t.Fatal("Expected empty batches to be no-ops")
	}

	if err := repo.BatchCompleteTasks(ctx, []string{a.ID, b.ID, "ghost"}, true); err != nil {
		t.Fatalf("BatchCompleteTasks failed: %v", err)
	}
	for _, task := range repo.Tasks() {
		want := task.ID != c.ID
		if task.Completed != want {
			t.Errorf("task %s completed=%v, want %v", task.Title, task.Completed, want)
		}
	}

	repo.SelectAll([]string{a.ID, c.ID})
	if err := repo.BatchDeleteTasks(ctx, repo.Selected()); err != nil {
		t.Fatalf("BatchDeleteTasks failed: %v", err)
	}
	tasks := repo.Tasks()
	if len(tasks) != 1 || tasks[0].ID != b.ID {
		t.Fatalf("Expected only b to remain, got %+v", tasks)
	}
	if len(repo.Selected()) != 0 {
		t.Errorf("Expected selection pruned, got %v", repo.Selected())
	}
}

func TestSelectionStaysSubsetOfTasks(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newTestRepo(t)
	a, _ := repo.AddTask(ctx, TaskDraft{Title: "a"})

	if repo.ToggleSelection("ghost") {
		t.Error("Expected unknown id not to be selectable")
	}
	repo.SelectAll([]string{a.ID, "ghost"})
	if got := repo.Selected(); len(got) != 1 || got[0] != a.ID {
		t.Errorf("Expected selection [%s], got %v", a.ID, got)
	}
	if repo.ToggleSelection(a.ID) {
		t.Error("Expected toggle to deselect")
	}
	repo.ToggleSelection(a.ID)
	repo.ClearSelection()
	if len(repo.Selected()) != 0 {
		t.Error("Expected empty selection after clear")
	}
}

func TestSaveFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newTestRepo(t)
	store.saveErr = errors.New("quota exceeded")

	task, err := repo.AddTask(ctx, TaskDraft{Title: "unsaved"})
	if !errors.Is(err, store.saveErr) {
		t.Fatalf("Expected wrapped save error, got %v", err)
	}
	if task == nil || len(repo.Tasks()) != 1 {
		t.Fatal("Expected the task to stay in memory")
	}
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newTestRepo(t)
	task, _ := repo.AddTask(ctx, TaskDraft{Title: "mine"})
	repo.ToggleSelection(task.ID)

	store.loadErr = errors.New("storage unavailable")
	if err := repo.Reload(ctx, "u2"); err == nil {
		t.Fatal("Expected load error")
	}
	if repo.Principal() != "u1" || len(repo.Tasks()) != 1 {
		t.Error("Expected previous state kept after failed reload")
	}

	store.loadErr = nil
	if err := repo.Reload(ctx, "u2"); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if repo.Principal() != "u2" || len(repo.Tasks()) != 0 || len(repo.Selected()) != 0 {
		t.Errorf("Expected empty dataset for u2, got %d tasks", len(repo.Tasks()))
	}

	if err := repo.Reload(ctx, ""); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if repo.Principal() != "" || len(repo.Categories()) != 0 {
		t.Error("Expected cleared repository")
	}
	saves := store.saves
	if _, err := repo.AddTask(ctx, TaskDraft{Title: "anonymous"}); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if store.saves != saves {
		t.Error("Expected no save without a principal")
	}
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	repo, store, _ := newTestRepo(t)
	old, _ := repo.AddTask(ctx, TaskDraft{Title: "old"})
	repo.ToggleSelection(old.ID)

	snap := Snapshot{
		Tasks:      []Task{{ID: "t1", Title: "imported", Priority: PriorityLow}},
		Categories: []Category{{ID: "x", Name: "X", Color: "#ffffff"}},
	}
	if err := repo.Replace(ctx, snap); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if tasks := repo.Tasks(); len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Errorf("Expected imported tasks, got %+v", tasks)
	}
	if len(repo.Selected()) != 0 {
		t.Error("Expected selection cleared")
	}
	if got := store.data["u1"].Categories; len(got) != 1 || got[0].ID != "x" {
		t.Errorf("Expected imported categories persisted, got %+v", got)
	}
}

func TestTasksReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newTestRepo(t)
	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	task, _ := repo.AddTask(ctx, TaskDraft{Title: "copy", DueDate: &due})

	tasks := repo.Tasks()
	tasks[0].Title = "mutated"
	*tasks[0].DueDate = due.AddDate(1, 0, 0)

	got, _ := repo.Task(task.ID)
	if got.Title != "copy" || !got.DueDate.Equal(due) {
		t.Errorf("Expected repository state isolated from callers, got %+v", got)
	}
}
