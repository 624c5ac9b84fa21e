package todo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the durable side of the repository, keyed by principal id.
type Store interface {
	Load(ctx context.Context, principalID string) (Snapshot, error)
	Save(ctx context.Context, principalID string, snap Snapshot) error
}

type Option func(*Repository)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithIDGenerator overrides task and category id generation.
func WithIDGenerator(gen func() string) Option {
	return func(r *Repository) { r.newID = gen }
}

func WithLogger(log *slog.Logger) Option {
	return func(r *Repository) { r.log = log }
}

// Repository owns the task and category collections of the current
// principal. Every state change is followed by a full snapshot save.
type Repository struct {
	mu         sync.RWMutex
	store      Store
	principal  string
	tasks      []Task
	categories []Category
	selection  *Selection
	now        func() time.Time
	newID      func() string
	log        *slog.Logger
}

func NewRepository(store Store, opts ...Option) *Repository {
	r := &Repository{
		store:     store,
		selection: NewSelection(),
		now:       time.Now,
		newID:     uuid.NewString,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reload swaps the collections for those of principalID. An empty id clears
// everything. On a load error the previous state is kept.
func (r *Repository) Reload(ctx context.Context, principalID string) error {
	if principalID == "" {
		r.mu.Lock()
		r.principal = ""
		r.tasks = nil
		r.categories = nil
		r.selection.Clear()
		r.mu.Unlock()
		r.log.Debug("repository cleared")
		return nil
	}

	snap, err := r.store.Load(ctx, principalID)
	if err != nil {
		r.log.Warn("load failed", "principal", principalID, "error", err)
		return fmt.Errorf("load data for %s: %w", principalID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.principal = principalID
	r.tasks = cloneTasks(snap.Tasks)
	r.categories = cloneCategories(snap.Categories)
	r.selection.Clear()
	r.log.Debug("repository loaded", "principal", principalID, "tasks", len(r.tasks), "categories", len(r.categories))
	return nil
}

func (r *Repository) Principal() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.principal
}

// Tasks returns a copy of the task collection in insertion order (newest first).
func (r *Repository) Tasks() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneTasks(r.tasks)
}

func (r *Repository) Categories() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneCategories(r.categories)
}

func (r *Repository) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{Tasks: cloneTasks(r.tasks), Categories: cloneCategories(r.categories)}
}

func (r *Repository) Task(id string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.taskIndex(id); i >= 0 {
		return r.tasks[i].clone(), true
	}
	return Task{}, false
}

func (r *Repository) Category(id string) (Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.categoryIndex(id); i >= 0 {
		return r.categories[i], true
	}
	return Category{}, false
}

// AddTask creates a task from draft and puts it first. A blank title is
// rejected silently: the result is nil with no error.
func (r *Repository) AddTask(ctx context.Context, draft TaskDraft) (*Task, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, nil
	}
	priority := draft.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.stamp(time.Time{})
	t := Task{
		ID:          r.newID(),
		Title:       title,
		Description: draft.Description,
		Completed:   draft.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
		Category:    draft.Category,
		Priority:    priority,
		Notes:       draft.Notes,
	}
	if draft.DueDate != nil {
		due := *draft.DueDate
		t.DueDate = &due
	}
	r.tasks = append([]Task{t}, r.tasks...)
	r.log.Debug("task added", "id", t.ID, "title", t.Title)

	out := t.clone()
	return &out, r.saveLocked(ctx)
}

// UpdateTask merges patch into the task with the given id. Unknown ids and
// patches that blank the title are ignored.
func (r *Repository) UpdateTask(ctx context.Context, id string, patch TaskPatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.taskIndex(id)
	if i < 0 {
		return nil
	}
	t := r.tasks[i].clone()
	patch.apply(&t)
	t.UpdatedAt = r.stamp(t.UpdatedAt)
	r.tasks[i] = t
	r.log.Debug("task updated", "id", id)
	return r.saveLocked(ctx)
}

func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.taskIndex(id)
	if i < 0 {
		return nil
	}
	r.tasks = append(r.tasks[:i:i], r.tasks[i+1:]...)
	r.selection.Remove(id)
	r.log.Debug("task deleted", "id", id)
	return r.saveLocked(ctx)
}

func (r *Repository) ToggleTaskCompletion(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.taskIndex(id)
	if i < 0 {
		return nil
	}
	r.tasks[i].Completed = !r.tasks[i].Completed
	r.tasks[i].UpdatedAt = r.stamp(r.tasks[i].UpdatedAt)
	r.log.Debug("task toggled", "id", id, "completed", r.tasks[i].Completed)
	return r.saveLocked(ctx)
}

// AddCategory appends a category. A blank name is rejected silently.
func (r *Repository) AddCategory(ctx context.Context, draft CategoryDraft) (*Category, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := Category{ID: r.newID(), Name: name, Color: draft.Color}
	r.categories = append(r.categories, c)
	r.log.Debug("category added", "id", c.ID, "name", c.Name)
	return &c, r.saveLocked(ctx)
}

func (r *Repository) UpdateCategory(ctx context.Context, id string, patch CategoryPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.categoryIndex(id)
	if i < 0 {
		return nil
	}
	patch.apply(&r.categories[i])
	r.log.Debug("category updated", "id", id)
	return r.saveLocked(ctx)
}

// DeleteCategory removes the category and moves its tasks to the first
// remaining category, or to no category when none is left.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.categoryIndex(id)
	if i < 0 {
		return nil
	}
	r.categories = append(r.categories[:i:i], r.categories[i+1:]...)

	fallback := ""
	if len(r.categories) > 0 {
		fallback = r.categories[0].ID
	}
	moved := 0
	for j := range r.tasks {
		if r.tasks[j].Category == id {
			r.tasks[j].Category = fallback
			r.tasks[j].UpdatedAt = r.stamp(r.tasks[j].UpdatedAt)
			moved++
		}
	}
	r.log.Debug("category deleted", "id", id, "reassigned", moved, "to", fallback)
	return r.saveLocked(ctx)
}

// BatchCompleteTasks sets the completion flag of every listed task.
func (r *Repository) BatchCompleteTasks(ctx context.Context, ids []string, completed bool) error {
	if len(ids) == 0 {
		return nil
	}
	want := idSet(ids)

	r.mu.Lock()
	defer r.mu.Unlock()

	changed := 0
	for i := range r.tasks {
		if _, ok := want[r.tasks[i].ID]; ok {
			r.tasks[i].Completed = completed
			r.tasks[i].UpdatedAt = r.stamp(r.tasks[i].UpdatedAt)
			changed++
		}
	}
	if changed == 0 {
		return nil
	}
	r.log.Debug("tasks batch completed", "count", changed, "completed", completed)
	return r.saveLocked(ctx)
}

func (r *Repository) BatchDeleteTasks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	want := idSet(ids)

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.tasks[:0:0]
	for _, t := range r.tasks {
		if _, ok := want[t.ID]; !ok {
			kept = append(kept, t)
		}
	}
	removed := len(r.tasks) - len(kept)
	r.selection.Remove(ids...)
	if removed == 0 {
		return nil
	}
	r.tasks = kept
	r.log.Debug("tasks batch deleted", "count", removed)
	return r.saveLocked(ctx)
}

// Replace installs snap as the whole dataset, as done by an import.
func (r *Repository) Replace(ctx context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = cloneTasks(snap.Tasks)
	r.categories = cloneCategories(snap.Categories)
	r.selection.Clear()
	r.log.Debug("repository replaced", "tasks", len(r.tasks), "categories", len(r.categories))
	return r.saveLocked(ctx)
}

// ToggleSelection flips the selection mark of an existing task.
func (r *Repository) ToggleSelection(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taskIndex(id) < 0 {
		return false
	}
	return r.selection.Toggle(id)
}

// SelectAll replaces the selection with the given ids, skipping unknown ones.
func (r *Repository) SelectAll(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selection.Replace(ids)
	r.selection.Retain(func(id string) bool { return r.taskIndex(id) >= 0 })
}

func (r *Repository) ClearSelection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selection.Clear()
}

func (r *Repository) Selected() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selection.IDs()
}

func (r *Repository) IsSelected(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selection.Has(id)
}

func (r *Repository) saveLocked(ctx context.Context) error {
	if r.principal == "" || r.store == nil {
		return nil
	}
	snap := Snapshot{Tasks: r.tasks, Categories: r.categories}
	if err := r.store.Save(ctx, r.principal, snap); err != nil {
		r.log.Error("save failed", "principal", r.principal, "error", err)
		return fmt.Errorf("save data for %s: %w", r.principal, err)
	}
	return nil
}

// stamp returns the current time, never earlier than prev.
func (r *Repository) stamp(prev time.Time) time.Time {
	now := r.now().Round(0)
	if now.Before(prev) {
		return prev
	}
	return now
}

func (r *Repository) taskIndex(id string) int {
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) categoryIndex(id string) int {
	for i := range r.categories {
		if r.categories[i].ID == id {
			return i
		}
	}
	return -1
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
