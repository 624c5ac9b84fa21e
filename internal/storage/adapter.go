package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"todoapp/internal/todo"
)

// KV is the key-value backend used by Adapter. *Store implements it.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	PutMany(ctx context.Context, entries map[string]string) error
}

// StorageError reports a failed read or write of a durable entry.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DefaultCategories seeds the dataset of a principal with no stored categories.
func DefaultCategories() []todo.Category {
	return []todo.Category{
		{ID: "cat-1", Name: "Personal", Color: "#3b82f6"},
		{ID: "cat-2", Name: "Work", Color: "#ef4444"},
		{ID: "cat-3", Name: "Shopping", Color: "#10b981"},
		{ID: "cat-4", Name: "Health", Color: "#f97316"},
	}
}

func TasksKey(principalID string) string      { return "tasks_" + principalID }
func CategoriesKey(principalID string) string { return "categories_" + principalID }

// Adapter persists per-principal snapshots as two JSON entries.
type Adapter struct {
	kv KV
}

func NewAdapter(kv KV) *Adapter {
	return &Adapter{kv: kv}
}

func (a *Adapter) Load(ctx context.Context, principalID string) (todo.Snapshot, error) {
	snap := todo.Snapshot{Tasks: []todo.Task{}}

	key := TasksKey(principalID)
	raw, ok, err := a.kv.Get(ctx, key)
	if err != nil {
		return todo.Snapshot{}, &StorageError{Op: "read", Key: key, Err: err}
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &snap.Tasks); err != nil {
			return todo.Snapshot{}, &StorageError{Op: "decode", Key: key, Err: err}
		}
		if snap.Tasks == nil {
			snap.Tasks = []todo.Task{}
		}
	}

	key = CategoriesKey(principalID)
	raw, ok, err = a.kv.Get(ctx, key)
	if err != nil {
		return todo.Snapshot{}, &StorageError{Op: "read", Key: key, Err: err}
	}
	if !ok {
		snap.Categories = DefaultCategories()
		return snap, nil
	}
	if err := json.Unmarshal([]byte(raw), &snap.Categories); err != nil {
		return todo.Snapshot{}, &StorageError{Op: "decode", Key: key, Err: err}
	}
	if snap.Categories == nil {
		snap.Categories = []todo.Category{}
	}
	return snap, nil
}

// Save overwrites both entries of principalID with snap.
func (a *Adapter) Save(ctx context.Context, principalID string, snap todo.Snapshot) error {
	tasks := snap.Tasks
	if tasks == nil {
		tasks = []todo.Task{}
	}
	cats := snap.Categories
	if cats == nil {
		cats = []todo.Category{}
	}
	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return &StorageError{Op: "encode", Key: TasksKey(principalID), Err: err}
	}
	catsJSON, err := json.Marshal(cats)
	if err != nil {
		return &StorageError{Op: "encode", Key: CategoriesKey(principalID), Err: err}
	}
	entries := map[string]string{
		TasksKey(principalID):      string(tasksJSON),
		CategoriesKey(principalID): string(catsJSON),
	}
	if err := a.kv.PutMany(ctx, entries); err != nil {
		return &StorageError{Op: "write", Key: TasksKey(principalID), Err: err}
	}
	return nil
}
