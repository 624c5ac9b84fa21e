package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"todoapp/internal/todo"
)

const (
	ExportFileName  = "todo-app-data.json"
	ExportMediaType = "application/json"
)

var (
	// ErrParse is returned for import payloads that are not valid JSON.
	ErrParse = errors.New("import data is not valid JSON")
	// ErrFormat is returned for import payloads with the wrong shape.
	ErrFormat = errors.New("invalid data format")
)

type exportDoc struct {
	Tasks      []todo.Task     `json:"tasks"`
	Categories []todo.Category `json:"categories"`
}

// SerializeForExport renders tasks and categories as an indented JSON document.
func SerializeForExport(tasks []todo.Task, categories []todo.Category) ([]byte, error) {
	doc := exportDoc{Tasks: tasks, Categories: categories}
	if doc.Tasks == nil {
		doc.Tasks = []todo.Task{}
	}
	if doc.Categories == nil {
		doc.Categories = []todo.Category{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// DeserializeImport parses an exported document. Both top-level arrays must be
// present, and every record needs an id plus a title (tasks) or name
// (categories).
func DeserializeImport(data []byte) (todo.Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return todo.Snapshot{}, fmt.Errorf("%w: top level is not an object", ErrFormat)
		}
		return todo.Snapshot{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	rawTasks, err := arrayField(top, "tasks")
	if err != nil {
		return todo.Snapshot{}, err
	}
	rawCats, err := arrayField(top, "categories")
	if err != nil {
		return todo.Snapshot{}, err
	}

	var snap todo.Snapshot
	if err := json.Unmarshal(rawTasks, &snap.Tasks); err != nil {
		return todo.Snapshot{}, fmt.Errorf("%w: tasks: %v", ErrFormat, err)
	}
	if err := json.Unmarshal(rawCats, &snap.Categories); err != nil {
		return todo.Snapshot{}, fmt.Errorf("%w: categories: %v", ErrFormat, err)
	}
	if snap.Tasks == nil {
		snap.Tasks = []todo.Task{}
	}
	if snap.Categories == nil {
		snap.Categories = []todo.Category{}
	}
	if err := validateSnapshot(snap); err != nil {
		return todo.Snapshot{}, err
	}
	return snap, nil
}

func arrayField(top map[string]json.RawMessage, name string) (json.RawMessage, error) {
	raw, ok := top[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrFormat, name)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return nil, fmt.Errorf("%w: %q is not an array", ErrFormat, name)
	}
	return raw, nil
}

func validateSnapshot(snap todo.Snapshot) error {
	seen := make(map[string]struct{}, len(snap.Tasks))
	for i, t := range snap.Tasks {
		if t.ID == "" {
			return fmt.Errorf("%w: task %d has no id", ErrFormat, i)
		}
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("%w: task %s has no title", ErrFormat, t.ID)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: duplicate task id %s", ErrFormat, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	for i, c := range snap.Categories {
		if c.ID == "" {
			return fmt.Errorf("%w: category %d has no id", ErrFormat, i)
		}
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: category %s has no name", ErrFormat, c.ID)
		}
	}
	return nil
}
