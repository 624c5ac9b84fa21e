package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "todo.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreGetPutDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get on missing key = ok %v, err %v", ok, err)
	}
	if err := s.Put(ctx, "user", `{"id":"u1"}`); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(ctx, "user", `{"id":"u2"}`); err != nil {
		t.Fatalf("Put overwrite failed: %v", err)
	}
	v, ok, err := s.Get(ctx, "user")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok %v, err %v", ok, err)
	}
	if v != `{"id":"u2"}` {
		t.Errorf("Expected overwritten value, got %s", v)
	}
	if err := s.Delete(ctx, "user"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "user"); ok {
		t.Error("Expected key to be gone after Delete")
	}
}

func TestStorePutMany(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.PutMany(ctx, map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("PutMany failed: %v", err)
	}
	for k, want := range map[string]string{"a": "1", "b": "2"} {
		got, ok, err := s.Get(ctx, k)
		if err != nil || !ok || got != want {
			t.Errorf("Get(%s) = %q, %v, %v; want %q", k, got, ok, err, want)
		}
	}
}

func TestStoreReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "todo.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Put(ctx, "k", "v"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	if v, ok, _ := s.Get(ctx, "k"); !ok || v != "v" {
		t.Errorf("Expected persisted value, got %q (ok=%v)", v, ok)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("Expected error for empty path")
	}
}

func TestSqliteDSN(t *testing.T) {
	if got := sqliteDSN("file:memdb?mode=memory"); got != "file:memdb?mode=memory" {
		t.Errorf("Expected file: DSN untouched, got %s", got)
	}
	got := sqliteDSN("/tmp/todo.db")
	if !strings.HasPrefix(got, "file:///tmp/todo.db?") || !strings.Contains(got, "mode=rwc") {
		t.Errorf("unexpected DSN %s", got)
	}
}
