// Package app is the entry point used by the presentation layer. It replaces
// ambient global state with one explicit object per running session.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/language"

	"todoapp/internal/identity"
	"todoapp/internal/storage"
	"todoapp/internal/todo"
)

var ErrUnknownSort = errors.New("unknown sort option")

type Options struct {
	Authenticator identity.Authenticator
	Sessions      identity.Sessions
	Store         todo.Store
	Filters       todo.Filters
	Sort          todo.SortOption
	Language      language.Tag
	Now           func() time.Time
	Logger        *slog.Logger
	RepoOptions   []todo.Option
}

type App struct {
	auth     identity.Authenticator
	identity *identity.Store
	repo     *todo.Repository
	lang     language.Tag
	now      func() time.Time
	log      *slog.Logger

	mu      sync.RWMutex
	filters todo.Filters
	sortBy  todo.SortOption
	loading bool
}

func New(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	auth := opts.Authenticator
	if auth == nil {
		auth = identity.Simulated{}
	}
	filters := opts.Filters
	if filters == (todo.Filters{}) {
		filters = todo.DefaultFilters()
	}
	sortBy := opts.Sort
	if !sortBy.Valid() {
		sortBy = todo.SortDueDate
	}
	lang := opts.Language
	if lang == language.Und {
		lang = language.English
	}
	repoOpts := append([]todo.Option{todo.WithClock(now), todo.WithLogger(log)}, opts.RepoOptions...)

	return &App{
		auth:     auth,
		identity: identity.NewStore(opts.Sessions, log),
		repo:     todo.NewRepository(opts.Store, repoOpts...),
		lang:     lang,
		now:      now,
		log:      log,
		filters:  filters,
		sortBy:   sortBy,
	}
}

func (a *App) Repo() *todo.Repository { return a.repo }

func (a *App) Current() (identity.Principal, bool) { return a.identity.Current() }

// Loading reports whether a principal switch is still loading data.
func (a *App) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading
}

// Restore resumes the persisted session, if any, and loads its data.
func (a *App) Restore(ctx context.Context) (identity.Principal, error) {
	a.setLoading(true)
	defer a.setLoading(false)

	p, err := a.identity.Restore(ctx)
	if err != nil {
		return identity.Principal{}, err
	}
	if err := a.switchTo(ctx, p); err != nil {
		a.identity.Clear(ctx)
		return identity.Principal{}, err
	}
	return p, nil
}

func (a *App) Login(ctx context.Context, email, password string) (identity.Principal, error) {
	a.setLoading(true)
	defer a.setLoading(false)

	p, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return identity.Principal{}, fmt.Errorf("login: %w", err)
	}
	if err := a.switchTo(ctx, p); err != nil {
		return identity.Principal{}, err
	}
	a.log.Info("logged in", "principal", p.ID)
	return p, nil
}

func (a *App) Register(ctx context.Context, name, email, password string) (identity.Principal, error) {
	a.setLoading(true)
	defer a.setLoading(false)

	p, err := a.auth.Register(ctx, name, email, password)
	if err != nil {
		return identity.Principal{}, fmt.Errorf("register: %w", err)
	}
	if err := a.switchTo(ctx, p); err != nil {
		return identity.Principal{}, err
	}
	a.log.Info("registered", "principal", p.ID)
	return p, nil
}

// Logout clears the principal and its in-memory data.
func (a *App) Logout(ctx context.Context) error {
	a.identity.Clear(ctx)
	a.log.Info("logged out")
	return a.repo.Reload(ctx, "")
}

// switchTo loads p's data and only then makes p current, so a failed load
// leaves the previous principal and dataset in place.
func (a *App) switchTo(ctx context.Context, p identity.Principal) error {
	if err := a.repo.Reload(ctx, p.ID); err != nil {
		return err
	}
	a.identity.Set(ctx, p)
	return nil
}

func (a *App) setLoading(v bool) {
	a.mu.Lock()
	a.loading = v
	a.mu.Unlock()
}

func (a *App) Filters() todo.Filters {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.filters
}

func (a *App) UpdateFilters(patch todo.FilterPatch) todo.Filters {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filters = a.filters.Merge(patch)
	return a.filters
}

func (a *App) ClearFilters() {
	a.mu.Lock()
	a.filters = todo.DefaultFilters()
	a.mu.Unlock()
}

func (a *App) Sort() todo.SortOption {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sortBy
}

func (a *App) SetSort(opt todo.SortOption) error {
	if !opt.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSort, opt)
	}
	a.mu.Lock()
	a.sortBy = opt
	a.mu.Unlock()
	return nil
}

// View recomputes the filtered, sorted task list from the latest snapshot.
func (a *App) View() []todo.Task {
	snap := a.repo.Snapshot()
	return todo.View(snap.Tasks, a.Filters(), a.Sort(), snap.Categories,
		todo.WithNow(a.now()), todo.WithLanguage(a.lang))
}

// SelectAllVisible selects exactly the tasks of the current view.
func (a *App) SelectAllVisible() int {
	view := a.View()
	ids := make([]string, len(view))
	for i, t := range view {
		ids[i] = t.ID
	}
	a.repo.SelectAll(ids)
	return len(ids)
}

func (a *App) BatchCompleteSelected(ctx context.Context, completed bool) (int, error) {
	ids := a.repo.Selected()
	return len(ids), a.repo.BatchCompleteTasks(ctx, ids, completed)
}

func (a *App) BatchDeleteSelected(ctx context.Context) (int, error) {
	ids := a.repo.Selected()
	return len(ids), a.repo.BatchDeleteTasks(ctx, ids)
}

func (a *App) Stats() todo.Stats {
	return todo.ComputeStats(a.repo.Tasks(), a.now())
}

// Export writes the current dataset as an export document.
func (a *App) Export(w io.Writer) error {
	snap := a.repo.Snapshot()
	data, err := storage.SerializeForExport(snap.Tasks, snap.Categories)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Import replaces the dataset with data. Invalid documents leave the current
// state untouched.
func (a *App) Import(ctx context.Context, data []byte) (todo.Snapshot, error) {
	snap, err := storage.DeserializeImport(data)
	if err != nil {
		a.log.Warn("import rejected", "error", err)
		return todo.Snapshot{}, fmt.Errorf("import: %w", err)
	}
	if err := a.repo.Replace(ctx, snap); err != nil {
		return snap, err
	}
	a.log.Info("imported", "tasks", len(snap.Tasks), "categories", len(snap.Categories))
	return snap, nil
}
