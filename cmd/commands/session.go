package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"todoapp/internal/app"
	"todoapp/internal/config"
	"todoapp/internal/identity"
	"todoapp/internal/storage"
	"todoapp/internal/todo"
)

// session bundles what a single command invocation needs.
type session struct {
	cfg     config.Config
	db      *storage.Store
	app     *app.App
	logFile *os.File
}

type sessionAction func(ctx context.Context, cmd *cli.Command, s *session) error

// withSession opens a session around fn. Logs go to stderr.
func withSession(fn sessionAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		s, err := openSession(ctx, cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(ctx, cmd, s)
	}
}

// loggedIn is withSession for commands that operate on a principal's data.
func loggedIn(fn sessionAction) cli.ActionFunc {
	return withSession(func(ctx context.Context, cmd *cli.Command, s *session) error {
		if _, ok := s.app.Current(); !ok {
			return fmt.Errorf("%w: run `todo login` first", identity.ErrNotLoggedIn)
		}
		return fn(ctx, cmd, s)
	})
}

func openSession(ctx context.Context, cmd *cli.Command, logToFile bool) (*session, error) {
	configPath := cmd.String("config")
	if err := config.LoadDotenv(config.DotenvPath(configPath)); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	s := &session{cfg: cfg}

	log, err := s.newLogger(cmd.Bool("debug"), logToFile)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	s.db = db

	filters := todo.DefaultFilters()
	if st := todo.StatusFilter(cfg.DefaultStatus); st.Valid() {
		filters.Status = st
	} else {
		log.Warn("ignoring invalid default_status", "value", cfg.DefaultStatus)
	}

	s.app = app.New(app.Options{
		Authenticator: identity.Simulated{Latency: cfg.LatencyDuration()},
		Sessions:      db,
		Store:         storage.NewAdapter(db),
		Filters:       filters,
		Sort:          todo.SortOption(cfg.DefaultSort),
		Language:      cfg.LanguageTag(),
		Logger:        log,
	})
	if _, err := s.app.Restore(ctx); err != nil && !errors.Is(err, identity.ErrNotLoggedIn) {
		log.Warn("restore session failed", "error", err)
	}
	return s, nil
}

func (s *session) newLogger(debug, toFile bool) (*slog.Logger, error) {
	level := s.cfg.SlogLevel()
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if !toFile {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	}

	path := s.cfg.LogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	s.logFile = f
	return slog.New(slog.NewTextHandler(f, opts)), nil
}

func (s *session) Close() {
	if s.db != nil {
		s.db.Close()
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// resolveTask finds a task by id or unique id prefix.
func resolveTask(repo *todo.Repository, ref string) (todo.Task, error) {
	if ref == "" {
		return todo.Task{}, errors.New("missing task id")
	}
	if t, ok := repo.Task(ref); ok {
		return t, nil
	}
	var found []todo.Task
	for _, t := range repo.Tasks() {
		if strings.HasPrefix(t.ID, ref) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return todo.Task{}, fmt.Errorf("no task matches %q", ref)
	case 1:
		return found[0], nil
	default:
		return todo.Task{}, fmt.Errorf("%q is ambiguous (%d tasks)", ref, len(found))
	}
}

// resolveCategory finds a category by id or case-insensitive name.
func resolveCategory(repo *todo.Repository, ref string) (todo.Category, error) {
	if c, ok := repo.Category(ref); ok {
		return c, nil
	}
	for _, c := range repo.Categories() {
		if strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return todo.Category{}, fmt.Errorf("unknown category %q", ref)
}

func parseDue(v string) (*time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(v), time.Local)
	if err != nil {
		return nil, fmt.Errorf("due date %q: want YYYY-MM-DD", v)
	}
	return &t, nil
}

func parsePriority(v string) (todo.Priority, error) {
	p, ok := todo.ParsePriority(v)
	if !ok {
		return "", fmt.Errorf("priority %q: want high, medium or low", v)
	}
	return p, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
