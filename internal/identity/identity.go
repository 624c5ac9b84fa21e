// Package identity tracks the signed-in principal. Authentication is
// pluggable through Authenticator; Simulated accepts any non-empty input.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionKey = "user"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotLoggedIn        = errors.New("not logged in")
)

type Principal struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (Principal, error)
	Register(ctx context.Context, name, email, password string) (Principal, error)
}

// principalNamespace scopes the name-based UUIDs of simulated principals.
var principalNamespace = uuid.MustParse("6f1c3b52-8d0e-4f43-9a57-1d2f3c4b5a69")

const demoAvatar = "https://avatars.githubusercontent.com/u/1?v=4"

// Simulated is an Authenticator without credential checks. The same email
// always yields the same principal id.
type Simulated struct {
	Latency time.Duration
}

func (s Simulated) Login(ctx context.Context, email, password string) (Principal, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Principal{}, ErrInvalidCredentials
	}
	if err := s.wait(ctx); err != nil {
		return Principal{}, err
	}
	name, _, _ := strings.Cut(email, "@")
	return s.principal(name, email), nil
}

func (s Simulated) Register(ctx context.Context, name, email, password string) (Principal, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return Principal{}, ErrInvalidCredentials
	}
	if err := s.wait(ctx); err != nil {
		return Principal{}, err
	}
	return s.principal(name, email), nil
}

func (s Simulated) principal(name, email string) Principal {
	return Principal{
		ID:     "user-" + uuid.NewSHA1(principalNamespace, []byte(email)).String(),
		Name:   name,
		Email:  email,
		Avatar: demoAvatar,
	}
}

func (s Simulated) wait(ctx context.Context) error {
	if s.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Sessions persists the current principal between runs.
type Sessions interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store holds the current principal.
type Store struct {
	mu       sync.RWMutex
	sessions Sessions
	current  *Principal
	log      *slog.Logger
}

func NewStore(sessions Sessions, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{sessions: sessions, log: log}
}

func (s *Store) Current() (Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Principal{}, false
	}
	return *s.current, true
}

// Set makes p the current principal. A failure to persist the session is
// logged; the principal is still set.
func (s *Store) Set(ctx context.Context, p Principal) {
	s.mu.Lock()
	s.current = &p
	s.mu.Unlock()

	if s.sessions == nil {
		return
	}
	data, err := json.Marshal(p)
	if err == nil {
		err = s.sessions.Put(ctx, sessionKey, string(data))
	}
	if err != nil {
		s.log.Warn("persist session failed", "principal", p.ID, "error", err)
	}
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if s.sessions == nil {
		return
	}
	if err := s.sessions.Delete(ctx, sessionKey); err != nil {
		s.log.Warn("clear session failed", "error", err)
	}
}

// Restore loads the persisted session, if any. It returns ErrNotLoggedIn when
// there is none.
func (s *Store) Restore(ctx context.Context) (Principal, error) {
	if s.sessions == nil {
		return Principal{}, ErrNotLoggedIn
	}
	raw, ok, err := s.sessions.Get(ctx, sessionKey)
	if err != nil {
		return Principal{}, fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return Principal{}, ErrNotLoggedIn
	}
	var p Principal
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.ID == "" {
		s.log.Warn("discarding unreadable session", "error", err)
		return Principal{}, ErrNotLoggedIn
	}
	s.mu.Lock()
	s.current = &p
	s.mu.Unlock()
	return p, nil
}
