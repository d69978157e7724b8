// Package session holds the signed-in user and bearer token for the portal
// client and persists them across process restarts.
//
// A Store is the only owner of session data. Sign-in, sign-out and every
// teardown path (embedded 401, idle timeout, expired token) go through the
// same locked transition so that a user is present exactly when a token is.
package session

import (
	"context"
	"sync"
	"time"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
	"github.com/marikmarie/mtnvas/internal/log"
)

// User is the authenticated actor as returned by the backend sign-in endpoint
type User struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	Category  string `json:"category,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// State is the persisted session snapshot
type State struct {
	User       *User     `json:"user"`
	Token      string    `json:"token"`
	LastActive time.Time `json:"last_active,omitempty"`
}

// Authenticated reports whether the snapshot holds a complete session
func (s State) Authenticated() bool {
	return s.User != nil && s.Token != ""
}

// Reason describes why a session ended
type Reason string

const (
	ReasonSignOut      Reason = "signed out"
	ReasonUnauthorized Reason = "unauthorized"
	ReasonIdle         Reason = "idle timeout"
	ReasonTokenExpired Reason = "token expired"
)

// DefaultIdleTimeout is the inactivity window after which a session ends
const DefaultIdleTimeout = 15 * time.Minute

// Store owns the current session
type Store struct {
	mu    sync.RWMutex
	state State

	persister   Persister
	idleTimeout time.Duration
	now         func() time.Time
	logger      *log.Logger
	onTeardown  func(Reason)

	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures a Store
type Option func(*Store)

// WithIdleTimeout sets the inactivity window used when rehydrating
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTeardownObserver registers fn to be called whenever an existing
// session is torn down, with the reason it ended.
func WithTeardownObserver(fn func(Reason)) Option {
	return func(s *Store) { s.onTeardown = fn }
}

// NewStore creates an empty store. Rehydration is pending until Rehydrate
// (or MarkReady) is called.
func NewStore(p Persister, opts ...Option) *Store {
	if p == nil {
		p = NewMemoryPersister()
	}
	s := &Store{
		persister:   p,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		logger:      log.DefaultLogger(),
		ready:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready is closed once rehydration has finished, successfully or not
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// MarkReady ends the pending phase without loading anything
func (s *Store) MarkReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Rehydrate restores the persisted session. The store becomes ready whatever
// the outcome. A persisted session that has been idle longer than the idle
// timeout, or whose token has expired, is discarded and reported with an
// error matching errors.ErrSessionExpired.
func (s *Store) Rehydrate(ctx context.Context) error {
	defer s.MarkReady()

	if err := ctx.Err(); err != nil {
		return perrors.Wrap(perrors.ErrCodeSessionNotReady, "rehydration cancelled", err)
	}

	loaded, err := s.persister.Load()
	if err != nil {
		s.logger.WithError(err).Warn("failed to restore session, continuing signed out")
		return perrors.Wrap(perrors.ErrCodeSessionRestore, "failed to restore session", err)
	}

	if !loaded.Authenticated() {
		if loaded.User != nil || loaded.Token != "" {
			s.logger.Warn("discarding incomplete persisted session")
			_ = s.persister.Clear()
		}
		return nil
	}

	now := s.now()
	reason := Reason("")
	switch {
	case !loaded.LastActive.IsZero() && now.Sub(loaded.LastActive) > s.idleTimeout:
		reason = ReasonIdle
	case TokenExpired(loaded.Token, now):
		reason = ReasonTokenExpired
	}

	if reason != "" {
		if err := s.persister.Clear(); err != nil {
			s.logger.WithError(err).Warn("failed to clear stale session")
		}
		s.logger.Info("persisted session discarded", "reason", string(reason))
		if s.onTeardown != nil {
			s.onTeardown(reason)
		}
		return perrors.NewSessionExpiredError(string(reason))
	}

	u := *loaded.User
	s.mu.Lock()
	s.state = State{User: &u, Token: loaded.Token, LastActive: loaded.LastActive}
	s.mu.Unlock()

	s.logger.Debug("session restored", "email", u.Email)
	return nil
}

// SignIn records a new session. It is the only way to set a user.
// The user and token are persisted together before they become visible.
func (s *Store) SignIn(user *User, token string) error {
	if user == nil {
		return perrors.New(perrors.ErrCodeSessionInvalid, "sign-in requires a user")
	}
	if token == "" {
		return perrors.New(perrors.ErrCodeSessionInvalid, "sign-in requires a token")
	}

	u := *user
	next := State{User: &u, Token: token, LastActive: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persister.Save(next); err != nil {
		return err
	}
	s.state = next
	s.MarkReady()

	s.logger.Info("signed in", "email", u.Email, "role", u.Role)
	return nil
}

// SignOut clears the session. Calling it with no session is a no-op and
// concurrent calls are safe.
func (s *Store) SignOut() error {
	return s.teardown(ReasonSignOut)
}

func (s *Store) teardown(reason Reason) error {
	s.mu.Lock()
	had := s.state.Authenticated()
	s.state = State{}
	err := s.persister.Clear()
	s.mu.Unlock()

	if had {
		s.logger.Info("session ended", "reason", string(reason))
		if s.onTeardown != nil {
			s.onTeardown(reason)
		}
	}
	if err != nil {
		s.logger.WithError(err).Warn("failed to remove persisted session")
		return err
	}
	return nil
}

// Token returns the current bearer token, or "" when signed out
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns a copy of the current user, or nil when signed out
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

// Snapshot returns a copy of the whole state
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Authenticated reports whether a user is signed in
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Authenticated()
}

// TokenForRequest waits for rehydration and returns the current token.
// If ctx ends first the request proceeds unauthenticated.
func (s *Store) TokenForRequest(ctx context.Context) (string, bool) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		s.logger.Warn("session not restored in time, sending request without credentials")
		return "", false
	}
	token := s.Token()
	return token, token != ""
}

// Touch records user activity. It is a no-op when signed out.
func (s *Store) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Authenticated() {
		return
	}
	s.state.LastActive = s.now()
	if err := s.persister.Save(s.state); err != nil {
		s.logger.WithError(err).Debug("failed to persist activity timestamp")
	}
}

// IdleTimeout returns the configured inactivity window
func (s *Store) IdleTimeout() time.Duration {
	return s.idleTimeout
}
