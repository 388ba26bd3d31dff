// Package session maps opaque cookie tokens to user ids.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trackify/internal/auth"
	"trackify/internal/models"
)

// DefaultTTL is the fixed lifetime of a session.
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrNotFound is returned by a Store when the token is unknown.
	ErrNotFound = errors.New("session not found")
	// ErrNoSession is returned by Resolve for unknown or expired tokens.
	ErrNoSession = errors.New("no valid session")
)

// Store persists sessions keyed by token.
type Store interface {
	Save(ctx context.Context, s models.Session) error
	Find(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Manager creates, resolves and ends sessions on top of a Store.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Manager backed by store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Start creates a session for userID.
func (m *Manager) Start(ctx context.Context, userID string) (models.Session, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return models.Session{}, fmt.Errorf("generate session token: %w", err)
	}
	now := m.now()
	s := models.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return models.Session{}, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

// Resolve returns the live session for token. Expired sessions are removed.
func (m *Manager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	s, err := m.store.Find(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	if s.Expired(m.now()) {
		if err := m.store.Delete(ctx, token); err != nil {
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		return nil, ErrNoSession
	}
	return s, nil
}

// End destroys the session for token. Unknown tokens are ignored.
func (m *Manager) End(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Sweep removes every expired session and reports how many were removed.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, m.now())
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int64, err error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if onSweep != nil {
				onSweep(n, err)
			}
		}
	}
}
