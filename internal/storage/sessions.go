package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trackify/internal/models"
	"trackify/internal/session"
)

var _ session.Store = (*DB)(nil)

// Save inserts or replaces a session.
func (db *DB) Save(ctx context.Context, s models.Session) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		s.Token, s.UserID, s.CreatedAt.UnixMilli(), s.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Find returns the session for token, expired or not.
func (db *DB) Find(ctx context.Context, token string) (*models.Session, error) {
	var s models.Session
	var createdAt, expiresAt int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?", token,
	).Scan(&s.Token, &s.UserID, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	s.CreatedAt = time.UnixMilli(createdAt)
	s.ExpiresAt = time.UnixMilli(expiresAt)
	return &s, nil
}

// Delete removes a session by token.
func (db *DB) Delete(ctx context.Context, token string) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes all sessions that expired at or before now.
func (db *DB) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
