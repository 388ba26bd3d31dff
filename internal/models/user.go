package models

import "time"

// User represents a user account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Goal is the savings target of a user. There is at most one per user.
type Goal struct {
	ID     string
	UserID string
	Amount float64
}

// Limit is the spending cap of a user. There is at most one per user.
type Limit struct {
	ID     string
	UserID string
	Amount float64
}

// Session represents a user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
