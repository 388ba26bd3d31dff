// Package service holds the business rules of the API: registration and
// login, owner-scoped transactions, the goal and limit of a user and the
// profile.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trackify/internal/auth"
	"trackify/internal/models"
	"trackify/internal/session"
	"trackify/internal/storage"
)

// UserStore is the part of storage.Store the auth and profile services use.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
}

// Auth registers users, logs them in and out and resolves sessions.
type Auth struct {
	users    UserStore
	sessions *session.Manager
}

// NewAuth returns an Auth service.
func NewAuth(users UserStore, sessions *session.Manager) *Auth {
	return &Auth{users: users, sessions: sessions}
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Name     string
	Phone    string
	Password string
}

// Register creates a user and starts a session for it.
func (a *Auth) Register(ctx context.Context, in RegisterInput) (models.Session, error) {
	phone := strings.TrimSpace(in.Phone)
	if phone == "" || in.Password == "" {
		return models.Session{}, validationError(MsgMissingFields)
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return models.Session{}, validationError(auth.PolicyMessage(err))
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.Session{}, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{Name: strings.TrimSpace(in.Name), Phone: phone, PasswordHash: hash}
	if err := a.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return models.Session{}, conflictError(MsgPhoneTaken)
		}
		return models.Session{}, err
	}

	return a.sessions.Start(ctx, u.ID)
}

// Login verifies credentials and starts a session. Unknown phones and wrong
// passwords fail with the same error.
func (a *Auth) Login(ctx context.Context, phone, password string) (models.Session, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return models.Session{}, validationError(MsgMissingFields)
	}

	u, err := a.users.GetUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Session{}, authError(MsgInvalidCredentials)
		}
		return models.Session{}, err
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return models.Session{}, authError(MsgInvalidCredentials)
	}

	return a.sessions.Start(ctx, u.ID)
}

// Logout ends the session for token, if any.
func (a *Auth) Logout(ctx context.Context, token string) error {
	return a.sessions.End(ctx, token)
}

// SessionUserID resolves token to the user id it was issued for without
// loading the user. It fails with ErrAuth when the session is missing or
// expired.
func (a *Auth) SessionUserID(ctx context.Context, token string) (string, error) {
	s, err := a.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return "", authError(MsgNotAuthenticated)
		}
		return "", err
	}
	return s.UserID, nil
}

// Authenticate resolves token to its user. It fails with ErrAuth when the
// session is missing or expired, or when its user no longer exists.
func (a *Auth) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := a.SessionUserID(ctx, token)
	if err != nil {
		return nil, err
	}
	u, err := a.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, authError(MsgNotAuthenticated)
		}
		return nil, err
	}
	return u, nil
}
