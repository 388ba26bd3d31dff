package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trackify/internal/auth"
	"trackify/internal/models"
	"trackify/internal/storage"
)

// Profile reads and edits the caller's own account.
type Profile struct {
	users UserStore
}

// NewProfile returns a Profile service.
func NewProfile(users UserStore) *Profile {
	return &Profile{users: users}
}

// ProfileInput is the body of a profile update. An empty Password leaves the
// current password in place.
type ProfileInput struct {
	Name     string
	Phone    string
	Password string
}

// Get returns the user behind userID.
func (s *Profile) Get(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFoundError(MsgUserNotFound)
	}
	return u, err
}

// Update stores a new name and phone and, when given, a new password.
// Moving to a phone number owned by another user is a conflict.
func (s *Profile) Update(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return nil, validationError(MsgMissingFields)
	}
	var hash string
	if in.Password != "" {
		if err := auth.ValidatePassword(in.Password); err != nil {
			return nil, validationError(auth.PolicyMessage(err))
		}
		var err error
		if hash, err = auth.HashPassword(in.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Name = strings.TrimSpace(in.Name)
	u.Phone = phone
	if hash != "" {
		u.PasswordHash = hash
	}

	if err := s.users.UpdateUser(ctx, u); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			return nil, conflictError(MsgPhoneTaken)
		case errors.Is(err, storage.ErrNotFound):
			return nil, notFoundError(MsgUserNotFound)
		}
		return nil, err
	}
	return u, nil
}
