package service

import (
	"context"
	"errors"

	"trackify/internal/models"
	"trackify/internal/storage"
)

// BudgetStore is the part of storage.Store the Budget service uses.
type BudgetStore interface {
	GetGoal(ctx context.Context, userID string) (*models.Goal, error)
	UpsertGoal(ctx context.Context, userID string, amount float64) (*models.Goal, error)
	GetLimit(ctx context.Context, userID string) (*models.Limit, error)
	UpsertLimit(ctx context.Context, userID string, amount float64) (*models.Limit, error)
}

// Budget reads and writes the single goal and single limit of a user.
type Budget struct {
	store BudgetStore
}

// NewBudget returns a Budget service.
func NewBudget(store BudgetStore) *Budget {
	return &Budget{store: store}
}

// Goal returns the savings goal of userID, or nil when none is set.
func (s *Budget) Goal(ctx context.Context, userID string) (*float64, error) {
	g, err := s.store.GetGoal(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &g.Amount, nil
}

// SetGoal upserts the savings goal of userID and returns the stored amount.
func (s *Budget) SetGoal(ctx context.Context, userID string, amount *float64) (float64, error) {
	v, err := validateAmount(amount, "Goal")
	if err != nil {
		return 0, err
	}
	g, err := s.store.UpsertGoal(ctx, userID, v)
	if err != nil {
		return 0, err
	}
	return g.Amount, nil
}

// Limit returns the spending limit of userID, or nil when none is set.
func (s *Budget) Limit(ctx context.Context, userID string) (*float64, error) {
	l, err := s.store.GetLimit(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &l.Amount, nil
}

// SetLimit upserts the spending limit of userID and returns the stored amount.
func (s *Budget) SetLimit(ctx context.Context, userID string, amount *float64) (float64, error) {
	v, err := validateAmount(amount, "Limit")
	if err != nil {
		return 0, err
	}
	l, err := s.store.UpsertLimit(ctx, userID, v)
	if err != nil {
		return 0, err
	}
	return l.Amount, nil
}
