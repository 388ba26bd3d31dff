package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"trackify/internal/models"
	"trackify/internal/storage"
)

// ExpenseStore is the part of storage.Store the Expenses service uses.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e *models.Expense) error
	ListExpenses(ctx context.Context, userID string) ([]models.Expense, error)
	GetExpense(ctx context.Context, id, userID string) (*models.Expense, error)
	UpdateExpense(ctx context.Context, id, userID string, f models.ExpenseFields) (*models.Expense, error)
	DeleteExpense(ctx context.Context, id, userID string) error
}

// Expenses is owner-scoped CRUD over transactions.
type Expenses struct {
	store ExpenseStore
}

// NewExpenses returns an Expenses service.
func NewExpenses(store ExpenseStore) *Expenses {
	return &Expenses{store: store}
}

// ExpenseInput is the body of a create or update request. Date is only
// honoured on create.
type ExpenseInput struct {
	Amount      *float64
	Category    string
	Description string
	Type        string
	Date        string
}

func validateAmount(amount *float64, field string) (float64, error) {
	if amount == nil {
		return 0, validationError(field + " is required")
	}
	v := *amount
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, validationError(field + " must be a non-negative number")
	}
	return v, nil
}

func (in ExpenseInput) fields() (models.ExpenseFields, error) {
	amount, err := validateAmount(in.Amount, "Amount")
	if err != nil {
		return models.ExpenseFields{}, err
	}
	typ, err := models.ParseTransactionType(in.Type)
	if err != nil {
		return models.ExpenseFields{}, validationError("Type must be income or expense")
	}
	return models.ExpenseFields{
		Amount:      amount,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Type:        typ,
	}, nil
}

// List returns every transaction of userID.
func (s *Expenses) List(ctx context.Context, userID string) ([]models.Expense, error) {
	return s.store.ListExpenses(ctx, userID)
}

// Create stores a new transaction owned by userID.
func (s *Expenses) Create(ctx context.Context, userID string, in ExpenseInput) (*models.Expense, error) {
	f, err := in.fields()
	if err != nil {
		return nil, err
	}
	if in.Date != "" {
		if _, err := time.Parse(models.DateLayout, in.Date); err != nil {
			return nil, validationError("Date must be YYYY-MM-DD")
		}
	}
	e := &models.Expense{
		UserID:      userID,
		Amount:      f.Amount,
		Category:    f.Category,
		Description: f.Description,
		Type:        f.Type,
		Date:        in.Date,
	}
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns one transaction owned by userID.
func (s *Expenses) Get(ctx context.Context, userID, id string) (*models.Expense, error) {
	e, err := s.store.GetExpense(ctx, id, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFoundError(MsgNotFound)
	}
	return e, err
}

// Update replaces amount, category, description and type of a transaction
// owned by userID.
func (s *Expenses) Update(ctx context.Context, userID, id string, in ExpenseInput) (*models.Expense, error) {
	f, err := in.fields()
	if err != nil {
		return nil, err
	}
	e, err := s.store.UpdateExpense(ctx, id, userID, f)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFoundError(MsgNotFound)
	}
	return e, err
}

// Delete removes a transaction owned by userID. It succeeds when there is
// nothing to delete.
func (s *Expenses) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteExpense(ctx, id, userID)
}
