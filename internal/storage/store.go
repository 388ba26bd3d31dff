package storage

import (
	"context"
	"errors"

	"trackify/internal/models"
)

var (
	// ErrNotFound means no record matched the id and owner.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate means a uniqueness constraint rejected the write.
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the persistence capability behind the API. Every expense, goal
// and limit query is scoped to the owning user id.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error

	CreateExpense(ctx context.Context, e *models.Expense) error
	ListExpenses(ctx context.Context, userID string) ([]models.Expense, error)
	GetExpense(ctx context.Context, id, userID string) (*models.Expense, error)
	UpdateExpense(ctx context.Context, id, userID string, f models.ExpenseFields) (*models.Expense, error)
	DeleteExpense(ctx context.Context, id, userID string) error

	GetGoal(ctx context.Context, userID string) (*models.Goal, error)
	UpsertGoal(ctx context.Context, userID string, amount float64) (*models.Goal, error)
	GetLimit(ctx context.Context, userID string) (*models.Limit, error)
	UpsertLimit(ctx context.Context, userID string, amount float64) (*models.Limit, error)

	Ping(ctx context.Context) error
	Close() error
}
