package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"trackify/internal/models"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB is the SQLite implementation of Store and session.Store.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

var _ Store = (*DB)(nil)

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn, now: time.Now}, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser inserts u and fills in its ID and CreatedAt.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	id := uuid.NewString()
	createdAt := db.now().UTC()
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (id, name, phone, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		id, u.Name, u.Phone, u.PasswordHash, createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user: %w", ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	u.ID = id
	u.CreatedAt = createdAt
	return nil
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, name, phone, password_hash, created_at FROM users WHERE "+where, arg)

	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Phone, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by id.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := db.getUser(ctx, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetUserByPhone retrieves a user by phone number.
func (db *DB) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	u, err := db.getUser(ctx, "phone = ?", phone)
	if err != nil {
		return nil, fmt.Errorf("get user by phone: %w", err)
	}
	return u, nil
}

// UpdateUser stores name, phone and password hash of u.
func (db *DB) UpdateUser(ctx context.Context, u *models.User) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE users SET name = ?, phone = ?, password_hash = ? WHERE id = ?",
		u.Name, u.Phone, u.PasswordHash, u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user: %w", ErrDuplicate)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update user: %w", ErrNotFound)
	}
	return nil
}

// UserCount returns the number of registered users.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

const expenseColumns = "id, user_id, amount, category, description, type, date"

func scanExpense(row interface{ Scan(...any) error }) (models.Expense, error) {
	var e models.Expense
	var typ string
	err := row.Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &e.Description, &typ, &e.Date)
	e.Type = models.TransactionType(typ)
	return e, err
}

// CreateExpense inserts e and fills in its ID. A missing date defaults to today.
func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	if e.Date == "" {
		e.Date = models.Today(db.now())
	}
	if e.Type == "" {
		e.Type = models.TypeExpense
	}
	id := uuid.NewString()
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, e.UserID, e.Amount, e.Category, e.Description, string(e.Type), e.Date,
	)
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	e.ID = id
	return nil
}

// ListExpenses returns every expense owned by userID in insertion order.
func (db *DB) ListExpenses(ctx context.Context, userID string) ([]models.Expense, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? ORDER BY rowid", userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("list expenses: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// GetExpense retrieves a single expense by id and owner.
func (db *DB) GetExpense(ctx context.Context, id, userID string) (*models.Expense, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ? AND user_id = ?", id, userID)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get expense: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return &e, nil
}

// UpdateExpense replaces the mutable fields of an owned expense.
func (db *DB) UpdateExpense(ctx context.Context, id, userID string, f models.ExpenseFields) (*models.Expense, error) {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE expenses SET amount = ?, category = ?, description = ?, type = ? WHERE id = ? AND user_id = ?",
		f.Amount, f.Category, f.Description, string(f.Type), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update expense: %w", ErrNotFound)
	}
	return db.GetExpense(ctx, id, userID)
}

// DeleteExpense removes an owned expense. Deleting a missing or foreign
// expense is not an error.
func (db *DB) DeleteExpense(ctx context.Context, id, userID string) error {
	if _, err := db.conn.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// getAmount and upsertAmount serve the goals and limits tables, which share
// a shape. table is always a constant.
func (db *DB) getAmount(ctx context.Context, table, userID string) (id string, amount float64, err error) {
	err = db.conn.QueryRowContext(ctx,
		"SELECT id, amount FROM "+table+" WHERE user_id = ?", userID).Scan(&id, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	return id, amount, err
}

func (db *DB) upsertAmount(ctx context.Context, table, userID string, amount float64) (id string, stored float64, err error) {
	err = db.conn.QueryRowContext(ctx,
		"INSERT INTO "+table+" (id, user_id, amount) VALUES (?, ?, ?) "+
			"ON CONFLICT(user_id) DO UPDATE SET amount = excluded.amount "+
			"RETURNING id, amount",
		uuid.NewString(), userID, amount,
	).Scan(&id, &stored)
	return id, stored, err
}

// GetGoal returns the goal of userID or ErrNotFound.
func (db *DB) GetGoal(ctx context.Context, userID string) (*models.Goal, error) {
	id, amount, err := db.getAmount(ctx, "goals", userID)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return &models.Goal{ID: id, UserID: userID, Amount: amount}, nil
}

// UpsertGoal creates or overwrites the goal of userID.
func (db *DB) UpsertGoal(ctx context.Context, userID string, amount float64) (*models.Goal, error) {
	id, stored, err := db.upsertAmount(ctx, "goals", userID, amount)
	if err != nil {
		return nil, fmt.Errorf("upsert goal: %w", err)
	}
	return &models.Goal{ID: id, UserID: userID, Amount: stored}, nil
}

// GetLimit returns the limit of userID or ErrNotFound.
func (db *DB) GetLimit(ctx context.Context, userID string) (*models.Limit, error) {
	id, amount, err := db.getAmount(ctx, "limits", userID)
	if err != nil {
		return nil, fmt.Errorf("get limit: %w", err)
	}
	return &models.Limit{ID: id, UserID: userID, Amount: amount}, nil
}

// UpsertLimit creates or overwrites the limit of userID.
func (db *DB) UpsertLimit(ctx context.Context, userID string, amount float64) (*models.Limit, error) {
	id, stored, err := db.upsertAmount(ctx, "limits", userID, amount)
	if err != nil {
		return nil, fmt.Errorf("upsert limit: %w", err)
	}
	return &models.Limit{ID: id, UserID: userID, Amount: stored}, nil
}
