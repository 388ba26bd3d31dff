package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"trackify/internal/auth"
	"trackify/internal/models"
	"trackify/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite provides a test suite for database operations
type DBTestSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) createUser(phone string) *models.User {
	hash, err := auth.HashPassword("abc123")
	require.NoError(suite.T(), err)
	u := &models.User{Phone: phone, PasswordHash: hash}
	require.NoError(suite.T(), suite.db.CreateUser(suite.ctx, u))
	return u
}

func (suite *DBTestSuite) TestCreateUser() {
	u := suite.createUser("5550001")
	assert.NotEmpty(suite.T(), u.ID)
	assert.False(suite.T(), u.CreatedAt.IsZero())

	got, err := suite.db.GetUserByPhone(suite.ctx, "5550001")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), u.ID, got.ID)
	assert.Equal(suite.T(), "", got.Name)
	assert.True(suite.T(), auth.CheckPassword("abc123", got.PasswordHash))

	count, err := suite.db.UserCount(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *DBTestSuite) TestCreateUserDuplicatePhone() {
	suite.createUser("5550001")

	err := suite.db.CreateUser(suite.ctx, &models.User{Phone: "5550001", PasswordHash: "x"})
	assert.ErrorIs(suite.T(), err, ErrDuplicate)
}

func (suite *DBTestSuite) TestGetUserNotFound() {
	_, err := suite.db.GetUserByPhone(suite.ctx, "missing")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.db.GetUserByID(suite.ctx, "missing")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestUpdateUser() {
	u := suite.createUser("5550001")
	u.Name = "Alice"
	u.Phone = "5550002"
	require.NoError(suite.T(), suite.db.UpdateUser(suite.ctx, u))

	got, err := suite.db.GetUserByID(suite.ctx, u.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Alice", got.Name)
	assert.Equal(suite.T(), "5550002", got.Phone)
}

func (suite *DBTestSuite) TestUpdateUserPhoneTaken() {
	suite.createUser("5550001")
	u := suite.createUser("5550002")

	u.Phone = "5550001"
	assert.ErrorIs(suite.T(), suite.db.UpdateUser(suite.ctx, u), ErrDuplicate)
}

func (suite *DBTestSuite) TestUpdateMissingUser() {
	err := suite.db.UpdateUser(suite.ctx, &models.User{ID: "gone", Phone: "1"})
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestCreateExpenseDefaults() {
	u := suite.createUser("5550001")
	suite.db.now = func() time.Time { return time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC) }

	e := &models.Expense{UserID: u.ID, Amount: 100, Category: "food"}
	require.NoError(suite.T(), suite.db.CreateExpense(suite.ctx, e))
	assert.NotEmpty(suite.T(), e.ID)
	assert.Equal(suite.T(), "2024-05-17", e.Date)
	assert.Equal(suite.T(), models.TypeExpense, e.Type)

	got, err := suite.db.GetExpense(suite.ctx, e.ID, u.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), *e, *got)
}

func (suite *DBTestSuite) TestListExpensesInsertionOrder() {
	u := suite.createUser("5550001")
	other := suite.createUser("5550002")

	for _, amount := range []float64{20, 5, 15} {
		require.NoError(suite.T(), suite.db.CreateExpense(suite.ctx,
			&models.Expense{UserID: u.ID, Amount: amount, Type: models.TypeExpense, Date: "2024-01-01"}))
	}
	require.NoError(suite.T(), suite.db.CreateExpense(suite.ctx,
		&models.Expense{UserID: other.ID, Amount: 999, Date: "2024-01-01"}))

	result, err := suite.db.ListExpenses(suite.ctx, u.ID)
	require.NoError(suite.T(), err)
	if assert.Len(suite.T(), result, 3) {
		assert.Equal(suite.T(), 20.0, result[0].Amount)
		assert.Equal(suite.T(), 5.0, result[1].Amount)
		assert.Equal(suite.T(), 15.0, result[2].Amount)
	}
}

func (suite *DBTestSuite) TestListExpensesEmptyIsNotNil() {
	u := suite.createUser("5550001")
	result, err := suite.db.ListExpenses(suite.ctx, u.ID)
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), result)
	assert.Empty(suite.T(), result)
}

func (suite *DBTestSuite) TestExpenseOwnershipIsolation() {
	owner := suite.createUser("5550001")
	intruder := suite.createUser("5550002")

	e := &models.Expense{UserID: owner.ID, Amount: 42, Category: "food", Date: "2024-01-01"}
	require.NoError(suite.T(), suite.db.CreateExpense(suite.ctx, e))

	_, err := suite.db.GetExpense(suite.ctx, e.ID, intruder.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.db.UpdateExpense(suite.ctx, e.ID, intruder.ID, models.ExpenseFields{Amount: 1, Type: models.TypeIncome})
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	require.NoError(suite.T(), suite.db.DeleteExpense(suite.ctx, e.ID, intruder.ID))

	got, err := suite.db.GetExpense(suite.ctx, e.ID, owner.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 42.0, got.Amount)
}

func (suite *DBTestSuite) TestUpdateExpense() {
	u := suite.createUser("5550001")
	e := &models.Expense{UserID: u.ID, Amount: 10, Category: "food", Date: "2024-02-03"}
	require.NoError(suite.T(), suite.db.CreateExpense(suite.ctx, e))

	got, err := suite.db.UpdateExpense(suite.ctx, e.ID, u.ID, models.ExpenseFields{
		Amount: 2500, Category: "salary", Description: "February", Type: models.TypeIncome,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2500.0, got.Amount)
	assert.Equal(suite.T(), "salary", got.Category)
	assert.Equal(suite.T(), "February", got.Description)
	assert.Equal(suite.T(), models.TypeIncome, got.Type)
	assert.Equal(suite.T(), "2024-02-03", got.Date, "date is not part of an update")
}

func (suite *DBTestSuite) TestDeleteExpense() {
	u := suite.createUser("5550001")
	e := &models.Expense{UserID: u.ID, Amount: 10, Date: "2024-02-03"}
	require.NoError(suite.T(), suite.db.CreateExpense(suite.ctx, e))

	require.NoError(suite.T(), suite.db.DeleteExpense(suite.ctx, e.ID, u.ID))
	require.NoError(suite.T(), suite.db.DeleteExpense(suite.ctx, e.ID, u.ID), "second delete is a no-op")

	_, err := suite.db.GetExpense(suite.ctx, e.ID, u.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestGoalUpsertOverwrites() {
	u := suite.createUser("5550001")

	_, err := suite.db.GetGoal(suite.ctx, u.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	first, err := suite.db.UpsertGoal(suite.ctx, u.ID, 1000)
	require.NoError(suite.T(), err)
	second, err := suite.db.UpsertGoal(suite.ctx, u.ID, 1500)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), first.ID, second.ID, "upsert must not create a second goal")
	assert.Equal(suite.T(), 1500.0, second.Amount)

	var rows int
	require.NoError(suite.T(), suite.db.conn.QueryRow("SELECT COUNT(*) FROM goals WHERE user_id = ?", u.ID).Scan(&rows))
	assert.Equal(suite.T(), 1, rows)

	got, err := suite.db.GetGoal(suite.ctx, u.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1500.0, got.Amount)
}

func (suite *DBTestSuite) TestLimitsAreIndependentPerUser() {
	a := suite.createUser("5550001")
	b := suite.createUser("5550002")

	_, err := suite.db.UpsertLimit(suite.ctx, a.ID, 300)
	require.NoError(suite.T(), err)

	_, err = suite.db.GetLimit(suite.ctx, b.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	got, err := suite.db.GetLimit(suite.ctx, a.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 300.0, got.Amount)
}

func TestDBTestSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

// SessionTestSuite covers the session.Store implementation of DB.
type SessionTestSuite struct {
	suite.Suite
	db  *DB
	ctx context.Context
}

func (suite *SessionTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()
}

func (suite *SessionTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *SessionTestSuite) TestSaveAndFind() {
	now := time.Now().Truncate(time.Millisecond)
	s := models.Session{Token: "tok", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(suite.T(), suite.db.Save(suite.ctx, s))

	got, err := suite.db.Find(suite.ctx, "tok")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "u1", got.UserID)
	assert.True(suite.T(), s.ExpiresAt.Equal(got.ExpiresAt))
}

func (suite *SessionTestSuite) TestFindMissing() {
	_, err := suite.db.Find(suite.ctx, "missing")
	assert.ErrorIs(suite.T(), err, session.ErrNotFound)
}

func (suite *SessionTestSuite) TestDeleteExpired() {
	now := time.Now()
	require.NoError(suite.T(), suite.db.Save(suite.ctx, models.Session{Token: "old", UserID: "u1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(suite.T(), suite.db.Save(suite.ctx, models.Session{Token: "new", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	n, err := suite.db.DeleteExpired(suite.ctx, now)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), n)

	_, err = suite.db.Find(suite.ctx, "old")
	assert.ErrorIs(suite.T(), err, session.ErrNotFound)
	_, err = suite.db.Find(suite.ctx, "new")
	assert.NoError(suite.T(), err)
}

func (suite *SessionTestSuite) TestManagerOverDB() {
	m := session.NewManager(suite.db)
	s, err := m.Start(suite.ctx, "u1")
	require.NoError(suite.T(), err)

	got, err := m.Resolve(suite.ctx, s.Token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "u1", got.UserID)

	require.NoError(suite.T(), m.End(suite.ctx, s.Token))
	_, err = m.Resolve(suite.ctx, s.Token)
	assert.ErrorIs(suite.T(), err, session.ErrNoSession)
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func TestNewDBPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trackify.db")
	ctx := context.Background()

	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.CreateUser(ctx, &models.User{Phone: "5550001", PasswordHash: "x"}))
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err, "migrations must be re-runnable")
	defer db.Close()

	_, err = db.GetUserByPhone(ctx, "5550001")
	assert.NoError(t, err)
}
