package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"trackify/internal/models"
	"trackify/internal/session"
	"trackify/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StoreTestSuite runs against a live server named by MONGODB_TEST_URI. Each
// test gets its own database, dropped afterwards.
type StoreTestSuite struct {
	suite.Suite
	client *mongo.Client
	db     *mongo.Database
	store  *Store
	ctx    context.Context
}

func (suite *StoreTestSuite) SetupSuite() {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		suite.T().Skip("MONGODB_TEST_URI not set, skipping mongodb tests")
	}
	suite.ctx = context.Background()
	client, err := mongo.Connect(suite.ctx, options.Client().ApplyURI(uri))
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), client.Ping(suite.ctx, nil))
	suite.client = client
}

func (suite *StoreTestSuite) TearDownSuite() {
	if suite.client != nil {
		suite.client.Disconnect(context.Background())
	}
}

func (suite *StoreTestSuite) SetupTest() {
	suite.db = suite.client.Database(fmt.Sprintf("trackify_test_%d", time.Now().UnixNano()))
	suite.store = New(suite.client, suite.db)
	require.NoError(suite.T(), suite.store.ensureIndexes(suite.ctx))
}

func (suite *StoreTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Drop(context.Background())
	}
}

func (suite *StoreTestSuite) TestUserLifecycle() {
	u := &models.User{Phone: "5550001", PasswordHash: "hash"}
	require.NoError(suite.T(), suite.store.CreateUser(suite.ctx, u))
	assert.Len(suite.T(), u.ID, 24)

	err := suite.store.CreateUser(suite.ctx, &models.User{Phone: "5550001", PasswordHash: "hash"})
	assert.ErrorIs(suite.T(), err, storage.ErrDuplicate)

	u.Name = "Alice"
	require.NoError(suite.T(), suite.store.UpdateUser(suite.ctx, u))
	got, err := suite.store.GetUserByID(suite.ctx, u.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Alice", got.Name)

	_, err = suite.store.GetUserByID(suite.ctx, "not-an-object-id")
	assert.ErrorIs(suite.T(), err, storage.ErrNotFound)
}

func (suite *StoreTestSuite) TestExpenseOwnership() {
	e := &models.Expense{UserID: "owner", Amount: 100, Category: "food"}
	require.NoError(suite.T(), suite.store.CreateExpense(suite.ctx, e))
	assert.Equal(suite.T(), models.TypeExpense, e.Type)

	_, err := suite.store.GetExpense(suite.ctx, e.ID, "intruder")
	assert.ErrorIs(suite.T(), err, storage.ErrNotFound)
	_, err = suite.store.UpdateExpense(suite.ctx, e.ID, "intruder", models.ExpenseFields{Amount: 1, Type: models.TypeExpense})
	assert.ErrorIs(suite.T(), err, storage.ErrNotFound)
	require.NoError(suite.T(), suite.store.DeleteExpense(suite.ctx, e.ID, "intruder"))

	list, err := suite.store.ListExpenses(suite.ctx, "owner")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list, 1)
	assert.Equal(suite.T(), 100.0, list[0].Amount)

	updated, err := suite.store.UpdateExpense(suite.ctx, e.ID, "owner", models.ExpenseFields{Amount: 7, Category: "pay", Type: models.TypeIncome})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TypeIncome, updated.Type)

	require.NoError(suite.T(), suite.store.DeleteExpense(suite.ctx, e.ID, "owner"))
	list, err = suite.store.ListExpenses(suite.ctx, "owner")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), list)
}

func (suite *StoreTestSuite) TestGoalUpsert() {
	_, err := suite.store.GetGoal(suite.ctx, "u1")
	assert.ErrorIs(suite.T(), err, storage.ErrNotFound)

	first, err := suite.store.UpsertGoal(suite.ctx, "u1", 10)
	require.NoError(suite.T(), err)
	second, err := suite.store.UpsertGoal(suite.ctx, "u1", 20)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), first.ID, second.ID)
	assert.Equal(suite.T(), 20.0, second.Amount)

	n, err := suite.db.Collection("goals").CountDocuments(suite.ctx, map[string]any{"userId": "u1"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), n)
}

func (suite *StoreTestSuite) TestSessions() {
	now := time.Now().Truncate(time.Millisecond)
	require.NoError(suite.T(), suite.store.Save(suite.ctx, models.Session{Token: "t1", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	got, err := suite.store.Find(suite.ctx, "t1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "u1", got.UserID)

	n, err := suite.store.DeleteExpired(suite.ctx, now.Add(2*time.Hour))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), n)

	_, err = suite.store.Find(suite.ctx, "t1")
	assert.ErrorIs(suite.T(), err, session.ErrNotFound)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
