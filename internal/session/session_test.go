package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"trackify/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// ManagerTestSuite exercises Manager over a MemoryStore with a controlled clock.
type ManagerTestSuite struct {
	suite.Suite
	store   *MemoryStore
	clock   *fakeClock
	manager *Manager
	ctx     context.Context
}

func (suite *ManagerTestSuite) SetupTest() {
	suite.store = NewMemoryStore()
	suite.clock = &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	suite.manager = NewManager(suite.store, WithClock(suite.clock.Now))
	suite.ctx = context.Background()
}

func (suite *ManagerTestSuite) TestStartAndResolve() {
	s, err := suite.manager.Start(suite.ctx, "user-1")
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), s.Token)
	assert.Equal(suite.T(), suite.clock.Now().Add(DefaultTTL), s.ExpiresAt)

	got, err := suite.manager.Resolve(suite.ctx, s.Token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "user-1", got.UserID)
}

func (suite *ManagerTestSuite) TestTokensAreUnique() {
	a, err := suite.manager.Start(suite.ctx, "user-1")
	require.NoError(suite.T(), err)
	b, err := suite.manager.Start(suite.ctx, "user-1")
	require.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), a.Token, b.Token)
}

func (suite *ManagerTestSuite) TestResolveUnknownToken() {
	_, err := suite.manager.Resolve(suite.ctx, "nope")
	assert.ErrorIs(suite.T(), err, ErrNoSession)

	_, err = suite.manager.Resolve(suite.ctx, "")
	assert.ErrorIs(suite.T(), err, ErrNoSession)
}

func (suite *ManagerTestSuite) TestResolveExpiredSessionRemovesIt() {
	s, err := suite.manager.Start(suite.ctx, "user-1")
	require.NoError(suite.T(), err)

	suite.clock.Advance(DefaultTTL - time.Second)
	_, err = suite.manager.Resolve(suite.ctx, s.Token)
	require.NoError(suite.T(), err, "session should still be valid just before expiry")

	suite.clock.Advance(time.Second)
	_, err = suite.manager.Resolve(suite.ctx, s.Token)
	assert.ErrorIs(suite.T(), err, ErrNoSession)
	assert.Equal(suite.T(), 0, suite.store.Len())
}

func (suite *ManagerTestSuite) TestResolveDoesNotExtendExpiry() {
	s, err := suite.manager.Start(suite.ctx, "user-1")
	require.NoError(suite.T(), err)

	suite.clock.Advance(DefaultTTL / 2)
	got, err := suite.manager.Resolve(suite.ctx, s.Token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), s.ExpiresAt, got.ExpiresAt)
}

func (suite *ManagerTestSuite) TestEndIsIdempotent() {
	s, err := suite.manager.Start(suite.ctx, "user-1")
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.manager.End(suite.ctx, s.Token))
	require.NoError(suite.T(), suite.manager.End(suite.ctx, s.Token))
	require.NoError(suite.T(), suite.manager.End(suite.ctx, ""))

	_, err = suite.manager.Resolve(suite.ctx, s.Token)
	assert.ErrorIs(suite.T(), err, ErrNoSession)
}

func (suite *ManagerTestSuite) TestSweep() {
	_, err := suite.manager.Start(suite.ctx, "old")
	require.NoError(suite.T(), err)

	suite.clock.Advance(DefaultTTL / 2)
	fresh, err := suite.manager.Start(suite.ctx, "fresh")
	require.NoError(suite.T(), err)

	suite.clock.Advance(DefaultTTL / 2)
	n, err := suite.manager.Sweep(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), n)
	assert.Equal(suite.T(), 1, suite.store.Len())

	_, err = suite.manager.Resolve(suite.ctx, fresh.Token)
	assert.NoError(suite.T(), err)
}

func (suite *ManagerTestSuite) TestWithTTL() {
	m := NewManager(suite.store, WithClock(suite.clock.Now), WithTTL(time.Hour))
	s, err := m.Start(suite.ctx, "user-1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), time.Hour, m.TTL())
	assert.Equal(suite.T(), suite.clock.Now().Add(time.Hour), s.ExpiresAt)
}

func TestManagerTestSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}

type failingStore struct {
	*MemoryStore
}

func (failingStore) Find(context.Context, string) (*models.Session, error) {
	return nil, errors.New("connection reset")
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	m := NewManager(failingStore{MemoryStore: NewMemoryStore()})
	_, err := m.Resolve(context.Background(), "token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	m := NewManager(NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.RunSweeper(ctx, time.Millisecond, nil) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Find(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete(ctx, "missing"), "deleting an unknown token is not an error")

	live := models.Session{Token: "live", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := models.Session{Token: "stale", UserID: "u1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now}
	require.NoError(t, store.Save(ctx, live))
	require.NoError(t, store.Save(ctx, stale))

	live.UserID = "u2"
	require.NoError(t, store.Save(ctx, live))
	got, err := store.Find(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "u2", got.UserID, "Save replaces an existing entry")

	n, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, store.Len())
}
