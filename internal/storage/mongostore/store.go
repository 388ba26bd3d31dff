// Package mongostore implements storage.Store and session.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trackify/internal/models"
	"trackify/internal/session"
	"trackify/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// DefaultDatabase is used when the connection string names no database.
const DefaultDatabase = "trackify"

// Store keeps users, expenses, goals, limits and sessions in one database.
type Store struct {
	client   *mongo.Client
	users    *mongo.Collection
	expenses *mongo.Collection
	goals    *mongo.Collection
	limits   *mongo.Collection
	sessions *mongo.Collection
	now      func() time.Time
}

var (
	_ storage.Store = (*Store)(nil)
	_ session.Store = (*Store)(nil)
)

// Open connects to uri, pings the server and ensures indexes.
func Open(ctx context.Context, uri string) (*Store, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("parse mongodb uri: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = DefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := New(client, client.Database(dbName))
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// New wraps an already connected client. Indexes are not created.
func New(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:   client,
		users:    db.Collection("users"),
		expenses: db.Collection("expenses"),
		goals:    db.Collection("goals"),
		limits:   db.Collection("limits"),
		sessions: db.Collection("sessions"),
		now:      time.Now,
	}
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "phone", Value: 1}}, Options: unique}},
		{s.expenses, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}}}},
		{s.goals, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}}, Options: unique}},
		{s.limits, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}}, Options: unique}},
		{s.sessions, mongo.IndexModel{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

// Ping checks the server connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Phone     string             `bson:"phone"`
	Password  string             `bson:"password"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d userDoc) model() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Phone:        d.Phone,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
	}
}

type expenseDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"userId"`
	Amount      float64            `bson:"amount"`
	Category    string             `bson:"category"`
	Description string             `bson:"description"`
	Type        string             `bson:"type"`
	Date        string             `bson:"date"`
}

func (d expenseDoc) model() models.Expense {
	return models.Expense{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Amount:      d.Amount,
		Category:    d.Category,
		Description: d.Description,
		Type:        models.TransactionType(d.Type),
		Date:        d.Date,
	}
}

type sessionDoc struct {
	Token     string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	CreatedAt time.Time `bson:"createdAt"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// objectID parses a hex id. Malformed ids cannot match any document.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, storage.ErrNotFound
	}
	return oid, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	return err
}

// CreateUser inserts u and fills in its ID and CreatedAt.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	doc := userDoc{Name: u.Name, Phone: u.Phone, Password: u.PasswordHash, CreatedAt: s.now().UTC()}
	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", storage.ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID).Hex()
	u.CreatedAt = doc.CreatedAt
	return nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.model(), nil
}

// GetUserByID retrieves a user by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	u, err := s.findUser(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetUserByPhone retrieves a user by phone number.
func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	u, err := s.findUser(ctx, bson.M{"phone": phone})
	if err != nil {
		return nil, fmt.Errorf("get user by phone: %w", err)
	}
	return u, nil
}

// UpdateUser stores name, phone and password hash of u.
func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	oid, err := objectID(u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	res, err := s.users.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"name":     u.Name,
		"phone":    u.Phone,
		"password": u.PasswordHash,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("update user: %w", storage.ErrDuplicate)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update user: %w", storage.ErrNotFound)
	}
	return nil
}

// CreateExpense inserts e and fills in its ID. A missing date defaults to today.
func (s *Store) CreateExpense(ctx context.Context, e *models.Expense) error {
	if e.Date == "" {
		e.Date = models.Today(s.now())
	}
	if e.Type == "" {
		e.Type = models.TypeExpense
	}
	res, err := s.expenses.InsertOne(ctx, expenseDoc{
		UserID:      e.UserID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		Type:        string(e.Type),
		Date:        e.Date,
	})
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	e.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

// ListExpenses returns every expense owned by userID in insertion order.
func (s *Store) ListExpenses(ctx context.Context, userID string) ([]models.Expense, error) {
	cur, err := s.expenses.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer cur.Close(ctx)

	expenses := []models.Expense{}
	for cur.Next(ctx) {
		var doc expenseDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("list expenses: %w", err)
		}
		expenses = append(expenses, doc.model())
	}
	return expenses, cur.Err()
}

// GetExpense retrieves a single expense by id and owner.
func (s *Store) GetExpense(ctx context.Context, id, userID string) (*models.Expense, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	var doc expenseDoc
	if err := s.expenses.FindOne(ctx, bson.M{"_id": oid, "userId": userID}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("get expense: %w", notFound(err))
	}
	e := doc.model()
	return &e, nil
}

// UpdateExpense replaces the mutable fields of an owned expense.
func (s *Store) UpdateExpense(ctx context.Context, id, userID string, f models.ExpenseFields) (*models.Expense, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	var doc expenseDoc
	err = s.expenses.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "userId": userID},
		bson.M{"$set": bson.M{
			"amount":      f.Amount,
			"category":    f.Category,
			"description": f.Description,
			"type":        string(f.Type),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", notFound(err))
	}
	e := doc.model()
	return &e, nil
}

// DeleteExpense removes an owned expense. Deleting a missing or foreign
// expense is not an error.
func (s *Store) DeleteExpense(ctx context.Context, id, userID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := s.expenses.DeleteOne(ctx, bson.M{"_id": oid, "userId": userID}); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

type amountDoc struct {
	ID     primitive.ObjectID
	UserID string
	Amount float64
}

// getAmount and upsertAmount serve the goals and limits collections. field
// is the name of the amount field ("goal" or "limit").
func (s *Store) getAmount(ctx context.Context, coll *mongo.Collection, field, userID string) (*amountDoc, error) {
	var raw bson.M
	if err := coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&raw); err != nil {
		return nil, notFound(err)
	}
	return amountFromRaw(raw, field), nil
}

func (s *Store) upsertAmount(ctx context.Context, coll *mongo.Collection, field, userID string, amount float64) (*amountDoc, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{field: amount}}

	var raw bson.M
	err := coll.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&raw)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent first write won the insert; the retry updates it.
		err = coll.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&raw)
	}
	if err != nil {
		return nil, err
	}
	return amountFromRaw(raw, field), nil
}

func amountFromRaw(raw bson.M, field string) *amountDoc {
	d := &amountDoc{}
	d.ID, _ = raw["_id"].(primitive.ObjectID)
	d.UserID, _ = raw["userId"].(string)
	switch v := raw[field].(type) {
	case float64:
		d.Amount = v
	case int32:
		d.Amount = float64(v)
	case int64:
		d.Amount = float64(v)
	}
	return d
}

// GetGoal returns the goal of userID or storage.ErrNotFound.
func (s *Store) GetGoal(ctx context.Context, userID string) (*models.Goal, error) {
	d, err := s.getAmount(ctx, s.goals, "goal", userID)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return &models.Goal{ID: d.ID.Hex(), UserID: d.UserID, Amount: d.Amount}, nil
}

// UpsertGoal creates or overwrites the goal of userID.
func (s *Store) UpsertGoal(ctx context.Context, userID string, amount float64) (*models.Goal, error) {
	d, err := s.upsertAmount(ctx, s.goals, "goal", userID, amount)
	if err != nil {
		return nil, fmt.Errorf("upsert goal: %w", err)
	}
	return &models.Goal{ID: d.ID.Hex(), UserID: d.UserID, Amount: d.Amount}, nil
}

// GetLimit returns the limit of userID or storage.ErrNotFound.
func (s *Store) GetLimit(ctx context.Context, userID string) (*models.Limit, error) {
	d, err := s.getAmount(ctx, s.limits, "limit", userID)
	if err != nil {
		return nil, fmt.Errorf("get limit: %w", err)
	}
	return &models.Limit{ID: d.ID.Hex(), UserID: d.UserID, Amount: d.Amount}, nil
}

// UpsertLimit creates or overwrites the limit of userID.
func (s *Store) UpsertLimit(ctx context.Context, userID string, amount float64) (*models.Limit, error) {
	d, err := s.upsertAmount(ctx, s.limits, "limit", userID, amount)
	if err != nil {
		return nil, fmt.Errorf("upsert limit: %w", err)
	}
	return &models.Limit{ID: d.ID.Hex(), UserID: d.UserID, Amount: d.Amount}, nil
}

// Save inserts or replaces a session.
func (s *Store) Save(ctx context.Context, sess models.Session) error {
	_, err := s.sessions.ReplaceOne(ctx, bson.M{"_id": sess.Token}, sessionDoc{
		Token:     sess.Token,
		UserID:    sess.UserID,
		CreatedAt: sess.CreatedAt.UTC(),
		ExpiresAt: sess.ExpiresAt.UTC(),
	}, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Find returns the session for token.
func (s *Store) Find(ctx context.Context, token string) (*models.Session, error) {
	var doc sessionDoc
	if err := s.sessions.FindOne(ctx, bson.M{"_id": token}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &models.Session{Token: doc.Token, UserID: doc.UserID, CreatedAt: doc.CreatedAt, ExpiresAt: doc.ExpiresAt}, nil
}

// Delete removes a session by token.
func (s *Store) Delete(ctx context.Context, token string) error {
	if _, err := s.sessions.DeleteOne(ctx, bson.M{"_id": token}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired at or before now. The TTL
// index does the same in the background, with up to a minute of lag.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.sessions.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": now.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.DeletedCount, nil
}
