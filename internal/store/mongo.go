// ABOUTME: MongoDB implementation of the item, account and session stores
// ABOUTME: Item IDs come from a counters collection so they stay small integers

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DriverMongo selects MongoStore in Open-style configuration.
const DriverMongo = "mongo"

const (
	collItems    = "items"
	collAccounts = "accounts"
	collSessions = "sessions"
	collCounters = "counters"
)

// MongoStore implements Store over a MongoDB database.
type MongoStore struct {
	client   *mongo.Client
	items    *mongo.Collection
	accounts *mongo.Collection
	sessions *mongo.Collection
	counters *mongo.Collection
	logger   *slog.Logger
}

var _ Store = (*MongoStore)(nil)

type itemDoc struct {
	ID           int64      `bson:"_id"`
	OwnerID      string     `bson:"owner_id"`
	Title        string     `bson:"title"`
	Description  string     `bson:"description"`
	LastModified time.Time  `bson:"last_modified"`
	CompletedAt  *time.Time `bson:"completed_at"`
}

type accountDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

type sessionDoc struct {
	ID        string    `bson:"_id"`
	AccountID string    `bson:"account_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// OpenMongo connects to uri, selects database and ensures the indexes exist.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	logger := slog.Default().With("component", "store")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		items:    db.Collection(collItems),
		accounts: db.Collection(collAccounts),
		sessions: db.Collection(collSessions),
		counters: db.Collection(collCounters),
		logger:   logger,
	}

	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	logger.Info("store initialized", "driver", DriverMongo, "database", database)
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	if _, err := s.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "completed_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("items: %w", err)
	}

	if _, err := s.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("accounts: %w", err)
	}

	// MongoDB removes sessions on its own once expires_at has passed
	if _, err := s.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}
	return nil
}

// Ping checks that the server is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	s.logger.Info("closing store")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// nextItemID atomically increments the items counter.
func (s *MongoStore) nextItemID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": collItems},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

// CreateItem inserts a new item and sets item.ID.
func (s *MongoStore) CreateItem(ctx context.Context, item *Item) error {
	id, err := s.nextItemID(ctx)
	if err != nil {
		return fmt.Errorf("allocating item id: %w", err)
	}

	doc := itemDoc{
		ID:           id,
		OwnerID:      item.OwnerID,
		Title:        item.Title,
		Description:  item.Description,
		LastModified: item.LastModified.UTC(),
		CompletedAt:  item.CompletedAt,
	}
	if _, err := s.items.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}

	item.ID = id
	s.logger.Debug("created item", "id", item.ID, "owner_id", item.OwnerID)
	return nil
}

// GetItem retrieves an item by ID for its owner.
func (s *MongoStore) GetItem(ctx context.Context, ownerID string, id int64) (*Item, error) {
	var doc itemDoc
	err := s.items.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	return doc.item(), nil
}

// ListItems returns the owner's open or completed items, most recently
// modified first.
func (s *MongoStore) ListItems(ctx context.Context, ownerID string, completed bool) ([]*Item, error) {
	filter := bson.M{"owner_id": ownerID, "completed_at": nil}
	if completed {
		filter["completed_at"] = bson.M{"$ne": nil}
	}

	opts := options.Find().SetSort(bson.D{{Key: "last_modified", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.items.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}

	var docs []itemDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}

	items := make([]*Item, 0, len(docs))
	for i := range docs {
		items = append(items, docs[i].item())
	}
	return items, nil
}

// UpdateItem writes title, description and last_modified of an existing item.
func (s *MongoStore) UpdateItem(ctx context.Context, item *Item) error {
	result, err := s.items.UpdateOne(ctx,
		bson.M{"_id": item.ID, "owner_id": item.OwnerID},
		bson.M{"$set": bson.M{
			"title":         item.Title,
			"description":   item.Description,
			"last_modified": item.LastModified.UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteItem stamps completed_at and last_modified with at.
func (s *MongoStore) CompleteItem(ctx context.Context, ownerID string, id int64, at time.Time) error {
	at = at.UTC()
	result, err := s.items.UpdateOne(ctx,
		bson.M{"_id": id, "owner_id": ownerID},
		bson.M{"$set": bson.M{"completed_at": at, "last_modified": at}},
	)
	if err != nil {
		return fmt.Errorf("completing item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem permanently removes an item.
func (s *MongoStore) DeleteItem(ctx context.Context, ownerID string, id int64) error {
	result, err := s.items.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted item", "id", id, "owner_id", ownerID)
	return nil
}

// CreateAccount creates a new account.
// Returns ErrUsernameTaken if the username is already registered.
func (s *MongoStore) CreateAccount(ctx context.Context, account *Account) error {
	_, err := s.accounts.InsertOne(ctx, accountDoc{
		ID:           account.ID,
		Username:     account.Username,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt.UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("inserting account: %w", err)
	}

	s.logger.Info("created account", "id", account.ID, "username", account.Username)
	return nil
}

// GetAccount retrieves an account by ID.
func (s *MongoStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	return s.getAccount(ctx, bson.M{"_id": id})
}

// GetAccountByUsername retrieves an account by username.
func (s *MongoStore) GetAccountByUsername(ctx context.Context, username string) (*Account, error) {
	return s.getAccount(ctx, bson.M{"username": username})
}

func (s *MongoStore) getAccount(ctx context.Context, filter bson.M) (*Account, error) {
	var doc accountDoc
	err := s.accounts.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	return &Account{
		ID:           doc.ID,
		Username:     doc.Username,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// CreateSession creates a new session.
func (s *MongoStore) CreateSession(ctx context.Context, session *Session) error {
	_, err := s.sessions.InsertOne(ctx, sessionDoc{
		ID:        session.ID,
		AccountID: session.AccountID,
		CreatedAt: session.CreatedAt.UTC(),
		ExpiresAt: session.ExpiresAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSession retrieves a non-expired session. The TTL monitor runs about
// once a minute, so expiry is also checked here.
func (s *MongoStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var doc sessionDoc
	err := s.sessions.FindOne(ctx, bson.M{
		"_id":        id,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &Session{
		ID:        doc.ID,
		AccountID: doc.AccountID,
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
	}, nil
}

// DeleteSession deletes a session. Deleting a missing session is not an error.
func (s *MongoStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.sessions.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions the TTL monitor hasn't reached yet.
func (s *MongoStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.sessions.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return result.DeletedCount, nil
}

func (d *itemDoc) item() *Item {
	item := &Item{
		ID:           d.ID,
		OwnerID:      d.OwnerID,
		Title:        d.Title,
		Description:  d.Description,
		LastModified: d.LastModified.UTC(),
	}
	if d.CompletedAt != nil {
		t := d.CompletedAt.UTC()
		item.CompletedAt = &t
	}
	return item
}
