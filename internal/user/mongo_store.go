package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/misqat/backend/internal/billing"
)

const collectionName = "users"

// MongoStore implements Store over a MongoDB collection. It also implements
// billing.Store so the subscription lifecycle can read and CAS-update the
// embedded record.
type MongoStore struct {
	col *mongo.Collection
	now func() time.Time
}

// NewMongoStore creates a store over the users collection of db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	if db == nil {
		panic("user: mongo database is required")
	}
	return &MongoStore{
		col: db.Collection(collectionName),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the unique email index. Call once at startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("user: failed to create email index: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, u *User) error {
	if _, err := s.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return errors.Join(ErrSaveFailed, err)
	}
	return nil
}

func (s *MongoStore) ByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoStore) ByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var u User
	if err := s.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Account implements billing.Store.
func (s *MongoStore) Account(ctx context.Context, userID string) (*billing.Account, error) {
	u, err := s.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, billing.ErrAccountNotFound
		}
		return nil, err
	}
	acct := u.BillingAccount()
	return &acct, nil
}

// UpdateRecord implements billing.Store. The filter conditions the write on
// the subscription record observed by the caller, so the whole
// read-decide-write cycle behaves like a compare-and-swap. Status alone is
// not a sufficient guard because some transitions leave it unchanged (e.g.
// attaching an unapproved subscription reference to a trial), so the filter
// also matches the record's updatedAt, which every write advances.
func (s *MongoStore) UpdateRecord(ctx context.Context, userID string, expect, rec billing.Record) error {
	now := s.now()
	res, err := s.col.UpdateOne(ctx,
		bson.M{
			"_id":                    userID,
			"subscription.status":    expect.Status,
			"subscription.updatedAt": expect.UpdatedAt,
		},
		bson.M{"$set": bson.M{
			"subscription":          rec,
			"hasActiveSubscription": rec.Entitled(now),
			"updatedAt":             now,
		}},
	)
	if err != nil {
		return errors.Join(ErrSaveFailed, err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a lost race from a vanished account.
		if _, err := s.ByID(ctx, userID); errors.Is(err, ErrNotFound) {
			return billing.ErrAccountNotFound
		}
		return billing.ErrStateConflict
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
