// internal/app/store/blacklist/store.go
package blacklist

import (
	"context"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskforge/taskforge/internal/domain/models"
)

// Store manages revoked tokens in MongoDB. Rows expire on their own via a
// TTL index; an hourly sweep backs the TTL up on deployments where TTL
// monitor latency matters.
type Store struct {
	c *mongo.Collection
}

// New creates a blacklist Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("blacklisted_tokens")}
}

// EnsureIndexes creates the token lookup index and the TTL index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_blacklist_token"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_blacklist_ttl"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Add blacklists a token until expiresAt. Blacklisting a token twice is a
// no-op rather than an error.
func (s *Store) Add(ctx context.Context, tok string, userID primitive.ObjectID, expiresAt time.Time) error {
	row := models.BlacklistedToken{
		Token:     tok,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, row); err != nil {
		if wafflemongo.IsDup(err) {
			return nil
		}
		return err
	}
	return nil
}

// Contains reports whether the token is currently blacklisted. Rows the
// TTL monitor has not reaped yet but whose expiry has passed still count
// as blocked; an expired token fails verification anyway.
func (s *Store) Contains(ctx context.Context, tok string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"token": tok}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CleanupExpired removes rows past their expiry. Backup for TTL reaping.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
