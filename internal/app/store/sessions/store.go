// internal/app/store/sessions/store.go
package sessionstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskforge/taskforge/internal/domain/models"
)

// ErrNotFound is returned when no session matches the query.
var ErrNotFound = errors.New("session not found")

// DefaultMaxActive is the per-user cap on concurrent sessions when the
// store is built without an explicit limit.
const DefaultMaxActive = 5

// Store manages login sessions, one document per device login.
type Store struct {
	c         *mongo.Collection
	maxActive int
}

// New creates a sessions Store. maxActive <= 0 selects DefaultMaxActive.
func New(db *mongo.Database, maxActive int) *Store {
	if maxActive <= 0 {
		maxActive = DefaultMaxActive
	}
	return &Store{c: db.Collection("sessions"), maxActive: maxActive}
}

// MaxActive reports the configured per-user session cap.
func (s *Store) MaxActive() int { return s.maxActive }

// EnsureIndexes creates the token uniqueness and recency-order indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_sessions_token"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_sessions_user_created"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_sessions_expires"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a new session for the user. When the user is already at
// the cap, the oldest sessions by created_at are evicted first and their
// tokens returned so the caller can blacklist them.
func (s *Store) Create(ctx context.Context, sess models.Session) (models.Session, []string, error) {
	evicted, err := s.evictOverflow(ctx, sess.UserID)
	if err != nil {
		return models.Session{}, nil, err
	}

	if sess.ID.IsZero() {
		sess.ID = primitive.NewObjectID()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return models.Session{}, evicted, err
	}
	return sess, evicted, nil
}

// evictOverflow removes the oldest sessions so that after one insert the
// user is at or under the cap. Returns the tokens of evicted sessions.
func (s *Store) evictOverflow(ctx context.Context, userID primitive.ObjectID) ([]string, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	over := int(n) - s.maxActive + 1
	if over <= 0 {
		return nil, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(over))
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var victims []models.Session
	if err := cur.All(ctx, &victims); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(victims))
	tokens := make([]string, 0, len(victims))
	for _, v := range victims {
		ids = append(ids, v.ID)
		tokens = append(tokens, v.Token)
	}
	if len(ids) > 0 {
		if _, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

// GetByToken loads the session bound to the exact bearer token.
func (s *Store) GetByToken(ctx context.Context, tok string) (*models.Session, error) {
	var sess models.Session
	err := s.c.FindOne(ctx, bson.M{"token": tok}).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetByID loads a session by its id, scoped to the owning user.
func (s *Store) GetByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Session, error) {
	var sess models.Session
	err := s.c.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListByUser returns the user's sessions oldest-first (insertion order,
// which is also recency order for the cap).
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var sessions []models.Session
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteByToken removes the session bound to the token. Deleting a token
// with no session is not an error; deletes are idempotent.
func (s *Store) DeleteByToken(ctx context.Context, tok string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"token": tok})
	return err
}

// DeleteByID removes one session by id, scoped to the owning user.
// Returns ErrNotFound when the user has no such session.
func (s *Store) DeleteByID(ctx context.Context, userID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllForUser removes every session the user has and reports how many.
func (s *Store) DeleteAllForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteExpired removes sessions whose expiry has passed. Called by the
// janitor on both the fine and coarse schedules.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now.UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountActive counts sessions that have not yet expired.
func (s *Store) CountActive(ctx context.Context, now time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"expires_at": bson.M{"$gte": now.UTC()}})
}
