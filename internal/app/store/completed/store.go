// internal/app/store/completed/store.go
package completedstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskforge/taskforge/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store archives completed work for admin reporting.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("completed_tasks")}
}

// EnsureIndexes creates reporting lookup indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "completed_at", Value: -1}},
			Options: options.Index().SetName("idx_completed_user"),
		},
		{
			Keys:    bson.D{{Key: "task_id", Value: 1}},
			Options: options.Index().SetName("idx_completed_task"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// CreateMany archives one record per submitted file.
func (s *Store) CreateMany(ctx context.Context, records []models.CompletedTask) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]any, 0, len(records))
	for _, r := range records {
		r.ID = primitive.NewObjectID()
		if r.CompletedAt.IsZero() {
			r.CompletedAt = now
		}
		docs = append(docs, r)
	}
	_, err := s.c.InsertMany(ctx, docs)
	return err
}

// ListByUser returns the user's archived completions, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.CompletedTask, error) {
	opts := options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CompletedTask
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the total number of archived records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// TotalPayout sums the payout across all archived records.
func (s *Store) TotalPayout(ctx context.Context) (float64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": nil, "sum": bson.M{"$sum": "$payout"}}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		var row struct {
			Sum float64 `bson:"sum"`
		}
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
		return row.Sum, nil
	}
	return 0, cur.Err()
}
