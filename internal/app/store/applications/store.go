// internal/app/store/applications/store.go
package appstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskforge/taskforge/internal/domain/models"
)

var (
	// ErrNotFound is returned when no application matches the query.
	ErrNotFound = errors.New("application not found")

	// ErrDuplicate means the user already applied to this task. The unique
	// (user_id, task_id) index is the authoritative guard; handler-level
	// pre-checks only improve the error message.
	ErrDuplicate = errors.New("user already applied to this task")

	// ErrStateChanged means a compare-and-set update found the application
	// in a different status than expected.
	ErrStateChanged = errors.New("application status changed concurrently")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("task_applications")}
}

// EnsureIndexes creates the one-application-per-task guard and listing
// indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "task_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_apps_user_task"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "applied_at", Value: -1}},
			Options: options.Index().SetName("idx_apps_user_applied"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "applied_at", Value: -1}},
			Options: options.Index().SetName("idx_apps_status"),
		},
		{
			Keys:    bson.D{{Key: "task_id", Value: 1}},
			Options: options.Index().SetName("idx_apps_task"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a pending application.
func (s *Store) Create(ctx context.Context, app models.TaskApplication) (models.TaskApplication, error) {
	now := time.Now().UTC()
	app.ID = primitive.NewObjectID()
	if app.Status == "" {
		app.Status = models.ApplicationPending
	}
	app.AppliedAt = now
	app.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, app); err != nil {
		if wafflemongo.IsDup(err) {
			return models.TaskApplication{}, ErrDuplicate
		}
		return models.TaskApplication{}, err
	}
	return app, nil
}

// GetByID loads an application.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TaskApplication, error) {
	var app models.TaskApplication
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&app)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ListByUser returns the user's applications, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.TaskApplication, error) {
	opts := options.Find().SetSort(bson.D{{Key: "applied_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var apps []models.TaskApplication
	if err := cur.All(ctx, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// ListFilter narrows admin application listings.
type ListFilter struct {
	Status models.ApplicationStatus
	TaskID primitive.ObjectID
	UserID primitive.ObjectID
}

// List returns a page of applications plus the total for the filter,
// newest first.
func (s *Store) List(ctx context.Context, f ListFilter, page, limit int) ([]models.TaskApplication, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if !f.TaskID.IsZero() {
		filter["task_id"] = f.TaskID
	}
	if !f.UserID.IsZero() {
		filter["user_id"] = f.UserID
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "applied_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var apps []models.TaskApplication
	if err := cur.All(ctx, &apps); err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

// SetStatusFrom moves an application from an expected status to a new one.
// The compare-and-set filter means a concurrent transition loses cleanly
// with ErrStateChanged instead of clobbering.
func (s *Store) SetStatusFrom(ctx context.Context, id primitive.ObjectID, from, to models.ApplicationStatus, extra bson.M) error {
	set := bson.M{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range extra {
		set[k] = v
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStateChanged
	}
	return nil
}

// AppendSubmissions adds deliverable files while the application sits in
// fromStatus, setting the post-submit status, progress, and delivered_at
// in the same update.
func (s *Store) AppendSubmissions(ctx context.Context, id primitive.ObjectID, fromStatus, newStatus models.ApplicationStatus, subs []models.Submission, progress int, deliveredAt time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": fromStatus},
		bson.M{
			"$push": bson.M{"submissions": bson.M{"$each": subs}},
			"$set": bson.M{
				"status":       newStatus,
				"progress":     progress,
				"delivered_at": deliveredAt.UTC(),
				"updated_at":   time.Now().UTC(),
			},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStateChanged
	}
	return nil
}

// RemoveSubmission pulls one submission by its embedded id.
func (s *Store) RemoveSubmission(ctx context.Context, id, subID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$pull": bson.M{"submissions": bson.M{"_id": subID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	if res.ModifiedCount == 0 {
		return ErrNotFound // no submission with that id
	}
	return nil
}

// SetProgress stores a progress percentage. Bounds are validated by the
// handler; progress is independent of status.
func (s *Store) SetProgress(ctx context.Context, id primitive.ObjectID, progress int) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"progress":   progress,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetReview records the admin verdict and moves the application out of
// submitted in one compare-and-set.
func (s *Store) SetReview(ctx context.Context, id primitive.ObjectID, review models.AdminReview, newStatus models.ApplicationStatus, completedAt *time.Time) error {
	set := bson.M{
		"status":       newStatus,
		"admin_review": review,
		"updated_at":   time.Now().UTC(),
	}
	if review.Comments != "" {
		set["feedback"] = review.Comments
	}
	if completedAt != nil {
		set["completed_at"] = completedAt.UTC()
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.ApplicationSubmitted},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStateChanged
	}
	return nil
}

// CountByStatusForUser aggregates the user's application counts per status.
func (s *Store) CountByStatusForUser(ctx context.Context, userID primitive.ObjectID) (map[models.ApplicationStatus]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[models.ApplicationStatus]int64{}
	for cur.Next(ctx) {
		var row struct {
			Status models.ApplicationStatus `bson:"_id"`
			N      int64                    `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}

// DeleteByTask removes all applications for a task. Used when an admin
// deletes the task itself.
func (s *Store) DeleteByTask(ctx context.Context, taskID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"task_id": taskID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns the number of applications matching an optional status.
func (s *Store) Count(ctx context.Context, status models.ApplicationStatus) (int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.c.CountDocuments(ctx, filter)
}
