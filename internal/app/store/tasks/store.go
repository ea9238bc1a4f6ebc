// internal/app/store/tasks/store.go
package taskstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskforge/taskforge/internal/app/system/normalize"
	"github.com/taskforge/taskforge/internal/domain/models"
)

var (
	// ErrNotFound is returned when no task matches the query.
	ErrNotFound = errors.New("task not found")

	errBadCategory   = errors.New("unknown task category")
	errBadDifficulty = errors.New("unknown task difficulty")
	errBadPayout     = errors.New("payout must be between 0 and 10000")
	errBadDuration   = errors.New("duration must be at least 1 day")
	errPastDeadline  = errors.New("deadline must be in the future")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

// EnsureIndexes creates listing and search indexes for tasks.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_tasks_status_created"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "difficulty", Value: 1}},
			Options: options.Index().SetName("idx_tasks_cat_diff"),
		},
		{
			Keys:    bson.D{{Key: "title_ci", Value: 1}},
			Options: options.Index().SetName("idx_tasks_title_ci"),
		},
		{
			Keys:    bson.D{{Key: "payout", Value: 1}},
			Options: options.Index().SetName("idx_tasks_payout"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a new task after normalizing and validating fields.
// A zero Deadline is computed from Duration; an explicit deadline must lie
// in the future.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	now := time.Now().UTC()

	t.ID = primitive.NewObjectID()
	t.Title = normalize.Name(t.Title)
	t.TitleCI = text.Fold(t.Title)
	t.Category = normalize.Category(t.Category)
	t.Difficulty = normalize.Difficulty(t.Difficulty)
	if t.Status == "" {
		t.Status = models.TaskOpen
	}

	if !models.ValidTaskCategory(t.Category) {
		return models.Task{}, errBadCategory
	}
	if !models.ValidTaskDifficulty(t.Difficulty) {
		return models.Task{}, errBadDifficulty
	}
	if t.Payout < models.MinPayout || t.Payout > models.MaxPayout {
		return models.Task{}, errBadPayout
	}
	if t.Duration < 1 {
		return models.Task{}, errBadDuration
	}
	if t.Deadline.IsZero() {
		t.Deadline = now.AddDate(0, 0, t.Duration)
	} else if !t.Deadline.After(now) {
		return models.Task{}, errPastDeadline
	}

	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// GetByID loads a task by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update holds the admin-editable task fields. Nil pointers are untouched.
type Update struct {
	Title       *string
	Description *string
	Category    *string
	Difficulty  *string
	Payout      *float64
	Duration    *int
	Status      *string
	Deadline    *time.Time
}

// UpdateByAdmin applies a partial task update.
func (s *Store) UpdateByAdmin(ctx context.Context, id primitive.ObjectID, upd Update) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		title := normalize.Name(*upd.Title)
		set["title"] = title
		set["title_ci"] = text.Fold(title)
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Category != nil {
		c := normalize.Category(*upd.Category)
		if !models.ValidTaskCategory(c) {
			return errBadCategory
		}
		set["category"] = c
	}
	if upd.Difficulty != nil {
		d := normalize.Difficulty(*upd.Difficulty)
		if !models.ValidTaskDifficulty(d) {
			return errBadDifficulty
		}
		set["difficulty"] = d
	}
	if upd.Payout != nil {
		if *upd.Payout < models.MinPayout || *upd.Payout > models.MaxPayout {
			return errBadPayout
		}
		set["payout"] = *upd.Payout
	}
	if upd.Duration != nil {
		if *upd.Duration < 1 {
			return errBadDuration
		}
		set["duration"] = *upd.Duration
	}
	if upd.Status != nil {
		st := normalize.Status(*upd.Status)
		switch st {
		case models.TaskOpen, models.TaskInProgress, models.TaskCompleted, models.TaskCancelled:
		default:
			return errors.New("unknown task status")
		}
		set["status"] = st
	}
	if upd.Deadline != nil {
		set["deadline"] = upd.Deadline.UTC()
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a task document.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFilter narrows public task listings.
type ListFilter struct {
	Category   string
	Difficulty string
	Status     string
	MinPayout  *float64
	MaxPayout  *float64
	Search     string // folded title prefix match
}

// Sort field whitelist for public listings. Unknown values fall back to
// newest-first.
var sortFields = map[string]string{
	"created_at": "created_at",
	"payout":     "payout",
	"deadline":   "deadline",
	"title":      "title_ci",
}

// List returns a page of tasks plus the total count for the filter.
// sortBy names a whitelisted field; sortDir is 1 or -1.
func (s *Store) List(ctx context.Context, f ListFilter, page, limit int, sortBy string, sortDir int) ([]models.Task, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	field, ok := sortFields[sortBy]
	if !ok {
		field = "created_at"
		sortDir = -1
	}
	if sortDir != 1 && sortDir != -1 {
		sortDir = -1
	}

	filter := s.buildFilter(f)

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: sortDir}, {Key: "_id", Value: sortDir}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var tasks []models.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (s *Store) buildFilter(f ListFilter) bson.M {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = normalize.Category(f.Category)
	}
	if f.Difficulty != "" {
		filter["difficulty"] = normalize.Difficulty(f.Difficulty)
	}
	if f.Status != "" {
		filter["status"] = normalize.Status(f.Status)
	}
	payout := bson.M{}
	if f.MinPayout != nil {
		payout["$gte"] = *f.MinPayout
	}
	if f.MaxPayout != nil {
		payout["$lte"] = *f.MaxPayout
	}
	if len(payout) > 0 {
		filter["payout"] = payout
	}
	if f.Search != "" {
		filter["title_ci"] = bson.M{"$regex": regexEscape(text.Fold(f.Search))}
	}
	return filter
}

// AddApplicant records a user on the task's applicant set. $addToSet keeps
// the operation idempotent under concurrent applies.
func (s *Store) AddApplicant(ctx context.Context, taskID, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": taskID},
		bson.M{"$addToSet": bson.M{"applicants": userID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveApplicant pulls a user from the task's applicant set.
func (s *Store) RemoveApplicant(ctx context.Context, taskID, userID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": taskID},
		bson.M{"$pull": bson.M{"applicants": userID}})
	return err
}

// Assign marks the task in progress and records the assignee.
func (s *Store) Assign(ctx context.Context, taskID, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": taskID}, bson.M{"$set": bson.M{
		"assigned_to": userID,
		"status":      models.TaskInProgress,
		"updated_at":  time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus updates only the task status.
func (s *Store) SetStatus(ctx context.Context, taskID primitive.ObjectID, status string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": taskID}, bson.M{"$set": bson.M{
		"status":     status,
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

// Stats summarizes the task marketplace for the public stats endpoint.
type Stats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByCategory map[string]int64 `json:"by_category"`
	AvgPayout  float64          `json:"avg_payout"`
}

// GetStats computes marketplace totals with two small aggregations.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	st := Stats{ByStatus: map[string]int64{}, ByCategory: map[string]int64{}}

	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id": "$status",
			"n":   bson.M{"$sum": 1},
			"avg": bson.M{"$avg": "$payout"},
		}}},
	})
	if err != nil {
		return Stats{}, err
	}
	defer cur.Close(ctx)

	var sum float64
	for cur.Next(ctx) {
		var row struct {
			Status string  `bson:"_id"`
			N      int64   `bson:"n"`
			Avg    float64 `bson:"avg"`
		}
		if err := cur.Decode(&row); err != nil {
			return Stats{}, err
		}
		st.ByStatus[row.Status] = row.N
		st.Total += row.N
		sum += row.Avg * float64(row.N)
	}
	if err := cur.Err(); err != nil {
		return Stats{}, err
	}
	if st.Total > 0 {
		st.AvgPayout = sum / float64(st.Total)
	}

	cur2, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$category", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return Stats{}, err
	}
	defer cur2.Close(ctx)
	for cur2.Next(ctx) {
		var row struct {
			Category string `bson:"_id"`
			N        int64  `bson:"n"`
		}
		if err := cur2.Decode(&row); err != nil {
			return Stats{}, err
		}
		st.ByCategory[row.Category] = row.N
	}
	return st, cur2.Err()
}

// PriceRange is the payout span across open tasks.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// GetPriceRange returns the min and max payout among open tasks.
// Both are zero when no open tasks exist.
func (s *Store) GetPriceRange(ctx context.Context) (PriceRange, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.TaskOpen}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"min": bson.M{"$min": "$payout"},
			"max": bson.M{"$max": "$payout"},
		}}},
	})
	if err != nil {
		return PriceRange{}, err
	}
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		var row struct {
			Min float64 `bson:"min"`
			Max float64 `bson:"max"`
		}
		if err := cur.Decode(&row); err != nil {
			return PriceRange{}, err
		}
		return PriceRange{Min: row.Min, Max: row.Max}, nil
	}
	return PriceRange{}, cur.Err()
}

// Count returns the number of tasks matching an optional status.
func (s *Store) Count(ctx context.Context, status string) (int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.c.CountDocuments(ctx, filter)
}

func regexEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '.', '+', '*', '?', '(', ')', '|', '[', ']', '{', '}', '^', '$':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
