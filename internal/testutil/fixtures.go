package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskforge/taskforge/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given role and a bcrypt hash of
// "password123".
func (f *Fixtures) CreateUser(ctx context.Context, fullName, username, email, role string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash test password: %v", err)
	}

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		FullNameCI:   text.Fold(fullName),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       models.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateTask creates an open test task owned by clientID.
func (f *Fixtures) CreateTask(ctx context.Context, title string, clientID primitive.ObjectID, payout float64) models.Task {
	f.t.Helper()

	now := time.Now().UTC()
	task := models.Task{
		ID:          primitive.NewObjectID(),
		Title:       title,
		TitleCI:     text.Fold(title),
		Description: "test task",
		Category:    "design",
		Difficulty:  "beginner",
		Payout:      payout,
		Duration:    7,
		Status:      models.TaskOpen,
		ClientID:    clientID,
		Deadline:    now.AddDate(0, 0, 7),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("tasks").InsertOne(ctx, task); err != nil {
		f.t.Fatalf("failed to create test task: %v", err)
	}
	return task
}

// CreateApplication creates a test application in the given status.
func (f *Fixtures) CreateApplication(ctx context.Context, userID, taskID primitive.ObjectID, status models.ApplicationStatus) models.TaskApplication {
	f.t.Helper()

	now := time.Now().UTC()
	app := models.TaskApplication{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		TaskID:    taskID,
		Status:    status,
		AppliedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("task_applications").InsertOne(ctx, app); err != nil {
		f.t.Fatalf("failed to create test application: %v", err)
	}
	return app
}

// CreateSession creates a live session for the user bound to the token.
func (f *Fixtures) CreateSession(ctx context.Context, userID primitive.ObjectID, token string, expiresAt time.Time) models.Session {
	f.t.Helper()

	sess := models.Session{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Token:     token,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt.UTC(),
		Device:    "test-agent",
		IPAddress: "127.0.0.1",
	}

	if _, err := f.db.Collection("sessions").InsertOne(ctx, sess); err != nil {
		f.t.Fatalf("failed to create test session: %v", err)
	}
	return sess
}
