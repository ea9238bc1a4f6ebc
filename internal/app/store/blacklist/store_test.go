// internal/app/store/blacklist/store_test.go
package blacklist

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskforge/taskforge/internal/testutil"
)

func setup(t *testing.T) *Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := New(db)
	if err := store.EnsureIndexes(testutil.TestContext(t)); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	return store
}

func TestAddAndContains(t *testing.T) {
	store := setup(t)
	ctx := testutil.TestContext(t)

	userID := primitive.NewObjectID()
	if err := store.Add(ctx, "revoked-token", userID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	blocked, err := store.Contains(ctx, "revoked-token")
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !blocked {
		t.Error("blacklisted token not reported as blocked")
	}

	blocked, err = store.Contains(ctx, "never-seen")
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if blocked {
		t.Error("unknown token reported as blocked")
	}
}

func TestAddTwiceIsNoOp(t *testing.T) {
	store := setup(t)
	ctx := testutil.TestContext(t)

	userID := primitive.NewObjectID()
	exp := time.Now().Add(time.Hour)
	if err := store.Add(ctx, "tok", userID, exp); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	if err := store.Add(ctx, "tok", userID, exp); err != nil {
		t.Fatalf("second Add failed: %v", err)
	}
}

func TestCleanupExpired(t *testing.T) {
	store := setup(t)
	ctx := testutil.TestContext(t)

	userID := primitive.NewObjectID()
	if err := store.Add(ctx, "fresh", userID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Add(ctx, "stale", userID, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	n, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("cleaned %d rows, want 1", n)
	}

	blocked, err := store.Contains(ctx, "fresh")
	if err != nil || !blocked {
		t.Errorf("fresh row missing after cleanup (blocked=%v err=%v)", blocked, err)
	}
}
