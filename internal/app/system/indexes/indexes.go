// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	appstore "github.com/taskforge/taskforge/internal/app/store/applications"
	"github.com/taskforge/taskforge/internal/app/store/blacklist"
	completedstore "github.com/taskforge/taskforge/internal/app/store/completed"
	sessionstore "github.com/taskforge/taskforge/internal/app/store/sessions"
	taskstore "github.com/taskforge/taskforge/internal/app/store/tasks"
	userstore "github.com/taskforge/taskforge/internal/app/store/users"
)

/*
EnsureAll is called at startup. Each store's EnsureIndexes is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	run := func(name string, fn func(context.Context) error) {
		start := time.Now()
		if err := fn(ctx); err != nil {
			zap.L().Warn("index ensure failed",
				zap.String("collection", name),
				zap.Error(err))
			problems = append(problems, name+": "+err.Error())
			return
		}
		zap.L().Info("indexes ensured",
			zap.String("collection", name),
			zap.String("took", time.Since(start).String()))
	}

	run("users", userstore.New(db).EnsureIndexes)
	run("sessions", sessionstore.New(db, 0).EnsureIndexes)
	run("blacklisted_tokens", blacklist.New(db).EnsureIndexes)
	run("tasks", taskstore.New(db).EnsureIndexes)
	run("task_applications", appstore.New(db).EnsureIndexes)
	run("completed_tasks", completedstore.New(db).EnsureIndexes)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
