// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"

	appstore "github.com/taskforge/taskforge/internal/app/store/applications"
	"github.com/taskforge/taskforge/internal/app/store/blacklist"
	completedstore "github.com/taskforge/taskforge/internal/app/store/completed"
	sessionstore "github.com/taskforge/taskforge/internal/app/store/sessions"
	taskstore "github.com/taskforge/taskforge/internal/app/store/tasks"
	userstore "github.com/taskforge/taskforge/internal/app/store/users"
	"github.com/taskforge/taskforge/internal/app/system/token"
	"github.com/taskforge/taskforge/internal/app/system/uploads"
	"github.com/taskforge/taskforge/internal/app/system/workers"
)

// DBDeps bundles the database clients, stores, and long-lived services
// the lifecycle hooks and HTTP handlers share.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Users     *userstore.Store
	Tasks     *taskstore.Store
	Apps      *appstore.Store
	Sessions  *sessionstore.Store
	Blacklist *blacklist.Store
	Completed *completedstore.Store

	Tokens  *token.Service
	Uploads *uploads.Saver
	Janitor *workers.SessionJanitor
}
