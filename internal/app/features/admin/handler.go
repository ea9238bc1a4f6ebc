// Package admin implements the administrative surface: user management,
// task authoring, application review, submission downloads, and platform
// statistics. Every route requires an authenticated admin.
package admin

import (
	"go.uber.org/zap"

	appstore "github.com/taskforge/taskforge/internal/app/store/applications"
	"github.com/taskforge/taskforge/internal/app/store/blacklist"
	completedstore "github.com/taskforge/taskforge/internal/app/store/completed"
	sessionstore "github.com/taskforge/taskforge/internal/app/store/sessions"
	taskstore "github.com/taskforge/taskforge/internal/app/store/tasks"
	userstore "github.com/taskforge/taskforge/internal/app/store/users"
	"github.com/taskforge/taskforge/internal/app/system/token"
	"github.com/taskforge/taskforge/internal/app/system/uploads"
)

// Handler holds the admin feature's dependencies.
type Handler struct {
	Users     *userstore.Store
	Tasks     *taskstore.Store
	Apps      *appstore.Store
	Completed *completedstore.Store
	Sessions  *sessionstore.Store
	Blacklist *blacklist.Store
	Tokens    *token.Service
	Uploads   *uploads.Saver
	Log       *zap.Logger
}
