// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskforge/taskforge/internal/app/system/auth"
	"github.com/taskforge/taskforge/internal/domain/models"
)

// UserCtx returns the current user's role, ObjectID, and a found flag.
// ok=true guarantees an authenticated user with a valid ObjectID; callers
// behind the auth gate can rely on it but ownership checks still apply.
func UserCtx(r *http.Request) (role string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", primitive.NilObjectID, false
	}
	return user.Role, user.ID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	user, ok := auth.CurrentUser(r)
	return ok && user.IsAdmin()
}

// OwnsApplication reports whether the current user owns the application.
// Admins pass regardless of ownership.
func OwnsApplication(r *http.Request, app *models.TaskApplication) bool {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return false
	}
	return user.IsAdmin() || app.UserID == user.ID
}
