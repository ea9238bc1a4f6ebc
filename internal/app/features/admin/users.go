// internal/app/features/admin/users.go
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	userstore "github.com/taskforge/taskforge/internal/app/store/users"
	"github.com/taskforge/taskforge/internal/app/system/apperrors"
	gate "github.com/taskforge/taskforge/internal/app/system/auth"
	"github.com/taskforge/taskforge/internal/app/system/paging"
	"github.com/taskforge/taskforge/internal/app/system/render"
	"github.com/taskforge/taskforge/internal/app/system/timeouts"
	"github.com/taskforge/taskforge/internal/app/system/token"
)

// ListUsers handles GET /admin/users with role/status/search filters.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := paging.Parse(r)
	f := userstore.ListFilter{
		Role:   query.Get(r, "role"),
		Status: query.Get(r, "status"),
		Search: query.Get(r, "search"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, total, err := h.Users.List(ctx, f, page, limit)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not list users", err))
		return
	}
	render.JSON(w, http.StatusOK, paging.Envelope(users, total, page, limit))
}

// GetUser handles GET /admin/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, h.Log, apperrors.Validation("invalid user id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == userstore.ErrNotFound {
			render.Error(w, h.Log, apperrors.NotFound("user not found"))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not load user", err))
		return
	}
	render.JSON(w, http.StatusOK, user)
}

// UpdateUser handles PUT /admin/users/{id}. Disabling an account also
// ends its sessions so the lockout takes effect immediately.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, h.Log, apperrors.Validation("invalid user id"))
		return
	}

	var req struct {
		FullName *string `json:"full_name"`
		Email    *string `json:"email"`
		Role     *string `json:"role"`
		Status   *string `json:"status"`
	}
	if err := render.DecodeBody(r, &req); err != nil {
		render.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	upd := userstore.AdminUpdate{
		FullName: req.FullName,
		Email:    req.Email,
		Role:     req.Role,
		Status:   req.Status,
	}
	if err := h.Users.UpdateByAdmin(ctx, id, upd); err != nil {
		switch err {
		case userstore.ErrNotFound:
			render.Error(w, h.Log, apperrors.NotFound("user not found"))
		case userstore.ErrDuplicate:
			render.Error(w, h.Log, apperrors.Conflict("email already in use"))
		default:
			render.Error(w, h.Log, apperrors.Validation(err.Error()))
		}
		return
	}

	if req.Status != nil && *req.Status == "disabled" {
		if n := h.endAllSessions(ctx, id); n > 0 {
			h.Log.Info("sessions ended for disabled user",
				zap.String("user_id", id.Hex()), zap.Int("sessions", n))
		}
	}

	user, err := h.Users.GetByID(ctx, id)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not reload user", err))
		return
	}
	render.Success(w, http.StatusOK, "user updated", user)
}

// DeleteUser handles DELETE /admin/users/{id}. The account's sessions are
// ended and their tokens blacklisted before the document is removed, so a
// deleted user's bearer tokens die with the account. Admins cannot delete
// themselves.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	admin, _ := gate.CurrentUser(r)

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, h.Log, apperrors.Validation("invalid user id"))
		return
	}
	if id == admin.ID {
		render.Error(w, h.Log, apperrors.Validation("you cannot delete your own account"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if _, err := h.Users.GetByID(ctx, id); err != nil {
		if err == userstore.ErrNotFound {
			render.Error(w, h.Log, apperrors.NotFound("user not found"))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not load user", err))
		return
	}

	ended := h.endAllSessions(ctx, id)

	if err := h.Users.Delete(ctx, id); err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not delete user", err))
		return
	}

	h.Log.Info("user deleted",
		zap.String("user_id", id.Hex()),
		zap.String("deleted_by", admin.ID.Hex()),
		zap.Int("sessions_ended", ended))
	render.Success(w, http.StatusOK, "user deleted", map[string]int{"sessions_ended": ended})
}

// endAllSessions blacklists every live token the user has and deletes the
// session rows. Tokens that cannot be decoded are blacklisted until
// now+TTL as a fallback.
func (h *Handler) endAllSessions(ctx context.Context, userID primitive.ObjectID) int {
	sessions, err := h.Sessions.ListByUser(ctx, userID)
	if err != nil {
		h.Log.Warn("failed to list sessions for cascade",
			zap.String("user_id", userID.Hex()), zap.Error(err))
		return 0
	}
	for _, sess := range sessions {
		exp, ok := token.ExpiryOf(sess.Token)
		if !ok {
			exp = time.Now().UTC().Add(h.Tokens.TTL())
		}
		if err := h.Blacklist.Add(ctx, sess.Token, userID, exp); err != nil {
			h.Log.Warn("failed to blacklist token during cascade",
				zap.String("user_id", userID.Hex()), zap.Error(err))
		}
	}
	if _, err := h.Sessions.DeleteAllForUser(ctx, userID); err != nil {
		h.Log.Warn("failed to delete sessions during cascade",
			zap.String("user_id", userID.Hex()), zap.Error(err))
	}
	return len(sessions)
}
