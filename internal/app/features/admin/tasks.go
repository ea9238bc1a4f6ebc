// internal/app/features/admin/tasks.go
package admin

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	taskstore "github.com/taskforge/taskforge/internal/app/store/tasks"
	"github.com/taskforge/taskforge/internal/app/system/apperrors"
	gate "github.com/taskforge/taskforge/internal/app/system/auth"
	"github.com/taskforge/taskforge/internal/app/system/render"
	"github.com/taskforge/taskforge/internal/app/system/timeouts"
	"github.com/taskforge/taskforge/internal/domain/models"
)

// CreateTask handles POST /admin/tasks. The creating admin is recorded
// as the task's client.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	admin, _ := gate.CurrentUser(r)

	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Category    string     `json:"category"`
		Difficulty  string     `json:"difficulty"`
		Payout      float64    `json:"payout"`
		Duration    int        `json:"duration"`
		Deadline    *time.Time `json:"deadline"`
	}
	if err := render.DecodeBody(r, &req); err != nil {
		render.Error(w, h.Log, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		render.Error(w, h.Log, apperrors.Validation("title is required"))
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		render.Error(w, h.Log, apperrors.Validation("description is required"))
		return
	}

	t := models.Task{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		Payout:      req.Payout,
		Duration:    req.Duration,
		ClientID:    admin.ID,
	}
	if req.Deadline != nil {
		t.Deadline = *req.Deadline
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Tasks.Create(ctx, t)
	if err != nil {
		render.Error(w, h.Log, apperrors.Validation(err.Error()))
		return
	}

	h.Log.Info("task created",
		zap.String("task_id", created.ID.Hex()),
		zap.String("created_by", admin.ID.Hex()))
	render.Success(w, http.StatusCreated, "task created", created)
}

// UpdateTask handles PUT /admin/tasks/{id}.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, h.Log, apperrors.Validation("invalid task id"))
		return
	}

	var req struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Category    *string    `json:"category"`
		Difficulty  *string    `json:"difficulty"`
		Payout      *float64   `json:"payout"`
		Duration    *int       `json:"duration"`
		Status      *string    `json:"status"`
		Deadline    *time.Time `json:"deadline"`
	}
	if err := render.DecodeBody(r, &req); err != nil {
		render.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	upd := taskstore.Update{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		Payout:      req.Payout,
		Duration:    req.Duration,
		Status:      req.Status,
		Deadline:    req.Deadline,
	}
	if err := h.Tasks.UpdateByAdmin(ctx, id, upd); err != nil {
		if err == taskstore.ErrNotFound {
			render.Error(w, h.Log, apperrors.NotFound("task not found"))
			return
		}
		render.Error(w, h.Log, apperrors.Validation(err.Error()))
		return
	}

	task, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not reload task", err))
		return
	}
	render.Success(w, http.StatusOK, "task updated", task)
}

// DeleteTask handles DELETE /admin/tasks/{id}. Applications for the task
// go with it; their uploaded files stay on disk for audit.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, h.Log, apperrors.Validation("invalid task id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Tasks.Delete(ctx, id); err != nil {
		if err == taskstore.ErrNotFound {
			render.Error(w, h.Log, apperrors.NotFound("task not found"))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not delete task", err))
		return
	}

	removed, err := h.Apps.DeleteByTask(ctx, id)
	if err != nil {
		h.Log.Warn("failed to cascade application delete",
			zap.String("task_id", id.Hex()), zap.Error(err))
	}

	h.Log.Info("task deleted",
		zap.String("task_id", id.Hex()),
		zap.Int64("applications_removed", removed))
	render.Success(w, http.StatusOK, "task deleted", map[string]int64{
		"applications_removed": removed,
	})
}
