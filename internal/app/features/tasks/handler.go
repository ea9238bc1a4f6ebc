// Package tasks serves the public task catalog: browsing, filtering,
// search, and marketplace stats. All endpoints here are unauthenticated;
// applying to a task lives in the applications feature and task CRUD in
// the admin feature.
package tasks

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	taskstore "github.com/taskforge/taskforge/internal/app/store/tasks"
	"github.com/taskforge/taskforge/internal/app/system/apperrors"
	"github.com/taskforge/taskforge/internal/app/system/normalize"
	"github.com/taskforge/taskforge/internal/app/system/paging"
	"github.com/taskforge/taskforge/internal/app/system/render"
	"github.com/taskforge/taskforge/internal/app/system/timeouts"
	"github.com/taskforge/taskforge/internal/domain/models"
)

// Handler holds the tasks feature's dependencies.
type Handler struct {
	Tasks *taskstore.Store
	Log   *zap.Logger
}

// List handles GET /tasks with paging, filters, and sort.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := paging.Parse(r)

	f := taskstore.ListFilter{
		Category:   normalize.QueryParam(query.Get(r, "category")),
		Difficulty: normalize.QueryParam(query.Get(r, "difficulty")),
		Status:     normalize.QueryParam(query.Get(r, "status")),
		Search:     normalize.QueryParam(query.Get(r, "search")),
	}
	if v := query.Get(r, "minPayout"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinPayout = &p
		}
	}
	if v := query.Get(r, "maxPayout"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			f.MaxPayout = &p
		}
	}

	sortBy := normalize.QueryParam(query.Get(r, "sortBy"))
	sortDir := -1
	if query.Get(r, "sortDir") == "asc" {
		sortDir = 1
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	tasks, total, err := h.Tasks.List(ctx, f, page, limit, sortBy, sortDir)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not list tasks", err))
		return
	}

	render.JSON(w, http.StatusOK, paging.Envelope(tasks, total, page, limit))
}

// Get handles GET /tasks/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, h.Log, apperrors.Validation("invalid task id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	task, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		if err == taskstore.ErrNotFound {
			render.Error(w, h.Log, apperrors.NotFound("task not found"))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not load task", err))
		return
	}

	render.JSON(w, http.StatusOK, task)
}

// Categories handles GET /tasks/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, map[string]any{"categories": models.TaskCategories})
}

// Difficulties handles GET /tasks/difficulties.
func (h *Handler) Difficulties(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, map[string]any{"difficulties": models.TaskDifficulties})
}

// Stats handles GET /tasks/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	stats, err := h.Tasks.GetStats(ctx)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not compute stats", err))
		return
	}
	render.JSON(w, http.StatusOK, stats)
}

// PriceRange handles GET /tasks/price-range.
func (h *Handler) PriceRange(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	pr, err := h.Tasks.GetPriceRange(ctx)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not compute price range", err))
		return
	}
	render.JSON(w, http.StatusOK, pr)
}

// Search handles GET /tasks/search?q=. Sugar over List with only the
// search filter applied.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := normalize.QueryParam(query.Get(r, "q"))
	if q == "" {
		render.Error(w, h.Log, apperrors.Validation("search query is required"))
		return
	}
	page, limit := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	tasks, total, err := h.Tasks.List(ctx, taskstore.ListFilter{Search: q}, page, limit, "", -1)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not search tasks", err))
		return
	}

	render.JSON(w, http.StatusOK, paging.Envelope(tasks, total, page, limit))
}
