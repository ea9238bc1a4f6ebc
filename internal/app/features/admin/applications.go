// internal/app/features/admin/applications.go
package admin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	appstore "github.com/taskforge/taskforge/internal/app/store/applications"
	"github.com/taskforge/taskforge/internal/app/system/apperrors"
	gate "github.com/taskforge/taskforge/internal/app/system/auth"
	"github.com/taskforge/taskforge/internal/app/system/paging"
	"github.com/taskforge/taskforge/internal/app/system/render"
	"github.com/taskforge/taskforge/internal/app/system/timeouts"
	"github.com/taskforge/taskforge/internal/domain/models"
)

// ListApplications handles GET /admin/applications with status, taskId,
// and userId filters.
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	page, limit := paging.Parse(r)

	f := appstore.ListFilter{
		Status: models.ApplicationStatus(query.Get(r, "status")),
	}
	if f.Status != "" && !models.ValidApplicationStatus(f.Status) {
		render.Error(w, h.Log, apperrors.Validation("unknown application status"))
		return
	}
	if v := query.Get(r, "taskId"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			render.Error(w, h.Log, apperrors.Validation("invalid taskId filter"))
			return
		}
		f.TaskID = id
	}
	if v := query.Get(r, "userId"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			render.Error(w, h.Log, apperrors.Validation("invalid userId filter"))
			return
		}
		f.UserID = id
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	apps, total, err := h.Apps.List(ctx, f, page, limit)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not list applications", err))
		return
	}
	render.JSON(w, http.StatusOK, paging.Envelope(apps, total, page, limit))
}

// GetApplication handles GET /admin/applications/{id}.
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	app, ok := h.loadApplication(ctx, w, r)
	if !ok {
		return
	}
	render.JSON(w, http.StatusOK, app)
}

// SetApplicationStatus handles PUT /admin/applications/{id}/status: the
// initial triage verdict on a pending application. Accepting assigns the
// task to the applicant and moves it in progress.
func (h *Handler) SetApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status   models.ApplicationStatus `json:"status"`
		Feedback string                   `json:"feedback"`
	}
	if err := render.DecodeBody(r, &req); err != nil {
		render.Error(w, h.Log, err)
		return
	}
	if req.Status != models.ApplicationAccepted && req.Status != models.ApplicationRejected {
		render.Error(w, h.Log, apperrors.Validation(`status must be "accepted" or "rejected"`))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	app, ok := h.loadApplication(ctx, w, r)
	if !ok {
		return
	}
	if !models.CanTransition(app.Status, req.Status) {
		render.Error(w, h.Log, apperrors.Conflict(
			fmt.Sprintf("cannot move application from %s to %s", app.Status, req.Status)))
		return
	}

	extra := bson.M{}
	if req.Feedback != "" {
		extra["feedback"] = req.Feedback
	}
	if err := h.Apps.SetStatusFrom(ctx, app.ID, app.Status, req.Status, extra); err != nil {
		if err == appstore.ErrStateChanged {
			render.Error(w, h.Log, apperrors.Conflict("application status changed, try again"))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not update application", err))
		return
	}

	if req.Status == models.ApplicationAccepted {
		if err := h.Tasks.Assign(ctx, app.TaskID, app.UserID); err != nil {
			h.Log.Warn("failed to assign task after acceptance",
				zap.String("task_id", app.TaskID.Hex()), zap.Error(err))
		}
	}

	h.Log.Info("application triaged",
		zap.String("application_id", app.ID.Hex()),
		zap.String("status", string(req.Status)))
	render.Success(w, http.StatusOK, "application "+string(req.Status), nil)
}

// Review handles POST /admin/applications/{id}/review: the verdict on
// submitted deliverables. Acceptance completes the application and the
// task and archives one record per delivered file; a revision request
// sends the work back to the applicant.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	admin, _ := gate.CurrentUser(r)

	var req struct {
		Outcome  string `json:"outcome"`
		Comments string `json:"comments"`
	}
	if err := render.DecodeBody(r, &req); err != nil {
		render.Error(w, h.Log, err)
		return
	}

	var newStatus models.ApplicationStatus
	switch req.Outcome {
	case "accepted":
		newStatus = models.ApplicationCompleted
	case "needs_revision":
		newStatus = models.ApplicationNeedsRevision
	default:
		render.Error(w, h.Log, apperrors.Validation(`outcome must be "accepted" or "needs_revision"`))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	app, ok := h.loadApplication(ctx, w, r)
	if !ok {
		return
	}
	if app.Status != models.ApplicationSubmitted {
		render.Error(w, h.Log, apperrors.Conflict("only submitted applications can be reviewed"))
		return
	}

	now := time.Now().UTC()
	review := models.AdminReview{
		ReviewerID: admin.ID,
		Outcome:    req.Outcome,
		Comments:   req.Comments,
		ReviewedAt: now,
	}
	var completedAt *time.Time
	if newStatus == models.ApplicationCompleted {
		completedAt = &now
	}

	if err := h.Apps.SetReview(ctx, app.ID, review, newStatus, completedAt); err != nil {
		if err == appstore.ErrStateChanged {
			render.Error(w, h.Log, apperrors.Conflict("application status changed, try again"))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not record review", err))
		return
	}

	if newStatus == models.ApplicationCompleted {
		h.archiveCompletion(ctx, app, now)
	}

	h.Log.Info("application reviewed",
		zap.String("application_id", app.ID.Hex()),
		zap.String("outcome", req.Outcome),
		zap.String("reviewer_id", admin.ID.Hex()))
	render.Success(w, http.StatusOK, "review recorded", map[string]any{
		"status": newStatus,
	})
}

// archiveCompletion closes out the task and writes one archival record
// per delivered file. Failures here are logged, not surfaced; the review
// verdict has already been committed.
func (h *Handler) archiveCompletion(ctx context.Context, app *models.TaskApplication, now time.Time) {
	task, err := h.Tasks.GetByID(ctx, app.TaskID)
	if err != nil {
		h.Log.Warn("failed to load task for completion archive",
			zap.String("task_id", app.TaskID.Hex()), zap.Error(err))
		return
	}
	if err := h.Tasks.SetStatus(ctx, task.ID, models.TaskCompleted); err != nil {
		h.Log.Warn("failed to complete task",
			zap.String("task_id", task.ID.Hex()), zap.Error(err))
	}

	records := make([]models.CompletedTask, 0, len(app.Submissions))
	for _, sub := range app.Submissions {
		records = append(records, models.CompletedTask{
			TaskID:        task.ID,
			ApplicationID: app.ID,
			UserID:        app.UserID,
			TaskTitle:     task.Title,
			Payout:        task.Payout,
			Filename:      sub.Filename,
			OriginalName:  sub.OriginalName,
			Path:          sub.Path,
			Size:          sub.Size,
			Mimetype:      sub.Mimetype,
			CompletedAt:   now,
		})
	}
	if err := h.Completed.CreateMany(ctx, records); err != nil {
		h.Log.Warn("failed to archive completed task records",
			zap.String("application_id", app.ID.Hex()), zap.Error(err))
	}
}

// DownloadSubmission handles
// GET /admin/applications/{id}/submissions/{submissionId}/download,
// streaming the stored file with its original name.
func (h *Handler) DownloadSubmission(w http.ResponseWriter, r *http.Request) {
	subID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "submissionId"))
	if err != nil {
		render.Error(w, h.Log, apperrors.Validation("invalid submission id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	app, ok := h.loadApplication(ctx, w, r)
	if !ok {
		return
	}

	for _, sub := range app.Submissions {
		if sub.ID == subID {
			w.Header().Set("Content-Disposition",
				fmt.Sprintf("attachment; filename=%q", sub.OriginalName))
			if sub.Mimetype != "" {
				w.Header().Set("Content-Type", sub.Mimetype)
			}
			http.ServeFile(w, r, h.Uploads.Abs(sub.Path))
			return
		}
	}
	render.Error(w, h.Log, apperrors.NotFound("submission not found"))
}

// loadApplication loads the {id} application, writing the error response
// itself and reporting ok=false on failure.
func (h *Handler) loadApplication(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.TaskApplication, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, h.Log, apperrors.Validation("invalid application id"))
		return nil, false
	}
	app, err := h.Apps.GetByID(ctx, id)
	if err != nil {
		if err == appstore.ErrNotFound {
			render.Error(w, h.Log, apperrors.NotFound("application not found"))
			return nil, false
		}
		render.Error(w, h.Log, apperrors.Storage("could not load application", err))
		return nil, false
	}
	return app, true
}
