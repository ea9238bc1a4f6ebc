// Package applications implements the applicant side of the marketplace:
// applying to tasks, tracking progress, uploading deliverables, and
// withdrawing. Admin review lives in the admin feature.
package applications

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	appstore "github.com/taskforge/taskforge/internal/app/store/applications"
	taskstore "github.com/taskforge/taskforge/internal/app/store/tasks"
	"github.com/taskforge/taskforge/internal/app/system/apperrors"
	gate "github.com/taskforge/taskforge/internal/app/system/auth"
	"github.com/taskforge/taskforge/internal/app/system/authz"
	"github.com/taskforge/taskforge/internal/app/system/render"
	"github.com/taskforge/taskforge/internal/app/system/timeouts"
	"github.com/taskforge/taskforge/internal/app/system/uploads"
	"github.com/taskforge/taskforge/internal/domain/models"
)

// Handler holds the applications feature's dependencies.
type Handler struct {
	Apps    *appstore.Store
	Tasks   *taskstore.Store
	Uploads *uploads.Saver
	Log     *zap.Logger
}

// Apply handles POST /applications/apply/{taskId}.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	user, _ := gate.CurrentUser(r)

	taskID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "taskId"))
	if err != nil {
		render.Error(w, h.Log, apperrors.Validation("invalid task id"))
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	// The message body is optional.
	if r.Body != nil && r.ContentLength != 0 {
		if err := render.DecodeBody(r, &req); err != nil {
			render.Error(w, h.Log, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	task, err := h.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if err == taskstore.ErrNotFound {
			render.Error(w, h.Log, apperrors.NotFound("task not found"))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not load task", err))
		return
	}
	if task.Status != models.TaskOpen {
		render.Error(w, h.Log, apperrors.Conflict("task is not open for applications"))
		return
	}
	if task.ClientID == user.ID {
		render.Error(w, h.Log, apperrors.Validation("you cannot apply to your own task"))
		return
	}

	app, err := h.Apps.Create(ctx, models.TaskApplication{
		UserID:  user.ID,
		TaskID:  taskID,
		Status:  models.ApplicationPending,
		Message: req.Message,
	})
	if err != nil {
		if err == appstore.ErrDuplicate {
			render.Error(w, h.Log, apperrors.Conflict("you have already applied to this task"))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not create application", err))
		return
	}

	if err := h.Tasks.AddApplicant(ctx, taskID, user.ID); err != nil {
		h.Log.Warn("failed to record applicant on task",
			zap.String("task_id", taskID.Hex()), zap.Error(err))
	}

	h.Log.Info("application created",
		zap.String("application_id", app.ID.Hex()),
		zap.String("task_id", taskID.Hex()),
		zap.String("user_id", user.ID.Hex()))
	render.Success(w, http.StatusCreated, "application submitted", app)
}

// My handles GET /applications/my.
func (h *Handler) My(w http.ResponseWriter, r *http.Request) {
	user, _ := gate.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	apps, err := h.Apps.ListByUser(ctx, user.ID)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not list applications", err))
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"applications": apps, "count": len(apps)})
}

// MyStats handles GET /applications/my/stats.
func (h *Handler) MyStats(w http.ResponseWriter, r *http.Request) {
	user, _ := gate.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	counts, err := h.Apps.CountByStatusForUser(ctx, user.ID)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not compute stats", err))
		return
	}

	var total int64
	byStatus := map[string]int64{}
	for status, n := range counts {
		byStatus[string(status)] = n
		total += n
	}
	render.JSON(w, http.StatusOK, map[string]any{"total": total, "by_status": byStatus})
}

// Get handles GET /applications/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	app, ok := h.loadOwned(ctx, w, r)
	if !ok {
		return
	}
	render.JSON(w, http.StatusOK, app)
}

// UpdateProgress handles PUT /applications/{id}/progress. Progress is a
// self-reported percentage, independent of status.
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Progress *int `json:"progress"`
	}
	if err := render.DecodeBody(r, &req); err != nil {
		render.Error(w, h.Log, err)
		return
	}
	if req.Progress == nil || *req.Progress < 0 || *req.Progress > 100 {
		render.Error(w, h.Log, apperrors.Validation("progress must be between 0 and 100"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	app, ok := h.loadOwned(ctx, w, r)
	if !ok {
		return
	}

	if err := h.Apps.SetProgress(ctx, app.ID, *req.Progress); err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not update progress", err))
		return
	}
	render.Success(w, http.StatusOK, "progress updated", map[string]int{"progress": *req.Progress})
}

// Withdraw handles DELETE /applications/{id}/withdraw. Only pending and
// accepted applications can be withdrawn; a second withdraw fails because
// cancelled admits no transitions.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user, _ := gate.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	app, ok := h.loadOwned(ctx, w, r)
	if !ok {
		return
	}
	if !app.Status.CanWithdraw() {
		render.Error(w, h.Log, apperrors.Conflict("application can no longer be withdrawn"))
		return
	}

	if err := h.Apps.SetStatusFrom(ctx, app.ID, app.Status, models.ApplicationCancelled, nil); err != nil {
		if err == appstore.ErrStateChanged {
			render.Error(w, h.Log, apperrors.Conflict("application status changed, try again"))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not withdraw application", err))
		return
	}
	if err := h.Tasks.RemoveApplicant(ctx, app.TaskID, user.ID); err != nil {
		h.Log.Warn("failed to remove applicant from task",
			zap.String("task_id", app.TaskID.Hex()), zap.Error(err))
	}

	render.Success(w, http.StatusOK, "application withdrawn", nil)
}

// Submit handles POST /applications/{id}/submit: multipart deliverable
// upload. Files are accepted only in accepted or needs_revision; the
// transition to submitted happens only from accepted — a resubmission
// after revision keeps needs_revision until the next review.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	app, ok := h.loadOwned(ctx, w, r)
	if !ok {
		return
	}
	if !app.Status.CanSubmitFiles() {
		render.Error(w, h.Log, apperrors.Validation("files can only be submitted after acceptance or when revision is requested"))
		return
	}

	// One extra MB of headroom for multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxSubmissionFiles*uploads.MaxSubmissionFileSize+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		render.Error(w, h.Log, apperrors.Validation("invalid multipart upload"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		render.Error(w, h.Log, apperrors.Validation("at least one file is required"))
		return
	}
	if len(files) > uploads.MaxSubmissionFiles {
		render.Error(w, h.Log, apperrors.Validation("at most 5 files per submission"))
		return
	}
	for _, fh := range files {
		if err := uploads.ValidateSubmission(fh); err != nil {
			render.Error(w, h.Log, err)
			return
		}
	}

	// Write all files before touching the database; roll back written
	// files if any later step fails.
	now := time.Now().UTC()
	var saved []uploads.Saved
	rollback := func() {
		for _, sv := range saved {
			if err := h.Uploads.Remove(sv.Path); err != nil {
				h.Log.Warn("failed to remove uploaded file during rollback",
					zap.String("path", sv.Path), zap.Error(err))
			}
		}
	}
	for _, fh := range files {
		sv, err := h.Uploads.Save(fh, "submissions")
		if err != nil {
			rollback()
			render.Error(w, h.Log, err)
			return
		}
		saved = append(saved, sv)
	}

	subs := make([]models.Submission, 0, len(saved))
	for _, sv := range saved {
		subs = append(subs, models.Submission{
			ID:           primitive.NewObjectID(),
			Filename:     sv.StoredName,
			OriginalName: sv.OriginalName,
			Path:         sv.Path,
			Size:         sv.Size,
			Mimetype:     sv.Mimetype,
			UploadedAt:   now,
		})
	}

	newStatus := app.Status
	if app.Status == models.ApplicationAccepted {
		newStatus = models.ApplicationSubmitted
	}
	progress := app.Progress
	if progress == 0 {
		progress = 25
	}

	if err := h.Apps.AppendSubmissions(ctx, app.ID, app.Status, newStatus, subs, progress, now); err != nil {
		rollback()
		if err == appstore.ErrStateChanged {
			render.Error(w, h.Log, apperrors.Conflict("application status changed, try again"))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not record submission", err))
		return
	}

	h.Log.Info("deliverables submitted",
		zap.String("application_id", app.ID.Hex()),
		zap.Int("files", len(subs)),
		zap.String("status", string(newStatus)))
	render.Success(w, http.StatusCreated, "files submitted", map[string]any{
		"submissions": subs,
		"status":      newStatus,
	})
}

// DeleteSubmission handles DELETE /applications/{id}/submissions/{submissionId}.
func (h *Handler) DeleteSubmission(w http.ResponseWriter, r *http.Request) {
	subID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "submissionId"))
	if err != nil {
		render.Error(w, h.Log, apperrors.Validation("invalid submission id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	app, ok := h.loadOwned(ctx, w, r)
	if !ok {
		return
	}
	if app.Status.Terminal() {
		render.Error(w, h.Log, apperrors.Conflict("submissions of a closed application cannot be changed"))
		return
	}

	var target *models.Submission
	for i := range app.Submissions {
		if app.Submissions[i].ID == subID {
			target = &app.Submissions[i]
			break
		}
	}
	if target == nil {
		render.Error(w, h.Log, apperrors.NotFound("submission not found"))
		return
	}

	if err := h.Apps.RemoveSubmission(ctx, app.ID, subID); err != nil {
		if err == appstore.ErrNotFound {
			render.Error(w, h.Log, apperrors.NotFound("submission not found"))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not delete submission", err))
		return
	}
	if err := h.Uploads.Remove(target.Path); err != nil {
		h.Log.Warn("failed to remove submission file",
			zap.String("path", target.Path), zap.Error(err))
	}

	render.Success(w, http.StatusOK, "submission deleted", nil)
}

// loadOwned loads the {id} application and enforces ownership (admins
// pass). Writes the error response itself and reports ok=false.
func (h *Handler) loadOwned(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.TaskApplication, bool) {
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
	if !authz.OwnsApplication(r, app) {
		render.Error(w, h.Log, apperrors.Authorization("you do not have access to this application"))
		return nil, false
	}
	return app, true
}
