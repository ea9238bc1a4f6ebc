// internal/app/features/admin/stats.go
package admin

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/taskforge/taskforge/internal/app/system/apperrors"
	"github.com/taskforge/taskforge/internal/app/system/render"
	"github.com/taskforge/taskforge/internal/app/system/timeouts"
	"github.com/taskforge/taskforge/internal/domain/models"
)

// Stats handles GET /admin/stats: a platform-wide dashboard snapshot.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	usersByRole, err := h.Users.CountByRole(ctx)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not count users", err))
		return
	}
	var totalUsers int64
	for _, n := range usersByRole {
		totalUsers += n
	}

	taskStats, err := h.Tasks.GetStats(ctx)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not compute task stats", err))
		return
	}

	totalApps, err := h.Apps.Count(ctx, "")
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not count applications", err))
		return
	}
	pendingApps, err := h.Apps.Count(ctx, models.ApplicationPending)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not count pending applications", err))
		return
	}
	submittedApps, err := h.Apps.Count(ctx, models.ApplicationSubmitted)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not count submitted applications", err))
		return
	}

	completedCount, err := h.Completed.Count(ctx)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not count completions", err))
		return
	}
	totalPayout, err := h.Completed.TotalPayout(ctx)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not sum payouts", err))
		return
	}

	activeSessions, err := h.Sessions.CountActive(ctx, time.Now())
	if err != nil {
		h.Log.Warn("could not count active sessions", zap.Error(err))
	}

	render.JSON(w, http.StatusOK, map[string]any{
		"users": map[string]any{
			"total":   totalUsers,
			"by_role": usersByRole,
		},
		"tasks": taskStats,
		"applications": map[string]any{
			"total":            totalApps,
			"pending_triage":   pendingApps,
			"awaiting_review":  submittedApps,
		},
		"completed": map[string]any{
			"records":      completedCount,
			"total_payout": totalPayout,
		},
		"active_sessions": activeSessions,
	})
}
