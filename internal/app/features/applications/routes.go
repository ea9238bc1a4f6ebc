// internal/app/features/applications/routes.go
package applications

import (
	"github.com/go-chi/chi/v5"

	gate "github.com/taskforge/taskforge/internal/app/system/auth"
)

// Routes returns a subrouter serving the applicant endpoints. Mounted
// under /applications; every route requires authentication.
func Routes(h *Handler, g *gate.Gate) chi.Router {
	r := chi.NewRouter()
	r.Use(g.RequireAuth)

	r.Post("/apply/{taskId}", h.Apply)
	r.Get("/my", h.My)
	r.Get("/my/stats", h.MyStats)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/progress", h.UpdateProgress)
	r.Delete("/{id}/withdraw", h.Withdraw)
	r.Post("/{id}/submit", h.Submit)
	r.Delete("/{id}/submissions/{submissionId}", h.DeleteSubmission)

	return r
}
