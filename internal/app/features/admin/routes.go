// internal/app/features/admin/routes.go
package admin

import (
	"github.com/go-chi/chi/v5"

	gate "github.com/taskforge/taskforge/internal/app/system/auth"
)

// Routes returns the admin subrouter. Mounted under /admin; every route
// requires an authenticated admin.
func Routes(h *Handler, g *gate.Gate) chi.Router {
	r := chi.NewRouter()
	r.Use(g.RequireAuth, gate.RequireAdmin)

	r.Get("/stats", h.Stats)

	r.Get("/users", h.ListUsers)
	r.Get("/users/{id}", h.GetUser)
	r.Put("/users/{id}", h.UpdateUser)
	r.Delete("/users/{id}", h.DeleteUser)

	r.Post("/tasks", h.CreateTask)
	r.Put("/tasks/{id}", h.UpdateTask)
	r.Delete("/tasks/{id}", h.DeleteTask)

	r.Get("/applications", h.ListApplications)
	r.Get("/applications/{id}", h.GetApplication)
	r.Put("/applications/{id}/status", h.SetApplicationStatus)
	r.Post("/applications/{id}/review", h.Review)
	r.Get("/applications/{id}/submissions/{submissionId}/download", h.DownloadSubmission)

	return r
}
