// internal/app/features/profile/routes.go
package profile

import (
	"github.com/go-chi/chi/v5"

	gate "github.com/taskforge/taskforge/internal/app/system/auth"
)

// Routes returns a subrouter for self-service profile management.
// Mounted under /profile; every route requires authentication.
func Routes(h *Handler, g *gate.Gate) chi.Router {
	r := chi.NewRouter()
	r.Use(g.RequireAuth)

	r.Get("/", h.Get)
	r.Put("/", h.Update)
	r.Put("/password", h.Password)
	r.Post("/image", h.Image)

	return r
}
