// internal/app/features/tasks/routes.go
package tasks

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving the public task catalog. Mounted
// under /tasks. The fixed paths come before {id} so "categories" is never
// parsed as a task id.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/categories", h.Categories)
	r.Get("/difficulties", h.Difficulties)
	r.Get("/stats", h.Stats)
	r.Get("/price-range", h.PriceRange)
	r.Get("/search", h.Search)
	r.Get("/{id}", h.Get)

	return r
}
