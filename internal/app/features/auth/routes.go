// internal/app/features/auth/routes.go
package auth

import (
	"github.com/go-chi/chi/v5"

	gate "github.com/taskforge/taskforge/internal/app/system/auth"
)

// Routes returns a subrouter serving the auth endpoints. Mounted under
// /auth.
func Routes(h *Handler, g *gate.Gate) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/forgot-password", h.ForgotPassword)

	r.Group(func(r chi.Router) {
		r.Use(g.RequireAuth)
		r.Post("/logout", h.Logout)
		r.Get("/sessions", h.ListSessions)
		r.Delete("/sessions", h.LogoutAll)
		r.Delete("/sessions/{id}", h.LogoutByID)
	})

	return r
}
