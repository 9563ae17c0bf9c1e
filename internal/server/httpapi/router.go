package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/picsync/internal/logging"
)

// NewRouter wires middleware and routes. All routes are versioned under
// /api/v1/.
func NewRouter(h *Handler, secretKey []byte, logger logging.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(Recovery(logger))
	r.Use(Logger(logger))

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Get("/ping", h.Ping)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		// Protected endpoints
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(secretKey))

			r.Post("/assets/exists", h.Exists)
			r.Post("/assets", h.Upload)
		})
	})

	return r
}
