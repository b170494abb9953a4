package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/cipherdrop/pkg/api/auth"
	"github.com/marmos91/cipherdrop/pkg/state"
)

// NewRouter creates the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /healthz - liveness probe, unauthenticated
//   - GET /api/v1/clients - registered clients (bearer token)
//   - GET /api/v1/files - transferred files (bearer token)
//   - GET /api/v1/stats - registry counters (bearer token)
func NewRouter(registry *state.Registry, jwtService *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	admin := NewAdminHandler(registry)

	r.Get("/healthz", admin.Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(JWTAuth(jwtService))
		r.Get("/clients", admin.Clients)
		r.Get("/files", admin.Files)
		r.Get("/stats", admin.Stats)
	})

	// Root redirect to the health endpoint for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/healthz", http.StatusTemporaryRedirect)
	})

	return r
}
