package app

import (
	"github.com/go-chi/chi/v5"

	"prayer-tracker/internal/handler"
	"prayer-tracker/internal/shared/auth"
	"prayer-tracker/internal/shared/health"
	"prayer-tracker/internal/shared/middleware"
)

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(
	cfg *Config,
	timerHandler *handler.TimerHandler,
	sessionsHandler *handler.SessionsHandler,
	healthHandler *health.HealthHandler,
	rateLimiter *middleware.RateLimiter,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on all routes including /healthz)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(nil))
	r.Use(middleware.Recovery(nil))
	r.Use(middleware.SecurityHeadersMiddleware)

	// Health endpoint (no authentication required)
	r.Get("/healthz", healthHandler.Check)

	// API endpoints (require API key authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
		r.Use(auth.APIKeyMiddleware(cfg.APIKey))

		r.Route("/timer", func(r chi.Router) {
			r.Get("/", timerHandler.Status)
			r.Post("/start", timerHandler.Start)
			r.Post("/pause", timerHandler.Pause)
			r.Post("/reset", timerHandler.Reset)
			r.Post("/commit", timerHandler.Commit)
			r.Post("/resume", timerHandler.Resume)
		})

		r.Get("/sessions", sessionsHandler.List)
		r.Get("/sessions.csv", sessionsHandler.ExportCSV)
		r.Get("/sessions/{id}", sessionsHandler.Get)
		r.Delete("/sessions/{id}", sessionsHandler.Delete)

		r.Get("/stats", sessionsHandler.Stats)
	})

	return r
}
