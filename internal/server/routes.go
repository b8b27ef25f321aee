package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/echowall/echowall/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	// Standard health endpoints
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	// Public note API
	s.router.Route("/api", func(api chi.Router) {
		api.Use(s.corsMiddleware())
		api.Route("/v1/notes", func(notes chi.Router) {
			notes.Get("/", handlers.ListNotesHandler)
			notes.Post("/", handlers.CreateNoteHandler)
			notes.Get("/{id}", handlers.GetNoteHandler)
		})
	})
}
