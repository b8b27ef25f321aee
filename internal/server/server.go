package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/echowall/echowall/internal/config"
	apperrors "github.com/echowall/echowall/internal/errors"
	"github.com/echowall/echowall/internal/observability"
	"github.com/echowall/echowall/internal/server/handlers"
	servermw "github.com/echowall/echowall/internal/server/middleware"
)

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	cors   []string
}

// New creates a new HTTP server instance
func New(cfg *config.Config) *Server {
	r := chi.NewRouter()

	// Custom middleware in order: RequestID → Metrics → Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	// Standardized error responses using the centralized responder
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFound("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		err := &apperrors.AppError{
			Code:    "METHOD_NOT_ALLOWED",
			Status:  http.StatusMethodNotAllowed,
			Message: "The requested method is not allowed for this resource",
		}
		HandleError(w, req, err)
	})

	s := &Server{
		router: r,
		cfg:    cfg.Server,
		cors:   cfg.Notes.CORSOrigins,
	}

	// Ensure handlers use the centralized error responder
	handlers.SetHTTPErrorResponder(HandleError)

	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  orDuration(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: orDuration(s.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDuration(s.cfg.IdleTimeout, 120*time.Second),
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.cfg.Host),
			zap.Int("port", s.cfg.Port),
			zap.String("addr", addr))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured server port
func (s *Server) Port() int {
	return s.cfg.Port
}

// corsMiddleware configures CORS for the /api subtree: configured
// origins, GET/POST/OPTIONS, one-hour preflight cache.
func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	origins := s.cors
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         3600,
	})
}

func orDuration(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
