package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/abbaskhalil042/smart-talk/internal/api/middleware"
	"github.com/abbaskhalil042/smart-talk/internal/handlers"
	"github.com/abbaskhalil042/smart-talk/internal/ws"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, authmw *middleware.AuthMiddleware, socket *ws.Server) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(1 << 20)) // 1MB max body: file trees are larger than chat events
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - allow all origins (browser clients connect from anywhere)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	// The websocket handshake carries its own credential; the connection
	// authenticator rejects before the upgrade, so no HTTP middleware auth.
	r.Get("/ws", socket.HandleConnect)

	// Authenticated routes (require bearer token)
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth)

		r.Post("/projects", h.CreateProject)
		r.Get("/projects", h.ListProjects)
		r.Put("/projects/add-user", h.AddUsers)
		r.Put("/projects/file-tree", h.UpdateFileTree)
		r.Get("/projects/{projectId}", h.GetProject)
		r.Get("/projects/{projectId}/messages", h.GetMessages)
		r.Get("/projects/{projectId}/online", h.GetOnlineUsers)

		r.Get("/ai/result", h.GetCompletion)
	})

	return r
}
