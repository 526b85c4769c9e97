// Package server exposes the query pipeline over HTTP: a request/response
// chat endpoint, an SSE streaming variant that emits phase progress, and a
// cache invalidation hook for the admin layer.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jsperson/chathero/pkg/dataset"
	"github.com/jsperson/chathero/pkg/pipeline"
)

// Server wires the pipeline and dataset store to HTTP handlers.
type Server struct {
	log      *slog.Logger
	store    *dataset.Store
	pipeline *pipeline.Pipeline
}

// New creates a Server.
func New(log *slog.Logger, store *dataset.Store, p *pipeline.Pipeline) *Server {
	return &Server{log: log, store: store, pipeline: p}
}

// Router builds the chi router with standard middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Post("/api/chat", s.Chat)
	r.Post("/api/chat/stream", s.ChatStream)
	r.Post("/api/admin/invalidate", s.Invalidate)
	r.Get("/api/health", s.Health)

	return r
}

// Health is a liveness probe.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
