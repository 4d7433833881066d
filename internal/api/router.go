package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/station", func(r chi.Router) {
			r.Get("/snapshot", s.handleLiveSnapshot)
			r.Route("/snapshots", func(r chi.Router) {
				r.Post("/", s.handleTakeSnapshot)
				r.Get("/", s.handleListSnapshots)
				r.Get("/{id}", s.handleGetSnapshot)
			})
		})

		r.Get("/components", s.handleListComponents)

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", s.handleListResources)
			r.Post("/{address}/query", s.handleResourceQuery)
			r.Post("/{address}/source", s.handleSourceParameter)
			r.Post("/{address}/acquire", s.handleAcquisition)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"station": s.station.Name(),
		"version": s.version,
	})
}
