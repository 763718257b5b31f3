package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/reefwatch/sharkmark/internal/web/handlers"
	"github.com/reefwatch/sharkmark/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.Server.APIToken))

		// Photos
		r.Get("/photos/validation-queue", s.photosHandler.ValidationQueue)
		r.Get("/photos/validation-queue/count", s.photosHandler.QueueCount)
		r.Get("/photos/{id}", s.photosHandler.Get)
		r.Post("/photos/{id}/annotate", s.photosHandler.Annotate)
		r.Post("/photos/{id}/validate", s.photosHandler.Validate)
		r.Get("/photos/{id}/crop", s.photosHandler.Crop)
		r.Delete("/photos/{id}", s.photosHandler.Delete)

		// Sharks
		r.Get("/sharks", s.sharksHandler.List)
		r.Post("/sharks", s.sharksHandler.Create)
		r.Post("/sharks/suggest-name", s.sharksHandler.SuggestName)
	})
}
