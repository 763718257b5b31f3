// Package web wires the HTTP API of the sharkmark server.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/reefwatch/sharkmark/internal/config"
	"github.com/reefwatch/sharkmark/internal/database"
	"github.com/reefwatch/sharkmark/internal/naming"
	"github.com/reefwatch/sharkmark/internal/storage"
	"github.com/reefwatch/sharkmark/internal/web/handlers"
	"github.com/reefwatch/sharkmark/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server

	photosHandler *handlers.PhotosHandler
	sharksHandler *handlers.SharksHandler
}

// NewServer creates a new web server
func NewServer(
	cfg *config.Config,
	photos database.PhotoRepository,
	sharks database.SharkRepository,
	embeddings database.EmbeddingRepository,
	mlClient handlers.Embedder,
	store storage.Store,
	suggester *naming.Suggester,
) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:        cfg,
		router:        r,
		photosHandler: handlers.NewPhotosHandler(photos, sharks, embeddings, mlClient, store, cfg.Classify.ScoreThreshold),
		sharksHandler: handlers.NewSharksHandler(sharks, suggester),
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))
	r.Use(middleware.CORS())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // crop rendering can be slow on large photos
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
