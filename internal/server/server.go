// Package server provides the HTTP API for medrag.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/medrag/internal/config"
	"github.com/hyperjump/medrag/internal/models"
	"github.com/hyperjump/medrag/internal/pipeline"
	"github.com/hyperjump/medrag/internal/vector"
	"go.uber.org/zap"
)

// Answerer answers questions and serves the chat history.
type Answerer interface {
	Ask(ctx context.Context, question string, k int) (*pipeline.Response, error)
	History(ctx context.Context) []models.HistoryItem
	ClearHistory(ctx context.Context) error
}

// Diagnostics reports retrieval state for the status endpoint.
type Diagnostics interface {
	ServingModel() string
	DroppedTotal() int64
}

// Server is the HTTP server for the medrag API.
type Server struct {
	answerer    Answerer
	diagnostics Diagnostics
	store       vector.Store
	config      *config.Config
	logger      *zap.Logger
	server      *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	answerer Answerer,
	diagnostics Diagnostics,
	store vector.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		answerer:    answerer,
		diagnostics: diagnostics,
		store:       store,
		config:      cfg,
		logger:      logger,
	}
}

// Router returns the API routes with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Get("/api/v1/history", s.handleHistory)
	r.Delete("/api/v1/history", s.handleClearHistory)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
