// Package server provides the HTTP API for kotaeru.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mkondo/kotaeru/internal/chat"
	"github.com/mkondo/kotaeru/internal/config"
	"github.com/mkondo/kotaeru/internal/ingest"
	"github.com/mkondo/kotaeru/internal/keyword"
	"github.com/mkondo/kotaeru/internal/storage"
	"go.uber.org/zap"
)

// Server is the HTTP server for the kotaeru API.
type Server struct {
	chat     *chat.Service
	pipeline *ingest.Pipeline
	queue    *ingest.Queue
	storage  storage.Storage
	files    *storage.FileStore
	keyword  keyword.KeywordIndex
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. keywordIndex may be
// nil; the search endpoint then reports it as unavailable.
func NewServer(
	chatSvc *chat.Service,
	pipeline *ingest.Pipeline,
	queue *ingest.Queue,
	store storage.Storage,
	files *storage.FileStore,
	keywordIndex keyword.KeywordIndex,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		chat:     chatSvc,
		pipeline: pipeline,
		queue:    queue,
		storage:  store,
		files:    files,
		keyword:  keywordIndex,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/chat", s.handleChat)
	r.Post("/api/v1/documents", s.handleUploadDocuments)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
