// Package httpapi exposes the ingestion and chat services over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/documind/internal/core/ports/driven"
	"github.com/custodia-labs/documind/internal/core/ports/driving"
	"github.com/custodia-labs/documind/internal/logger"
)

// Default server timeouts.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultChatTimeout     = 30 * time.Second
	DefaultHealthTimeout   = 5 * time.Second
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// healthTarget is one named collaborator checked by the health endpoint.
type healthTarget struct {
	name   string
	pinger Pinger
}

// Server serves the document and chat API.
type Server struct {
	ingestion driving.IngestionService
	chat      driving.ChatService
	blobs     driven.BlobStore

	router *gin.Engine
	server *http.Server

	maxUploadSize int64
	health        []healthTarget
}

// Option configures the server.
type Option func(*Server)

// WithMaxUploadSize caps the accepted request body for uploads, in bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// WithHealthCheck registers a named collaborator for the health endpoint.
func WithHealthCheck(name string, p Pinger) Option {
	return func(s *Server) {
		s.health = append(s.health, healthTarget{name: name, pinger: p})
	}
}

// New creates the API server.
func New(ingestion driving.IngestionService, chat driving.ChatService, blobs driven.BlobStore, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		ingestion:     ingestion,
		chat:          chat,
		blobs:         blobs,
		router:        gin.New(),
		maxUploadSize: 50 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Router returns the underlying handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures the middleware chain.
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger())
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.POST("/upload", s.handleUpload)
	api.GET("/documents", s.handleListDocuments)
	api.GET("/documents/:id/status", s.handleStatus)
	api.DELETE("/documents/:id", s.handleDelete)
	api.GET("/files/:id", s.handleFile)
	api.POST("/chat", s.handleChat)
	api.POST("/search", s.handleSearch)
}

// Start runs the HTTP server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	logger.Info("shutting down http server")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// requestLogger logs each request with method, path, status and latency.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
