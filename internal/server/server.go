// Package server provides the HTTP API for Vibe Matcher.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/config"
	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/indexer"
	"github.com/hyperjump/vibematch/internal/search"
	"github.com/hyperjump/vibematch/internal/storage"
	"github.com/hyperjump/vibematch/pkg/utils"
)

const (
	APIName    = "Vibe Matcher API"
	APIVersion = "1.0.0"
)

// Server is the HTTP server for the Vibe Matcher API.
type Server struct {
	engine   *search.Engine
	indexer  *indexer.Indexer
	storage  storage.Storage
	embedder embedding.Embedder
	config   *config.Config
	logger   *zap.Logger

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	storage storage.Storage,
	embedder embedding.Embedder,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:   engine,
		indexer:  idx,
		storage:  storage,
		embedder: embedder,
		config:   cfg,
		logger:   utils.OrNop(logger),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.handleRoot)
		r.Post("/products", s.handleCreateProduct)
		r.Get("/products", s.handleListProducts)
		r.Delete("/products/all", s.handleDeleteAllProducts)
		r.Post("/products/seed", s.handleSeedProducts)
		r.Post("/search", s.handleSearch)
		r.Get("/metrics", s.handleListMetrics)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()
	s.logger.Info("Starting server", zap.String("addr", addr))
	return srv.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// requestLogger logs one line per request with zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
