package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/apperror"
	"github.com/hyperjump/vibematch/internal/config"
	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/storage"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// SeedResponse is the body of POST /api/products/seed.
type SeedResponse struct {
	Message  string   `json:"message"`
	Count    int      `json:"count"`
	Products []string `json:"products"`
}

// DeleteResponse is the body of DELETE /api/products/all.
type DeleteResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Products       int64           `json:"products"`
	QueryMetrics   int64           `json:"query_metrics"`
	DiskUsageBytes *int64          `json:"disk_usage_bytes,omitempty"`
	Config         StatusConfig    `json:"config"`
	Embedding      EmbeddingStatus `json:"embedding"`
}

// StatusConfig reports the store and search settings in effect.
type StatusConfig struct {
	StoreBackend  string `json:"store_backend"`
	DatabasePath  string `json:"database_path"`
	MaxCandidates int    `json:"max_candidates"`
}

// EmbeddingStatus reports the active embedding provider.
type EmbeddingStatus struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"message": APIName, "version": APIVersion})
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var input models.ProductInput
	if !s.decode(w, r, &input) {
		return
	}
	s.logger.Debug("create product request", zap.String("name", input.Name))
	product, err := s.indexer.IndexProduct(r.Context(), &input)
	if err != nil {
		s.fail(w, "create product failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, product)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.storage.ListProducts(r.Context(), s.config.Server.ListLimit)
	if err != nil {
		s.fail(w, "list products failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, products)
}

func (s *Server) handleDeleteAllProducts(w http.ResponseWriter, r *http.Request) {
	n, err := s.storage.DeleteAllProducts(r.Context())
	if err != nil {
		s.fail(w, "delete products failed", err)
		return
	}
	s.logger.Info("products deleted", zap.Int64("count", n))
	s.respondJSON(w, http.StatusOK, DeleteResponse{DeletedCount: n})
}

func (s *Server) handleSeedProducts(w http.ResponseWriter, r *http.Request) {
	names, err := s.indexer.Seed(r.Context())
	if err != nil {
		s.fail(w, "seed failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, SeedResponse{
		Message:  "Products seeded successfully",
		Count:    len(names),
		Products: names,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := models.NewVibeQuery("")
	if !s.decode(w, r, query) {
		return
	}
	s.logger.Debug("search request", zap.String("vibe", query.Vibe), zap.Int("limit", query.Limit), zap.Float64("threshold", query.Threshold))
	response, err := s.engine.Search(r.Context(), query)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.storage.ListQueryMetrics(r.Context(), s.config.Search.MetricsLimit)
	if err != nil {
		s.fail(w, "list metrics failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := BuildStatus(r.Context(), s.storage, s.embedder, s.config, s.logger)
	if err != nil {
		s.fail(w, "status failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// BuildStatus collects counts, disk usage and embedding settings. embedder may be
// nil, in which case the model and dimensions come from cfg.
func BuildStatus(ctx context.Context, store storage.Storage, embedder embedding.Embedder, cfg *config.Config, logger *zap.Logger) (*StatusResponse, error) {
	products, err := store.CountProducts(ctx)
	if err != nil {
		return nil, err
	}
	metrics, err := store.CountQueryMetrics(ctx)
	if err != nil {
		return nil, err
	}
	resp := &StatusResponse{
		Products:     products,
		QueryMetrics: metrics,
		Config: StatusConfig{
			StoreBackend:  cfg.Storage.Backend,
			DatabasePath:  cfg.Storage.DatabasePath,
			MaxCandidates: cfg.Search.MaxCandidates,
		},
		Embedding: EmbeddingStatus{
			Provider:   cfg.Embedding.Provider,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		},
	}
	if embedder != nil {
		resp.Embedding.Model = embedder.ModelName()
		resp.Embedding.Dimensions = embedder.Dimensions()
	} else if resp.Embedding.Dimensions == 0 {
		resp.Embedding.Dimensions = embedding.ModelDimensions(cfg.Embedding.Model)
	}
	if n, err := storage.DiskUsage(cfg.Storage.Backend, cfg.Storage.DatabasePath); err == nil {
		resp.DiskUsageBytes = &n
	} else if logger != nil {
		logger.Warn("status: disk usage failed", zap.Error(err))
	}
	return resp, nil
}

// decode reads a JSON body into v. On failure it writes a 400 and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}
	msg := "invalid request body"
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		msg = "request body is empty"
	case errors.As(err, &typeErr):
		msg = fmt.Sprintf("invalid request body: %s must be %s", typeErr.Field, typeErr.Type)
	}
	s.respondError(w, http.StatusBadRequest, msg)
	return false
}

// fail logs err and writes it with the status for its kind.
func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err), zap.String("kind", string(apperror.KindOf(err))))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(err error) int {
	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		return http.StatusUnprocessableEntity
	case apperror.KindEmbedding:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"detail": message})
}
