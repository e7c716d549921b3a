// Package search provides the vibe search engine.
package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/apperror"
	"github.com/hyperjump/vibematch/internal/config"
	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/storage"
	"github.com/hyperjump/vibematch/pkg/utils"
)

// Engine runs vibe searches: embed the query, score stored products, record a metric.
type Engine struct {
	storage  storage.Storage
	embedder embedding.Embedder
	config   *config.SearchConfig
	logger   *zap.Logger
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	storage storage.Storage,
	embedder embedding.Embedder,
	cfg *config.SearchConfig,
	logger *zap.Logger,
) *Engine {
	if cfg == nil {
		cfg = &config.SearchConfig{}
	}
	return &Engine{
		storage:  storage,
		embedder: embedder,
		config:   cfg,
		logger:   utils.OrNop(logger),
	}
}

// Search ranks stored products against the query's vibe and records one QueryMetric.
// An embedding or ranking failure records nothing.
func (e *Engine) Search(ctx context.Context, query *models.VibeQuery) (*models.SearchResponse, error) {
	if err := ProcessQuery(query); err != nil {
		return nil, err
	}
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	queryEmbedding, err := e.embedder.Embed(ctx, query.Vibe)
	if err != nil {
		if apperror.KindOf(err) != apperror.KindEmbedding {
			err = apperror.Embedding("Engine.Search", err)
		}
		return nil, err
	}

	products, err := e.storage.ListProducts(ctx, e.config.MaxCandidates)
	if err != nil {
		return nil, err
	}

	var results []*models.SearchResult
	message := MessageNoProducts
	if len(products) > 0 {
		results, err = Rank(queryEmbedding, products, query.Threshold, query.Limit)
		if err != nil {
			return nil, err
		}
		message = QualityMessage(results)
	} else {
		results = []*models.SearchResult{}
	}

	var topScore *float64
	if len(results) > 0 {
		top := results[0].SimilarityScore
		topScore = &top
	}
	latency := utils.Round(float64(time.Since(startTime).Microseconds())/1000, 2)

	metric := &models.QueryMetric{
		Query:        query.Vibe,
		ResultsCount: len(results),
		LatencyMS:    latency,
		TopScore:     topScore,
		Timestamp:    time.Now().UTC(),
	}
	if err := e.storage.CreateQueryMetric(ctx, metric); err != nil {
		if apperror.KindOf(err) != apperror.KindStore {
			err = apperror.Store("Engine.Search", err)
		}
		return nil, err
	}

	e.logger.Debug("vibe search",
		zap.String("vibe", query.Vibe),
		zap.Int("candidates", len(products)),
		zap.Int("results", len(results)),
		zap.Float64("latency_ms", latency),
	)

	return &models.SearchResponse{
		Results: results,
		Metrics: models.SearchMetrics{
			Query:         query.Vibe,
			ResultsCount:  len(results),
			LatencyMS:     latency,
			TopScore:      topScore,
			ThresholdUsed: query.Threshold,
			Message:       message,
		},
	}, nil
}
