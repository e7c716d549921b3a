// Package indexer embeds product input and stores it as searchable products.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/apperror"
	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/storage"
	"github.com/hyperjump/vibematch/pkg/utils"
)

// Indexer creates products: validate, embed, store.
type Indexer struct {
	storage  storage.Storage
	embedder embedding.Embedder
	logger   *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = utils.OrNop(l) }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(storage storage.Storage, embedder embedding.Embedder, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		storage:  storage,
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexProduct validates input, embeds its combined text and stores the product.
// Nothing is stored when embedding fails.
func (idx *Indexer) IndexProduct(ctx context.Context, input *models.ProductInput) (*models.Product, error) {
	if input == nil {
		return nil, apperror.Validation("product input is required")
	}
	PreprocessInput(input)
	if err := input.Validate(); err != nil {
		return nil, err
	}

	emb, err := idx.embedder.Embed(ctx, input.EmbeddingText())
	if err != nil {
		if apperror.KindOf(err) != apperror.KindEmbedding {
			err = apperror.Embedding("Indexer.IndexProduct", err)
		}
		return nil, err
	}

	p := &models.Product{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		VibeTags:    input.VibeTags,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		Embedding:   emb,
		CreatedAt:   time.Now().UTC(),
	}
	if err := idx.storage.CreateProduct(ctx, p); err != nil {
		if apperror.KindOf(err) != apperror.KindStore {
			err = apperror.Store("Indexer.IndexProduct", err)
		}
		return nil, err
	}
	idx.logger.Debug("product indexed", zap.String("id", p.ID), zap.String("name", p.Name), zap.Int("dimensions", len(emb)))
	return p, nil
}

// Seed indexes the sample catalog one product at a time and returns the names
// stored. It stops at the first failure; products stored before it remain.
func (idx *Indexer) Seed(ctx context.Context) ([]string, error) {
	return idx.IndexAll(ctx, SampleProducts())
}

// IndexAll indexes inputs in order and returns the names stored before any failure.
func (idx *Indexer) IndexAll(ctx context.Context, inputs []models.ProductInput) ([]string, error) {
	names := make([]string, 0, len(inputs))
	for i := range inputs {
		p, err := idx.IndexProduct(ctx, &inputs[i])
		if err != nil {
			idx.logger.Warn("indexing stopped", zap.Int("stored", len(names)), zap.Error(err))
			return names, fmt.Errorf("product %d (%s): %w", i+1, inputs[i].Name, err)
		}
		names = append(names, p.Name)
	}
	return names, nil
}
