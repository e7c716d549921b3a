// Package storage persists products and query metrics.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/vibematch/internal/apperror"
	"github.com/hyperjump/vibematch/internal/models"
)

const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Storage defines product and query metric persistence operations.
// A non-positive limit means no limit. All failures carry apperror.KindStore.
type Storage interface {
	// Product operations
	CreateProduct(ctx context.Context, p *models.Product) error
	// ListProducts returns products in insertion order.
	ListProducts(ctx context.Context, limit int) ([]*models.Product, error)
	DeleteAllProducts(ctx context.Context) (int64, error)
	CountProducts(ctx context.Context) (int64, error)

	// Metric operations
	CreateQueryMetric(ctx context.Context, m *models.QueryMetric) error
	// ListQueryMetrics returns metrics newest first.
	ListQueryMetrics(ctx context.Context, limit int) ([]*models.QueryMetric, error)
	CountQueryMetrics(ctx context.Context) (int64, error)

	Close() error
}

// NewStorage opens the backend named by backend at path.
func NewStorage(backend, path string) (Storage, error) {
	switch strings.ToLower(backend) {
	case "", BackendSQLite:
		return NewSQLiteStorage(path)
	case BackendBolt:
		return NewBoltStorage(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func storeErr(op string, err error) error {
	return apperror.Store(op, err)
}
