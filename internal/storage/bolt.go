package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hyperjump/vibematch/internal/models"
)

var (
	bucketProducts = []byte("products")
	bucketMetrics  = []byte("query_metrics")
)

// BoltStorage implements Storage on a bbolt file. Keys are big-endian bucket
// sequence numbers, so cursor order is insertion order.
type BoltStorage struct {
	db *bbolt.DB
}

// NewBoltStorage opens or creates a bolt database at path.
func NewBoltStorage(path string) (*BoltStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketProducts, bucketMetrics} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStorage{db: db}, nil
}

func seqKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

func (s *BoltStorage) put(ctx context.Context, bucket []byte, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

// CreateProduct appends a product. CreatedAt is set when zero.
func (s *BoltStorage) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.VibeTags == nil {
		p.VibeTags = []string{}
	}
	return storeErr("BoltStorage.CreateProduct", s.put(ctx, bucketProducts, p))
}

// ListProducts returns up to limit products in insertion order.
func (s *BoltStorage) ListProducts(ctx context.Context, limit int) ([]*models.Product, error) {
	const op = "BoltStorage.ListProducts"
	if err := ctx.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	products := []*models.Product{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketProducts).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if limit > 0 && len(products) >= limit {
				break
			}
			var p models.Product
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("failed to decode product at key %x: %w", k, err)
			}
			products = append(products, &p)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(op, err)
	}
	return products, nil
}

// DeleteAllProducts drops and recreates the products bucket.
func (s *BoltStorage) DeleteAllProducts(ctx context.Context) (int64, error) {
	const op = "BoltStorage.DeleteAllProducts"
	if err := ctx.Err(); err != nil {
		return 0, storeErr(op, err)
	}
	var n int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		n = int64(tx.Bucket(bucketProducts).Stats().KeyN)
		if err := tx.DeleteBucket(bucketProducts); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketProducts)
		return err
	})
	if err != nil {
		return 0, storeErr(op, err)
	}
	return n, nil
}

// CountProducts returns the number of products.
func (s *BoltStorage) CountProducts(ctx context.Context) (int64, error) {
	return s.count(ctx, "BoltStorage.CountProducts", bucketProducts)
}

// CreateQueryMetric appends a metric. Timestamp is set when zero.
func (s *BoltStorage) CreateQueryMetric(ctx context.Context, m *models.QueryMetric) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return storeErr("BoltStorage.CreateQueryMetric", s.put(ctx, bucketMetrics, m))
}

// ListQueryMetrics returns up to limit metrics, newest first.
func (s *BoltStorage) ListQueryMetrics(ctx context.Context, limit int) ([]*models.QueryMetric, error) {
	const op = "BoltStorage.ListQueryMetrics"
	if err := ctx.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	metrics := []*models.QueryMetric{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketMetrics).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(metrics) >= limit {
				break
			}
			var m models.QueryMetric
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to decode metric at key %x: %w", k, err)
			}
			metrics = append(metrics, &m)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(op, err)
	}
	return metrics, nil
}

// CountQueryMetrics returns the number of recorded metrics.
func (s *BoltStorage) CountQueryMetrics(ctx context.Context) (int64, error) {
	return s.count(ctx, "BoltStorage.CountQueryMetrics", bucketMetrics)
}

func (s *BoltStorage) count(ctx context.Context, op string, bucket []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storeErr(op, err)
	}
	var n int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = int64(tx.Bucket(bucket).Stats().KeyN)
		return nil
	})
	return n, storeErr(op, err)
}

// Close closes the database file.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}
