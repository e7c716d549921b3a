package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/vector"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private
// in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	memory := dbPath == ":memory:"
	if dir := filepath.Dir(dbPath); !memory && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		vibe_tags TEXT NOT NULL,
		category TEXT NOT NULL,
		image_url TEXT,
		embedding BLOB,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS query_metrics (
		query TEXT NOT NULL,
		results_count INTEGER NOT NULL,
		latency_ms REAL NOT NULL,
		top_score REAL,
		timestamp TIMESTAMP NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateProduct inserts a product. CreatedAt is set when zero.
func (s *SQLiteStorage) CreateProduct(ctx context.Context, p *models.Product) error {
	const op = "SQLiteStorage.CreateProduct"
	tagsJSON, err := json.Marshal(nonNilTags(p.VibeTags))
	if err != nil {
		return storeErr(op, fmt.Errorf("failed to marshal vibe tags: %w", err))
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	var embedding []byte
	if p.HasEmbedding() {
		embedding = vector.Encode(p.Embedding)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO products (id, name, description, vibe_tags, category, image_url, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, string(tagsJSON), p.Category, p.ImageURL, embedding, p.CreatedAt,
	)
	return storeErr(op, err)
}

// ListProducts returns up to limit products in insertion order.
func (s *SQLiteStorage) ListProducts(ctx context.Context, limit int) ([]*models.Product, error) {
	const op = "SQLiteStorage.ListProducts"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, vibe_tags, category, image_url, embedding, created_at
		 FROM products ORDER BY rowid LIMIT ?`, sqlLimit(limit),
	)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		var (
			p         models.Product
			tagsJSON  string
			imageURL  sql.NullString
			embedding []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &tagsJSON, &p.Category, &imageURL, &embedding, &p.CreatedAt); err != nil {
			return nil, storeErr(op, err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &p.VibeTags); err != nil {
			return nil, storeErr(op, fmt.Errorf("failed to unmarshal vibe tags of %s: %w", p.ID, err))
		}
		if imageURL.Valid {
			p.ImageURL = &imageURL.String
		}
		if p.Embedding, err = vector.Decode(embedding); err != nil {
			return nil, storeErr(op, fmt.Errorf("product %s: %w", p.ID, err))
		}
		products = append(products, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return products, nil
}

// DeleteAllProducts removes every product and returns how many were removed.
func (s *SQLiteStorage) DeleteAllProducts(ctx context.Context) (int64, error) {
	const op = "SQLiteStorage.DeleteAllProducts"
	result, err := s.db.ExecContext(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, storeErr(op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, storeErr(op, err)
	}
	return n, nil
}

// CountProducts returns the number of products.
func (s *SQLiteStorage) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count)
	return count, storeErr("SQLiteStorage.CountProducts", err)
}

// CreateQueryMetric appends a metric. Timestamp is set when zero.
func (s *SQLiteStorage) CreateQueryMetric(ctx context.Context, m *models.QueryMetric) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_metrics (query, results_count, latency_ms, top_score, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		m.Query, m.ResultsCount, m.LatencyMS, m.TopScore, m.Timestamp,
	)
	return storeErr("SQLiteStorage.CreateQueryMetric", err)
}

// ListQueryMetrics returns up to limit metrics, newest first.
func (s *SQLiteStorage) ListQueryMetrics(ctx context.Context, limit int) ([]*models.QueryMetric, error) {
	const op = "SQLiteStorage.ListQueryMetrics"
	rows, err := s.db.QueryContext(ctx,
		`SELECT query, results_count, latency_ms, top_score, timestamp
		 FROM query_metrics ORDER BY rowid DESC LIMIT ?`, sqlLimit(limit),
	)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	metrics := []*models.QueryMetric{}
	for rows.Next() {
		var (
			m        models.QueryMetric
			topScore sql.NullFloat64
		)
		if err := rows.Scan(&m.Query, &m.ResultsCount, &m.LatencyMS, &topScore, &m.Timestamp); err != nil {
			return nil, storeErr(op, err)
		}
		if topScore.Valid {
			m.TopScore = &topScore.Float64
		}
		metrics = append(metrics, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return metrics, nil
}

// CountQueryMetrics returns the number of recorded metrics.
func (s *SQLiteStorage) CountQueryMetrics(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_metrics`).Scan(&count)
	return count, storeErr("SQLiteStorage.CountQueryMetrics", err)
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// sqlLimit maps a non-positive limit to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
