// Package embedding turns product and query text into vectors, either through a
// hosted OpenAI-compatible API or a local feature-hashing model.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/vibematch/internal/apperror"
)

const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}

// Options configures New.
type Options struct {
	Provider   string
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
	Timeout    time.Duration
}

// New builds the embedder selected by opts.Provider.
func New(opts Options) (Embedder, error) {
	switch strings.ToLower(opts.Provider) {
	case "", ProviderOpenAI:
		return NewOpenAIEmbedder(opts)
	case ProviderHash:
		return NewHashEmbedder(opts.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
}

func checkText(op, text string) error {
	if strings.TrimSpace(text) == "" {
		return apperror.Embedding(op, fmt.Errorf("text must not be empty"))
	}
	return nil
}
