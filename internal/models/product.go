// Package models defines core data structures for products, queries, and search results.
package models

import (
	"strings"
	"time"
)

// Product is a stored catalog item. Embedding is nil until generated.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VibeTags    []string  `json:"vibe_tags"`
	Category    string    `json:"category"`
	ImageURL    *string   `json:"image_url"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasEmbedding reports whether the product can take part in search.
func (p *Product) HasEmbedding() bool {
	return len(p.Embedding) > 0
}

// ProductInput is the input for creating a product.
type ProductInput struct {
	Name        string   `json:"name" yaml:"name" validate:"required"`
	Description string   `json:"description" yaml:"description" validate:"required"`
	VibeTags    []string `json:"vibe_tags" yaml:"vibe_tags"`
	Category    string   `json:"category" yaml:"category" validate:"required"`
	ImageURL    *string  `json:"image_url,omitempty" yaml:"image_url,omitempty" validate:"omitempty,url"`
}

// Validate checks required fields and normalizes a missing tag list to empty.
func (in *ProductInput) Validate() error {
	if in.VibeTags == nil {
		in.VibeTags = []string{}
	}
	if in.ImageURL != nil && strings.TrimSpace(*in.ImageURL) == "" {
		in.ImageURL = nil
	}
	return validateStruct(in)
}

// EmbeddingText is the text embedded for a product: name, description and tags
// joined into one blob.
func (in *ProductInput) EmbeddingText() string {
	return in.Name + ". " + in.Description + ". Vibes: " + strings.Join(in.VibeTags, ", ")
}
