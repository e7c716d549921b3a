package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/hyperjump/vibematch/internal/apperror"
	"github.com/hyperjump/vibematch/pkg/utils"
)

const DefaultHashDimensions = 512

// HashEmbedder is a deterministic bag-of-words embedder. Each lowercased word is
// hashed with FNV-1a into one of Dimensions buckets and the counts are
// L2-normalized, so texts sharing words score higher. It needs no network.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a HashEmbedder. Non-positive dimensions use DefaultHashDimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultHashDimensions
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the normalized bucket counts of the words in text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	const op = "HashEmbedder.Embed"
	if err := checkText(op, text); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperror.Embedding(op, err)
	}
	words := Tokenize(text)
	if len(words) == 0 {
		return nil, apperror.Embedding(op, fmt.Errorf("text has no words"))
	}
	emb := make([]float32, e.dimensions)
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		emb[h.Sum32()%uint32(e.dimensions)]++
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName identifies the model and its size.
func (e *HashEmbedder) ModelName() string {
	return fmt.Sprintf("fnv-bow-%d", e.dimensions)
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}

// Tokenize lowercases text and splits it into runs of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
