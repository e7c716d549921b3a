// Package vector provides similarity helpers and a compact binary encoding for embeddings.
package vector

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two vectors of different length are compared.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// Accumulation is done in float64. If either vector has zero magnitude the
// similarity is 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	sim := InnerProduct(a, b) / (na * nb)
	// Rounding can push identical vectors just past 1.
	return math.Max(-1, math.Min(1, sim)), nil
}

// InnerProduct returns the inner product of two vectors, or 0 when their lengths differ.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
