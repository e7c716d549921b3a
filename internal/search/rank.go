package search

import (
	"fmt"
	"sort"

	"github.com/hyperjump/vibematch/internal/apperror"
	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/vector"
	"github.com/hyperjump/vibematch/pkg/utils"
)

const (
	// GoodMatchScore is the top score above which a search counts as a good match.
	GoodMatchScore = 0.8
	// ScorePrecision is the number of decimals reported for similarity scores.
	ScorePrecision = 4

	MessageNoProducts = "No products found. Please add products first."
	MessageGoodMatch  = "Good match found!"
	MessageMatches    = "Matches found"
	MessageNoMatches  = "No matches above threshold. Try different vibes!"
)

// Rank scores every product that has an embedding against query, keeps those whose
// similarity is at least threshold both raw and rounded, and returns at most limit results sorted by
// rounded score, highest first. Ties keep the order of products.
// A product whose embedding length differs from query fails the whole ranking.
func Rank(query []float32, products []*models.Product, threshold float64, limit int) ([]*models.SearchResult, error) {
	results := make([]*models.SearchResult, 0, len(products))
	for _, p := range products {
		if !p.HasEmbedding() {
			continue
		}
		sim, err := vector.CosineSimilarity(query, p.Embedding)
		if err != nil {
			return nil, apperror.Internal("search.Rank", fmt.Errorf("product %s: %w", p.ID, err))
		}
		score := utils.Round(sim, ScorePrecision)
		if sim >= threshold && score >= threshold {
			results = append(results, models.NewSearchResult(p, score))
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})
	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// QualityMessage describes a ranked result list.
func QualityMessage(results []*models.SearchResult) string {
	switch {
	case len(results) == 0:
		return MessageNoMatches
	case results[0].SimilarityScore > GoodMatchScore:
		return MessageGoodMatch
	default:
		return MessageMatches
	}
}
