package models

// SearchResult is a matched product with its similarity to the query.
type SearchResult struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	VibeTags        []string `json:"vibe_tags"`
	Category        string   `json:"category"`
	ImageURL        *string  `json:"image_url"`
	SimilarityScore float64  `json:"similarity_score"`
}

// NewSearchResult builds a result from a product and its score.
func NewSearchResult(p *Product, score float64) *SearchResult {
	return &SearchResult{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		VibeTags:        p.VibeTags,
		Category:        p.Category,
		ImageURL:        p.ImageURL,
		SimilarityScore: score,
	}
}

// SearchMetrics summarizes quality and latency of one search.
type SearchMetrics struct {
	Query         string   `json:"query"`
	ResultsCount  int      `json:"results_count"`
	LatencyMS     float64  `json:"latency_ms"`
	TopScore      *float64 `json:"top_score"`
	ThresholdUsed float64  `json:"threshold_used"`
	Message       string   `json:"message"`
}

// SearchResponse is the response for a vibe search. Results is never nil.
type SearchResponse struct {
	Results []*SearchResult `json:"results"`
	Metrics SearchMetrics   `json:"metrics"`
}
