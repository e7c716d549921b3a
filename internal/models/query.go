package models

import (
	"strings"
	"time"

	"github.com/hyperjump/vibematch/internal/apperror"
)

const (
	DefaultSearchLimit     = 3
	DefaultSearchThreshold = 0.7
)

// ErrNilQuery is returned when a search is run without a query.
var ErrNilQuery = apperror.Validation("query is required")

// VibeQuery is a free-text vibe search with a result limit and a similarity threshold.
type VibeQuery struct {
	Vibe      string  `json:"vibe" validate:"required"`
	Limit     int     `json:"limit" validate:"min=1,max=10"`
	Threshold float64 `json:"threshold" validate:"gte=0,lte=1"`
}

// NewVibeQuery returns a query with the default limit and threshold, suitable
// for decoding a request body over it so absent fields keep their defaults.
func NewVibeQuery(vibe string) *VibeQuery {
	return &VibeQuery{
		Vibe:      vibe,
		Limit:     DefaultSearchLimit,
		Threshold: DefaultSearchThreshold,
	}
}

// Validate rejects a blank vibe and out-of-range limit or threshold.
func (q *VibeQuery) Validate() error {
	if err := validateStruct(q); err != nil {
		return err
	}
	if strings.TrimSpace(q.Vibe) == "" {
		return validationError("vibe: must not be blank")
	}
	return nil
}

// QueryMetric records one search request. TopScore is nil when nothing matched.
type QueryMetric struct {
	Query        string    `json:"query"`
	ResultsCount int       `json:"results_count"`
	LatencyMS    float64   `json:"latency_ms"`
	TopScore     *float64  `json:"top_score"`
	Timestamp    time.Time `json:"timestamp"`
}
