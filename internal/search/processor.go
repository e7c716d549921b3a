package search

import (
	"github.com/hyperjump/vibematch/internal/models"
)

// ProcessQuery validates the vibe query. Defaults are applied by models.NewVibeQuery
// before decoding, so nothing is filled in here.
func ProcessQuery(query *models.VibeQuery) error {
	if query == nil {
		return models.ErrNilQuery
	}
	return query.Validate()
}
