package indexer

import (
	"strings"
	"unicode"

	"github.com/hyperjump/vibematch/internal/models"
)

// Preprocess normalizes text for indexing (trim, collapse whitespace).
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// PreprocessInput normalizes the text fields of in and drops blank tags.
// Tag order is kept.
func PreprocessInput(in *models.ProductInput) {
	in.Name = Preprocess(in.Name)
	in.Description = Preprocess(in.Description)
	in.Category = Preprocess(in.Category)
	tags := make([]string, 0, len(in.VibeTags))
	for _, t := range in.VibeTags {
		if t = Preprocess(t); t != "" {
			tags = append(tags, t)
		}
	}
	in.VibeTags = tags
}
