package indexer

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/vibematch/internal/models"
)

//go:embed sample_products.yaml
var sampleProductsYAML []byte

var (
	samples     []models.ProductInput
	samplesOnce sync.Once
)

// SampleProducts returns a fresh copy of the built-in fashion catalog used by Seed.
func SampleProducts() []models.ProductInput {
	samplesOnce.Do(func() {
		if err := yaml.Unmarshal(sampleProductsYAML, &samples); err != nil {
			panic(fmt.Sprintf("indexer: malformed sample_products.yaml: %v", err))
		}
	})
	out := make([]models.ProductInput, len(samples))
	for i, s := range samples {
		s.VibeTags = append([]string(nil), s.VibeTags...)
		if s.ImageURL != nil {
			url := *s.ImageURL
			s.ImageURL = &url
		}
		out[i] = s
	}
	return out
}
