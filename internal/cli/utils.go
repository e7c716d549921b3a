// Package cli provides output formatting and an HTTP client for the vibematch command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/server"
	"github.com/hyperjump/vibematch/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes a search response to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	m := response.Metrics
	fmt.Fprintf(w, "\n%s (%d results in %.2fms, threshold %.2f)\n\n", m.Message, m.ResultsCount, m.LatencyMS, m.ThresholdUsed)
	for i, r := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d | Score: %.4f | %s [%s]\n", i+1, r.SimilarityScore, r.Name, r.Category)
		if len(r.VibeTags) > 0 {
			fmt.Fprintf(w, "Vibes: %s\n", strings.Join(r.VibeTags, ", "))
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(r.Description, 200))
	}
	return nil
}

// WriteMetrics writes query metrics, newest first, to w.
func WriteMetrics(w io.Writer, metrics []*models.QueryMetric, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, metrics)
	}
	if len(metrics) == 0 {
		fmt.Fprintln(w, "No queries recorded.")
		return nil
	}
	fmt.Fprintf(w, "%-20s  %7s  %10s  %9s  %s\n", "TIME", "RESULTS", "LATENCY", "TOP", "QUERY")
	for _, m := range metrics {
		top := "-"
		if m.TopScore != nil {
			top = fmt.Sprintf("%.4f", *m.TopScore)
		}
		fmt.Fprintf(w, "%-20s  %7d  %8.2fms  %9s  %s\n",
			m.Timestamp.UTC().Format("2006-01-02 15:04:05"), m.ResultsCount, m.LatencyMS, top, utils.Truncate(m.Query, 60))
	}
	return nil
}

// WriteStatus writes server or store status to w.
func WriteStatus(w io.Writer, s *server.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "Products:       %d\n", s.Products)
	fmt.Fprintf(w, "Query metrics:  %d\n", s.QueryMetrics)
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "Disk usage:     %s\n", FormatBytes(*s.DiskUsageBytes))
	}
	fmt.Fprintf(w, "Store:          %s (%s)\n", s.Config.StoreBackend, s.Config.DatabasePath)
	fmt.Fprintf(w, "Embedding:      %s %s (%d dims)\n", s.Embedding.Provider, s.Embedding.Model, s.Embedding.Dimensions)
	return nil
}

// WriteSeedResult writes the names of seeded products to w.
func WriteSeedResult(w io.Writer, s *server.SeedResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "%s: %d products\n", s.Message, s.Count)
	for _, name := range s.Products {
		fmt.Fprintf(w, "  - %s\n", name)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
