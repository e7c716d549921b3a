package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/vibematch/internal/apperror"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "text-embedding-3-small"
	defaultOpenAITimeout = 30 * time.Second
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	client     *http.Client
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ModelDimensions returns the output size of known hosted models, or 0.
func ModelDimensions(model string) int {
	switch model {
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "jina-embeddings-v3":
		return 1024
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large":
		return 1024
	case "all-minilm":
		return 384
	}
	return 0
}

// NewOpenAIEmbedder builds a client from opts. An API key is required.
func NewOpenAIEmbedder(opts Options) (*OpenAIEmbedder, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is not set (EMBEDDING_API_KEY)")
	}
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	dims := opts.Dimensions
	if dims <= 0 {
		dims = ModelDimensions(model)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("embedding dimensions unknown for model %q; set embedding.dimensions", model)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}
	return &OpenAIEmbedder{
		apiKey:     opts.APIKey,
		model:      model,
		baseURL:    baseURL,
		dimensions: dims,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// Embed requests one embedding. Any transport, status, decode or shape problem
// is returned as an embedding error; a zero vector is never returned.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	const op = "OpenAIEmbedder.Embed"
	if err := checkText(op, text); err != nil {
		return nil, err
	}

	body, err := json.Marshal(embeddingRequest{Input: []string{text}, Model: e.model})
	if err != nil {
		return nil, apperror.Embedding(op, fmt.Errorf("failed to marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, apperror.Embedding(op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, apperror.Embedding(op, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Embedding(op, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Embedding(op, fmt.Errorf("API returned status %d: %s", resp.StatusCode, preview(raw)))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperror.Embedding(op, fmt.Errorf("failed to parse response (body: %s): %w", preview(raw), err))
	}
	if parsed.Error != nil {
		return nil, apperror.Embedding(op, fmt.Errorf("API error: %s", parsed.Error.Message))
	}
	if len(parsed.Data) == 0 {
		return nil, apperror.Embedding(op, fmt.Errorf("response has no data"))
	}
	emb := parsed.Data[0].Embedding
	if len(emb) == 0 {
		return nil, apperror.Embedding(op, fmt.Errorf("response has an empty embedding"))
	}
	if len(emb) != e.dimensions {
		return nil, apperror.Embedding(op, fmt.Errorf("expected %d dimensions, got %d", e.dimensions, len(emb)))
	}
	return emb, nil
}

func preview(b []byte) string {
	s := string(b)
	if len(s) > 200 {
		return s[:200]
	}
	return s
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the configured model.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Close releases idle connections.
func (e *OpenAIEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
