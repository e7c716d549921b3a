package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperjump/vibematch/internal/apperror"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc, dims int) *OpenAIEmbedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	e, err := NewOpenAIEmbedder(Options{
		APIKey:     "test-key",
		Model:      "test-model",
		BaseURL:    srv.URL + "/",
		Dimensions: dims,
		Timeout:    2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder: %v", err)
	}
	return e
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/embeddings" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" || len(req.Input) != 1 || req.Input[0] != "boho vibes" {
			t.Errorf("unexpected request body %+v", req)
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3],"index":0}]}`))
	}, 3)

	emb, err := e.Embed(context.Background(), "boho vibes")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(emb) != 3 || emb[1] != 0.2 {
		t.Errorf("Embed = %v", emb)
	}
	if e.ModelName() != "test-model" || e.Dimensions() != 3 {
		t.Errorf("model=%s dims=%d", e.ModelName(), e.Dimensions())
	}
}

func TestOpenAIEmbedder_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		timeout bool
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, false},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, false},
		{"api error in body", http.StatusOK, `{"error":{"message":"quota"}}`, false},
		{"malformed body", http.StatusOK, `not json`, false},
		{"empty data", http.StatusOK, `{"data":[]}`, false},
		{"empty vector", http.StatusOK, `{"data":[{"embedding":[],"index":0}]}`, false},
		{"wrong dimensions", http.StatusOK, `{"data":[{"embedding":[0.1,0.2],"index":0}]}`, false},
		{"timeout", http.StatusOK, `{"data":[{"embedding":[0.1,0.2,0.3],"index":0}]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.timeout {
					<-r.Context().Done()
					return
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, 3)

			ctx := context.Background()
			if tt.timeout {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, 50*time.Millisecond)
				defer cancel()
			}
			emb, err := e.Embed(ctx, "anything")
			if err == nil {
				t.Fatalf("expected error, got %v", emb)
			}
			if !apperror.Is(err, apperror.KindEmbedding) {
				t.Errorf("expected embedding kind, got %s: %v", apperror.KindOf(err), err)
			}
		})
	}
}

func TestOpenAIEmbedder_RejectsBlankText(t *testing.T) {
	called := false
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, 3)
	if _, err := e.Embed(context.Background(), "  "); !apperror.Is(err, apperror.KindEmbedding) {
		t.Errorf("expected embedding error, got %v", err)
	}
	if called {
		t.Error("blank text should not reach the provider")
	}
}

func TestNewOpenAIEmbedder_Defaults(t *testing.T) {
	e, err := NewOpenAIEmbedder(Options{APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if e.ModelName() != DefaultOpenAIModel || e.Dimensions() != 1536 {
		t.Errorf("model=%s dims=%d", e.ModelName(), e.Dimensions())
	}
	if e.baseURL != DefaultOpenAIBaseURL {
		t.Errorf("baseURL = %s", e.baseURL)
	}
	if _, err := NewOpenAIEmbedder(Options{APIKey: "k", Model: "custom"}); err == nil {
		t.Error("expected error for unknown model without dimensions")
	}
}
