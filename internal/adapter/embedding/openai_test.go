package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ragapi/config"
	"ragapi/internal/domain"
)

func newTestEmbedder(t *testing.T, baseURL string) *OpenAIEmbedder {
	t.Helper()
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	e, err := NewOpenAIEmbedder(config.EmbeddingConfig{
		Provider:  "openai",
		Model:     "text-embedding-3-small",
		APIKeyEnv: "TEST_OPENAI_KEY",
		BaseURL:   baseURL,
		BatchSize: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOpenAIEmbedder_MissingKey(t *testing.T) {
	t.Setenv("EMPTY_KEY_VAR", "")

	_, err := NewOpenAIEmbedder(config.EmbeddingConfig{
		Model:     "text-embedding-3-small",
		APIKeyEnv: "EMPTY_KEY_VAR",
	})
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig for missing key, got %v", err)
	}
}

func TestOpenAIEmbedder_BatchesRequests(t *testing.T) {
	var batches [][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		batches = append(batches, req.Input)

		resp := embeddingResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, embeddingData{
				Embedding: []float32{float32(i), 1, 2},
				Index:     i,
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL)

	vecs, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	// Batch size 2 splits three inputs into two requests without
	// reordering.
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0][0] != "a" || batches[1][0] != "c" {
		t.Errorf("batches reordered inputs: %v", batches)
	}
}

func TestOpenAIEmbedder_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL)

	_, err := e.Embed(context.Background(), []string{"text"})
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}

func TestOpenAIEmbedder_EmptyInput(t *testing.T) {
	e := newTestEmbedder(t, "http://unused.invalid")

	vecs, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil for empty input, got %v", vecs)
	}
}

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(16)

	a, _ := e.Embed(context.Background(), []string{"same text"})
	b, _ := e.Embed(context.Background(), []string{"same text"})

	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatal("mock embeddings are not deterministic")
		}
	}
}
