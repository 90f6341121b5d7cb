package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"ragapi/config"
	"ragapi/internal/domain"
	"ragapi/internal/port"
)

// PineconeIndex is the remote vector index. It talks to a Pinecone
// index host over its REST data plane; the service owns persistence
// and concurrency control, so this adapter keeps no local state.
type PineconeIndex struct {
	host      string
	apiKey    string
	batchSize int
	chunker   port.Chunker
	embedder  port.Embedder
	client    *http.Client
}

type pineconeVector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string            `json:"id"`
		Score    float64           `json:"score"`
		Metadata map[string]string `json:"metadata"`
	} `json:"matches"`
}

type pineconeStatsResponse struct {
	TotalVectorCount int `json:"totalVectorCount"`
}

// NewPineconeIndex creates a remote index bound to the given chunker
// and embedding model.
func NewPineconeIndex(cfg config.PineconeConfig, chunker port.Chunker, embedder port.Embedder) (*PineconeIndex, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key not found in environment variable %s", domain.ErrConfig, cfg.APIKeyEnv)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &PineconeIndex{
		host:      cfg.Host,
		apiKey:    apiKey,
		batchSize: batchSize,
		chunker:   chunker,
		embedder:  embedder,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Load is a no-op: the remote service is always loaded.
func (s *PineconeIndex) Load(_ context.Context) error {
	return nil
}

// AddDocuments chunks, embeds and upserts in batches. Batches preserve
// chunk order and each vector is sent exactly once.
func (s *PineconeIndex) AddDocuments(ctx context.Context, docs []domain.Document) (int, error) {
	var chunks []domain.Chunk
	var texts []string
	for _, doc := range docs {
		for _, ch := range s.chunker.Chunk(doc) {
			chunks = append(chunks, ch)
			texts = append(texts, ch.Text)
		}
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("%w: embedder returned %d vectors for %d chunks", domain.ErrEmbedding, len(embeddings), len(chunks))
	}

	vectors := make([]pineconeVector, len(chunks))
	for i, ch := range chunks {
		metadata := map[string]string{"content": ch.Text}
		for k, v := range ch.Metadata {
			if k != "content" {
				metadata[k] = v
			}
		}
		vectors[i] = pineconeVector{
			ID:       uuid.NewString(),
			Values:   embeddings[i],
			Metadata: metadata,
		}
	}

	for i := 0; i < len(vectors); i += s.batchSize {
		end := i + s.batchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		body := map[string]any{"vectors": vectors[i:end]}
		if err := s.postJSON(ctx, "/vectors/upsert", body, nil); err != nil {
			return 0, err
		}
	}

	return len(vectors), nil
}

func (s *PineconeIndex) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: search k must be at least 1, got %d", domain.ErrConfig, k)
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	req := map[string]any{
		"vector":          vecs[0],
		"topK":            k,
		"includeMetadata": true,
	}
	var resp pineconeQueryResponse
	if err := s.postJSON(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		content := m.Metadata["content"]
		metadata := make(map[string]string, len(m.Metadata))
		for key, v := range m.Metadata {
			if key != "content" {
				metadata[key] = v
			}
		}
		results = append(results, domain.SearchResult{
			Content:  content,
			Metadata: metadata,
			Score:    m.Score,
		})
	}
	return results, nil
}

func (s *PineconeIndex) Delete(ctx context.Context, id string) error {
	return s.postJSON(ctx, "/vectors/delete", map[string]any{"ids": []string{id}}, nil)
}

// Count queries live stats from the service, so it may lag very recent
// writes.
func (s *PineconeIndex) Count(ctx context.Context) (int, error) {
	var resp pineconeStatsResponse
	if err := s.postJSON(ctx, "/describe_index_stats", map[string]any{}, &resp); err != nil {
		return 0, err
	}
	return resp.TotalVectorCount, nil
}

func (s *PineconeIndex) Close() error {
	return nil
}

func (s *PineconeIndex) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", domain.ErrIndex, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", domain.ErrIndex, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: pinecone POST %s: %v", domain.ErrIndex, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: pinecone POST %s: status %d: %s", domain.ErrIndex, path, resp.StatusCode, string(detail))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", domain.ErrIndex, err)
		}
	}
	return nil
}
