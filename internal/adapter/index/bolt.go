package index

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"ragapi/internal/domain"
	"ragapi/internal/port"
)

var bucketVectors = []byte("vectors")

// BoltIndex is the local-file vector index. Every write goes through
// to the bbolt file before AddDocuments returns; searches run against
// an in-memory copy of the vectors. Delete is not supported for this
// backend. Writes serialize on the store mutex, so a count observed
// after a completed add always reflects that add.
type BoltIndex struct {
	db       *bbolt.DB
	chunker  port.Chunker
	embedder port.Embedder

	mu      sync.RWMutex
	entries []boltEntry
}

type boltEntry struct {
	id       string
	vector   []float32
	content  string
	metadata map[string]string
}

type storedVector struct {
	Vector   []float32         `json:"v"`
	Content  string            `json:"c"`
	Metadata map[string]string `json:"m,omitempty"`
}

// NewBoltIndex opens (or creates) the index file at path and binds the
// chunker and embedding model to it.
func NewBoltIndex(path string, chunker port.Chunker, embedder port.Embedder) (*BoltIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create index directory: %v", domain.ErrIndex, err)
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open index file: %v", domain.ErrIndex, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create vectors bucket: %v", domain.ErrIndex, err)
	}

	return &BoltIndex{
		db:       db,
		chunker:  chunker,
		embedder: embedder,
	}, nil
}

// Load reads all persisted vectors into memory. A fresh index file is
// not an error; the index simply starts empty.
func (s *BoltIndex) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt entry %s: %w", string(k), err)
			}
			s.entries = append(s.entries, boltEntry{
				id:       string(k),
				vector:   stored.Vector,
				content:  stored.Content,
				metadata: stored.Metadata,
			})
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("%w: load index: %v", domain.ErrIndex, err)
	}
	return nil
}

// AddDocuments chunks and embeds the documents, then persists the new
// vectors before updating the searchable in-memory state. A failed
// save surfaces as an index error; the in-memory state is only updated
// after the file write succeeds.
func (s *BoltIndex) AddDocuments(ctx context.Context, docs []domain.Document) (int, error) {
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

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: embedder returned %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(chunks))
	}

	added := make([]boltEntry, len(chunks))
	for i, ch := range chunks {
		added[i] = boltEntry{
			id:       uuid.NewString(),
			vector:   vectors[i],
			content:  ch.Text,
			metadata: ch.Metadata,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, e := range added {
			data, err := json.Marshal(storedVector{
				Vector:   e.vector,
				Content:  e.content,
				Metadata: e.metadata,
			})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(e.id), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: persist vectors: %v", domain.ErrIndex, err)
	}

	s.entries = append(s.entries, added...)
	return len(added), nil
}

// Search embeds the query and ranks all stored vectors by cosine
// similarity. Brute force is fine at the index sizes a single file
// backs.
func (s *BoltIndex) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: search k must be at least 1, got %d", domain.ErrConfig, k)
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	queryVec := vecs[0]

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil, nil
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(s.entries))
	for i, e := range s.entries {
		scores[i] = scored{idx: i, score: cosineSimilarity(queryVec, e.vector)}
	}
	// Stable so equal scores keep insertion order across runs.
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]domain.SearchResult, k)
	for i := 0; i < k; i++ {
		e := s.entries[scores[i].idx]
		results[i] = domain.SearchResult{
			Content:  e.content,
			Metadata: e.metadata,
			Score:    scores[i].score,
		}
	}
	return results, nil
}

// Delete is not supported by the file-backed index.
func (s *BoltIndex) Delete(_ context.Context, id string) error {
	return fmt.Errorf("%w: delete is not available on the local file index (id %s)", domain.ErrUnsupported, id)
}

func (s *BoltIndex) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *BoltIndex) Close() error {
	return s.db.Close()
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
