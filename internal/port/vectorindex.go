package port

import (
	"context"

	"ragapi/internal/domain"
)

// VectorIndex stores embedded document chunks and retrieves them by
// semantic similarity. The embedding model is bound to the index at
// construction so index-time and query-time embeddings always match.
type VectorIndex interface {
	// Load restores persisted state at startup. A missing index is not
	// an error; the index starts empty. Remote backends treat this as
	// a no-op.
	Load(ctx context.Context) error

	// AddDocuments chunks, embeds and indexes the given documents.
	// Returns the number of chunks added.
	AddDocuments(ctx context.Context, docs []domain.Document) (int, error)

	// Search embeds the query and returns up to k nearest chunks in
	// relevance order. An empty index yields an empty result, not an
	// error.
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)

	// Delete removes a vector by ID. Backends without delete support
	// return domain.ErrUnsupported.
	Delete(ctx context.Context, id string) error

	// Count returns the number of indexed chunks. Remote backends may
	// be eventually consistent with recent writes.
	Count(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}
