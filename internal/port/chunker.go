package port

import "ragapi/internal/domain"

// Chunker splits a document into chunks suitable for embedding.
// Chunking is deterministic: the same document and parameters always
// produce the same chunk sequence.
type Chunker interface {
	Chunk(doc domain.Document) []domain.Chunk
}
