// Package index provides the vector index backends: a bbolt-backed
// local file index and a Pinecone-backed remote index. The backend is
// chosen once from configuration; an unrecognized name fails at
// construction, not at first use.
package index

import (
	"fmt"

	"ragapi/config"
	"ragapi/internal/domain"
	"ragapi/internal/port"
)

// New resolves the configured vector store backend.
func New(cfg config.VectorStoreConfig, chunker port.Chunker, embedder port.Embedder) (port.VectorIndex, error) {
	switch cfg.Provider {
	case "bolt":
		return NewBoltIndex(cfg.Path, chunker, embedder)
	case "pinecone":
		return NewPineconeIndex(cfg.Pinecone, chunker, embedder)
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrConfig, cfg.Provider)
	}
}
