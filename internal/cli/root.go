package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ragapi/config"
	"ragapi/internal/adapter/chunker"
	"ragapi/internal/adapter/embedding"
	"ragapi/internal/adapter/index"
	"ragapi/internal/adapter/llm"
	"ragapi/internal/port"
	"ragapi/internal/usecase"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "ragapi",
	Short: "Retrieval-augmented question answering over your documents",
	Long: `ragapi indexes documents into a vector store and answers questions
grounded in the retrieved content, with citations.

Example usage:
  ragapi index ./docs            # Chunk, embed and index documents
  ragapi ask -q "refund window?" # Ask a question over the index
  ragapi search -q "refunds"     # Inspect raw retrieval
  ragapi status                  # Show backend and index size`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// API keys commonly live in a local .env during development.
		_ = godotenv.Load()

		var err error
		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ragapi.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "working directory (default is current directory)")
}

// newEmbedder resolves the configured embedding provider.
func newEmbedder() (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.Embedding)
	case "mock":
		dim := cfg.Embedding.Dimension
		if dim <= 0 {
			dim = 64
		}
		return embedding.NewMockEmbedder(dim), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// newIndex builds the configured vector index with the chunker and
// embedding model bound to it, and loads persisted state.
func newIndex(ctx context.Context) (port.VectorIndex, error) {
	embedder, err := newEmbedder()
	if err != nil {
		return nil, err
	}

	splitter := chunker.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)

	idx, err := index.New(cfg.VectorStore, splitter, embedder)
	if err != nil {
		return nil, err
	}
	if err := idx.Load(ctx); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

// newRAG wires the full pipeline for the query commands.
func newRAG(ctx context.Context) (*usecase.RAG, port.VectorIndex, error) {
	idx, err := newIndex(ctx)
	if err != nil {
		return nil, nil, err
	}

	generator, err := llm.New(cfg.LLM)
	if err != nil {
		idx.Close()
		return nil, nil, err
	}

	return usecase.NewRAG(idx, generator), idx, nil
}
