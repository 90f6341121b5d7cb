package port

import (
	"context"

	"ragapi/internal/domain"
)

// GenerateOptions configures a generation request. Callers validate
// the ranges (temperature [0,2], max tokens [1,4096]) before invoking
// the adapter; providers may enforce tighter bounds server-side.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// LLM represents a language model provider.
type LLM interface {
	// Generate performs a single round-trip and returns the complete
	// result with normalized finish reason and usage.
	Generate(ctx context.Context, messages []domain.ChatMessage, opts GenerateOptions) (*domain.GenerationResult, error)

	// GenerateStream starts an incremental generation. Deltas arrive
	// in provider order via the returned Stream. Cancelling ctx aborts
	// the stream; the adapter remains usable for subsequent requests.
	GenerateStream(ctx context.Context, messages []domain.ChatMessage, opts GenerateOptions) (Stream, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// Stream is a finite, non-restartable sequence of text deltas.
// Recv returns io.EOF when the provider signals completion, and a
// domain.ErrGeneration-wrapped error if the transport fails before
// that. Close releases the underlying connection and is safe to call
// at any point, including mid-stream.
type Stream interface {
	Recv() (string, error)
	Close() error
}
