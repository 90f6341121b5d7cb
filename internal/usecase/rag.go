package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"ragapi/internal/domain"
	"ragapi/internal/port"
)

// answerPromptTemplate carries the grounding instructions inside the
// user message, so no separate system message is sent.
const answerPromptTemplate = `You are a helpful assistant that answers questions based on the provided context.
If the answer cannot be found in the context, say "I don't have enough information to answer that question."
Always cite which parts of the context support your answer.

Context:
%s

Question: %s

Answer:`

// noDocumentsAnswer is returned when retrieval finds nothing. A
// normal outcome, not an error; the generator is never called.
const noDocumentsAnswer = "I don't have any documents to search. Please upload some documents first."

const (
	contextSeparator = "\n\n---\n\n"
	maxExcerptLen    = 300
)

// QueryOptions parameterizes a single query. Values are validated by
// config.Validate before they reach this layer.
type QueryOptions struct {
	TopK        int
	Temperature float64
	MaxTokens   int
}

// RAG composes the vector index and the generation provider into the
// query pipeline. It holds no per-request state; one instance serves
// concurrent requests.
type RAG struct {
	index port.VectorIndex
	llm   port.LLM
}

func NewRAG(index port.VectorIndex, llm port.LLM) *RAG {
	return &RAG{index: index, llm: llm}
}

// Query retrieves context for the question, generates a grounded
// answer and packages it with citations.
func (r *RAG) Query(ctx context.Context, question string, opts QueryOptions) (*domain.Answer, error) {
	retrieved, err := r.index.Search(ctx, question, opts.TopK)
	if err != nil {
		return nil, err
	}

	if len(retrieved) == 0 {
		return &domain.Answer{
			ID:      uuid.NewString(),
			Answer:  noDocumentsAnswer,
			Sources: []domain.SourceExcerpt{},
			Model:   "none",
		}, nil
	}

	prompt := buildPrompt(question, retrieved)

	result, err := r.llm.Generate(ctx, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: prompt},
	}, port.GenerateOptions{
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &domain.Answer{
		ID:      uuid.NewString(),
		Answer:  result.Content,
		Sources: excerpts(retrieved),
		Model:   result.Model,
		Usage:   result.Usage,
	}, nil
}

// QueryStream runs the same retrieve/assemble steps and forwards the
// provider's deltas unmodified. Sources travel out of band, so the
// stream carries text only; on empty retrieval the stream yields the
// fixed no-documents answer and ends.
func (r *RAG) QueryStream(ctx context.Context, question string, opts QueryOptions) (port.Stream, error) {
	retrieved, err := r.index.Search(ctx, question, opts.TopK)
	if err != nil {
		return nil, err
	}

	if len(retrieved) == 0 {
		return &singleDeltaStream{delta: noDocumentsAnswer}, nil
	}

	prompt := buildPrompt(question, retrieved)

	return r.llm.GenerateStream(ctx, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: prompt},
	}, port.GenerateOptions{
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
}

// Index adds documents to the vector index and reports how many
// chunks were created.
func (r *RAG) Index(ctx context.Context, docs []domain.Document) (int, error) {
	return r.index.AddDocuments(ctx, docs)
}

// Count returns the number of indexed chunks.
func (r *RAG) Count(ctx context.Context) (int, error) {
	return r.index.Count(ctx)
}

// Delete removes a vector by ID; backends without delete support
// return domain.ErrUnsupported.
func (r *RAG) Delete(ctx context.Context, id string) error {
	return r.index.Delete(ctx, id)
}

// buildPrompt labels each retrieved chunk with its 1-based source
// index, preserving retrieval order, and embeds the block in the
// grounding template.
func buildPrompt(question string, retrieved []domain.SearchResult) string {
	parts := make([]string, len(retrieved))
	for i, r := range retrieved {
		parts[i] = fmt.Sprintf("[Source %d]: %s", i+1, r.Content)
	}
	context := strings.Join(parts, contextSeparator)
	return fmt.Sprintf(answerPromptTemplate, context, question)
}

// excerpts truncates chunk contents for the citation list. Display
// only: the full text already went into the prompt.
func excerpts(retrieved []domain.SearchResult) []domain.SourceExcerpt {
	out := make([]domain.SourceExcerpt, len(retrieved))
	for i, r := range retrieved {
		content := r.Content
		if len(content) > maxExcerptLen {
			cut := maxExcerptLen
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			content = content[:cut] + "..."
		}
		out[i] = domain.SourceExcerpt{
			Content:  content,
			Metadata: r.Metadata,
			Score:    r.Score,
		}
	}
	return out
}

// singleDeltaStream yields one delta and then ends. Used for the
// no-documents short circuit on the streaming path.
type singleDeltaStream struct {
	delta string
	done  bool
}

func (s *singleDeltaStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	s.done = true
	return s.delta, nil
}

func (s *singleDeltaStream) Close() error {
	return nil
}
