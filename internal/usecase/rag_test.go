package usecase

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"ragapi/internal/adapter/chunker"
	"ragapi/internal/adapter/embedding"
	"ragapi/internal/adapter/index"
	"ragapi/internal/domain"
	"ragapi/internal/port"
)

// fakeLLM records the messages it receives and replies with canned
// content.
type fakeLLM struct {
	lastMessages []domain.ChatMessage
	reply        string
	deltas       []string
	calls        int
}

func (f *fakeLLM) Generate(_ context.Context, messages []domain.ChatMessage, _ port.GenerateOptions) (*domain.GenerationResult, error) {
	f.calls++
	f.lastMessages = messages
	return &domain.GenerationResult{
		Content:      f.reply,
		Model:        "fake-model",
		Usage:        domain.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		FinishReason: domain.FinishStop,
	}, nil
}

func (f *fakeLLM) GenerateStream(_ context.Context, messages []domain.ChatMessage, _ port.GenerateOptions) (port.Stream, error) {
	f.calls++
	f.lastMessages = messages
	return &sliceStream{deltas: f.deltas}, nil
}

func (f *fakeLLM) ModelName() string { return "fake-model" }

type sliceStream struct {
	deltas []string
	pos    int
	closed bool
}

func (s *sliceStream) Recv() (string, error) {
	if s.closed || s.pos >= len(s.deltas) {
		return "", io.EOF
	}
	delta := s.deltas[s.pos]
	s.pos++
	return delta, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

func newTestRAG(t *testing.T, llm port.LLM) (*RAG, port.VectorIndex) {
	t.Helper()

	idx, err := index.NewBoltIndex(
		filepath.Join(t.TempDir(), "index.db"),
		chunker.NewSplitter(500, 50),
		embedding.NewMockEmbedder(64),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	if err := idx.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	return NewRAG(idx, llm), idx
}

func defaultOpts() QueryOptions {
	return QueryOptions{TopK: 5, Temperature: 0.7, MaxTokens: 1024}
}

func TestQuery_EmptyIndexShortCircuits(t *testing.T) {
	llm := &fakeLLM{reply: "should never be used"}
	rag, _ := newTestRAG(t, llm)

	answer, err := rag.Query(context.Background(), "What is the refund window?", defaultOpts())
	if err != nil {
		t.Fatal(err)
	}

	if answer.Answer != noDocumentsAnswer {
		t.Errorf("unexpected answer %q", answer.Answer)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("expected empty sources, got %d", len(answer.Sources))
	}
	if answer.Usage.TotalTokens != 0 {
		t.Errorf("expected zero usage, got %+v", answer.Usage)
	}
	if llm.calls != 0 {
		t.Error("generator must not be called on empty retrieval")
	}
	if answer.ID == "" {
		t.Error("answer must carry a request ID")
	}
}

func TestQuery_RefundScenario(t *testing.T) {
	llm := &fakeLLM{reply: "Refunds are processed within 14 days [Source 1]."}
	rag, _ := newTestRAG(t, llm)
	ctx := context.Background()

	added, err := rag.Index(ctx, []domain.Document{
		{Content: "Refunds are processed within 14 days.", Metadata: map[string]string{"source": "policy.txt"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if added != 1 {
		t.Fatalf("expected 1 chunk, got %d", added)
	}

	answer, err := rag.Query(ctx, "What is the refund window?", defaultOpts())
	if err != nil {
		t.Fatal(err)
	}

	if len(answer.Sources) == 0 {
		t.Fatal("expected sources")
	}
	if !strings.Contains(answer.Sources[0].Content, "14 days") {
		t.Errorf("top source should contain the indexed text, got %q", answer.Sources[0].Content)
	}
	if answer.Model != "fake-model" {
		t.Errorf("model metadata not attached: %q", answer.Model)
	}
	if answer.Usage.TotalTokens != 15 {
		t.Errorf("usage not attached: %+v", answer.Usage)
	}
}

func TestQuery_PromptContainsLabeledContext(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	rag, _ := newTestRAG(t, llm)
	ctx := context.Background()

	if _, err := rag.Index(ctx, []domain.Document{
		{Content: "First fact."},
		{Content: "Second fact."},
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := rag.Query(ctx, "tell me", defaultOpts()); err != nil {
		t.Fatal(err)
	}

	if len(llm.lastMessages) != 1 {
		t.Fatalf("expected a single user message, got %d", len(llm.lastMessages))
	}
	msg := llm.lastMessages[0]
	if msg.Role != domain.RoleUser {
		t.Errorf("prompt must be the sole user message, got role %q", msg.Role)
	}
	if !strings.Contains(msg.Content, "[Source 1]:") || !strings.Contains(msg.Content, "[Source 2]:") {
		t.Errorf("prompt missing source labels:\n%s", msg.Content)
	}
	if !strings.Contains(msg.Content, "Question: tell me") {
		t.Errorf("prompt missing question:\n%s", msg.Content)
	}
	if !strings.Contains(msg.Content, contextSeparator) {
		t.Error("prompt missing context separator")
	}
}

func TestQuery_LongSourceTruncatedForDisplayOnly(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	rag, _ := newTestRAG(t, llm)
	ctx := context.Background()

	// 480 chars: fits one chunk but exceeds the 300-char excerpt cap.
	long := strings.Repeat("sentence goes on and on ", 30)[:480]
	if _, err := rag.Index(ctx, []domain.Document{{Content: long}}); err != nil {
		t.Fatal(err)
	}

	answer, err := rag.Query(ctx, long[:50], defaultOpts())
	if err != nil {
		t.Fatal(err)
	}

	src := answer.Sources[0].Content
	if len(src) > maxExcerptLen+len("...") {
		t.Errorf("source excerpt too long: %d chars", len(src))
	}
	if !strings.HasSuffix(src, "...") {
		t.Errorf("truncated excerpt should carry ellipsis marker: %q", src[len(src)-10:])
	}
	// The generator still saw the full chunk text.
	if !strings.Contains(llm.lastMessages[0].Content, long) {
		t.Error("prompt must contain the untruncated chunk")
	}
}

func TestQueryStream_DeltasConcatenate(t *testing.T) {
	llm := &fakeLLM{deltas: []string{"The refund ", "window is ", "14 days."}}
	rag, _ := newTestRAG(t, llm)
	ctx := context.Background()

	if _, err := rag.Index(ctx, []domain.Document{{Content: "Refunds are processed within 14 days."}}); err != nil {
		t.Fatal(err)
	}

	stream, err := rag.QueryStream(ctx, "What is the refund window?", defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	var got strings.Builder
	count := 0
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got.WriteString(delta)
		count++
	}
	if count == 0 || got.String() == "" {
		t.Fatal("expected a non-empty ordered sequence of deltas")
	}
	if got.String() != "The refund window is 14 days." {
		t.Errorf("deltas reordered or modified: %q", got.String())
	}
}

func TestQueryStream_EmptyIndexYieldsFixedAnswer(t *testing.T) {
	llm := &fakeLLM{deltas: []string{"unused"}}
	rag, _ := newTestRAG(t, llm)

	stream, err := rag.QueryStream(context.Background(), "anything", defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	delta, err := stream.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if delta != noDocumentsAnswer {
		t.Errorf("unexpected delta %q", delta)
	}
	if _, err := stream.Recv(); err != io.EOF {
		t.Errorf("expected EOF after the fixed answer, got %v", err)
	}
	if llm.calls != 0 {
		t.Error("generator must not be called on empty retrieval")
	}
}

func TestQueryStream_CancelThenQuery(t *testing.T) {
	llm := &fakeLLM{reply: "fine", deltas: []string{"a", "b", "c"}}
	rag, _ := newTestRAG(t, llm)
	ctx := context.Background()

	if _, err := rag.Index(ctx, []domain.Document{{Content: "Some indexed knowledge."}}); err != nil {
		t.Fatal(err)
	}

	stream, err := rag.QueryStream(ctx, "question", defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := stream.Recv(); err != nil {
		t.Fatal(err)
	}
	// Abandon the stream mid-way.
	if err := stream.Close(); err != nil {
		t.Fatal(err)
	}

	// The orchestrator must serve the next synchronous query normally.
	answer, err := rag.Query(ctx, "question", defaultOpts())
	if err != nil {
		t.Fatalf("query after cancelled stream failed: %v", err)
	}
	if answer.Answer != "fine" {
		t.Errorf("unexpected answer %q", answer.Answer)
	}
}

func TestDelete_UnsupportedSurfacesCleanly(t *testing.T) {
	rag, _ := newTestRAG(t, &fakeLLM{})

	err := rag.Delete(context.Background(), "id-1")
	if !errors.Is(err, domain.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported from the local backend, got %v", err)
	}
}

func TestCount_TracksIndexing(t *testing.T) {
	rag, _ := newTestRAG(t, &fakeLLM{})
	ctx := context.Background()

	before, err := rag.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}

	added, err := rag.Index(ctx, []domain.Document{
		{Content: "Alpha document text."},
		{Content: "Beta document text."},
	})
	if err != nil {
		t.Fatal(err)
	}

	after, err := rag.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if after != before+added {
		t.Errorf("count %d != %d + %d", after, before, added)
	}
}
