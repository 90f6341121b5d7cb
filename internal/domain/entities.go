package domain

// Document is a raw text document handed to the indexing path.
// It is never mutated after creation.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Chunk is a bounded substring of a document, the unit that is
// embedded and indexed. Seq is the 0-based position of the chunk
// within its source document.
type Chunk struct {
	Text     string
	Metadata map[string]string
	Seq      int
}

// SearchResult is one retrieved chunk with its relevance score.
// Score scale depends on the index backend and is not comparable
// across backends.
type SearchResult struct {
	Content  string
	Metadata map[string]string
	Score    float64
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single message in a generation request.
type ChatMessage struct {
	Role    string
	Content string
}

// Usage holds token accounting reported by the generation provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Normalized finish reasons. Provider vocabulary ("end_turn",
// "max_tokens", ...) is mapped to these at the adapter boundary.
const (
	FinishStop          = "stop"
	FinishLength        = "length"
	FinishContentFilter = "content_filter"
	FinishUnknown       = ""
)

// GenerationResult is a complete response from a generation provider.
type GenerationResult struct {
	Content      string
	Model        string
	Usage        Usage
	FinishReason string
}

// SourceExcerpt is a citation entry attached to an answer. Content is
// truncated for display; the full chunk text was used in the prompt.
type SourceExcerpt struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
}

// Answer is the packaged result of a RAG query.
type Answer struct {
	ID      string          `json:"id"`
	Answer  string          `json:"answer"`
	Sources []SourceExcerpt `json:"sources"`
	Model   string          `json:"model"`
	Usage   Usage           `json:"usage"`
}
