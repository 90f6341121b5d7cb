package chunker

import (
	"strings"
	"unicode/utf8"

	"ragapi/internal/domain"
)

// separators are tried largest-first when cutting a chunk: paragraph
// break, line break, word break, then a raw character cut.
var separators = []string{"\n\n", "\n", " "}

// Splitter cuts document text into overlapping fixed-size chunks,
// preferring natural boundaries over mid-sentence cuts. Splitting is
// deterministic for a given document and parameters.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a splitter. Parameters are assumed validated by
// config.Validate: size > 0 and 0 <= overlap < size.
func NewSplitter(size, overlap int) *Splitter {
	return &Splitter{size: size, overlap: overlap}
}

func (s *Splitter) Chunk(doc domain.Document) []domain.Chunk {
	text := doc.Content
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []domain.Chunk
	start := 0
	seq := 0

	for start < len(text) {
		end := start + s.size
		if end >= len(text) {
			end = len(text)
		} else {
			end = s.cut(text, start, end)
		}

		piece := text[start:end]
		if strings.TrimSpace(piece) != "" {
			chunks = append(chunks, domain.Chunk{
				Text:     piece,
				Metadata: doc.Metadata,
				Seq:      seq,
			})
			seq++
		}

		if end == len(text) {
			break
		}

		next := end - s.overlap
		// Progress is guaranteed even when the overlap eats the whole
		// chunk (a degenerate but legal parameter combination).
		if next <= start {
			next = start + 1
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}

	return chunks
}

// cut returns the end offset for a chunk starting at start, at most
// limit. It prefers the last natural separator inside the window and
// falls back to a raw cut on a rune boundary when none exists.
func (s *Splitter) cut(text string, start, limit int) int {
	for limit > start && !utf8.RuneStart(text[limit]) {
		limit--
	}
	window := text[start:limit]

	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i > 0 {
			return start + i + len(sep)
		}
	}
	return limit
}
