package splitters

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/schema"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
	DefaultMinChunkSize = 100

	// sentenceLookBack is how far before a candidate cut we look for a sentence end.
	sentenceLookBack = 100
)

// CharSplitter cuts text into overlapping, sentence-aware windows measured in
// characters (runes).
type CharSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

// NewCharSplitter validates the sizes and returns a splitter. An overlap at or
// above the chunk size is accepted; the splitter then advances without overlap.
func NewCharSplitter(chunkSize, chunkOverlap, minChunkSize int) (*CharSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be > 0, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be >= 0, got %d", chunkOverlap)
	}
	if minChunkSize < 0 {
		return nil, fmt.Errorf("min chunk size must be >= 0, got %d", minChunkSize)
	}
	return &CharSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		MinChunkSize: minChunkSize,
	}, nil
}

// NewDefaultCharSplitter returns a splitter with the 800/100/100 defaults.
func NewDefaultCharSplitter() *CharSplitter {
	return &CharSplitter{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		MinChunkSize: DefaultMinChunkSize,
	}
}

// Split walks the text window by window. Each window ends at the last '.', '?'
// or '!' found in its final 100 characters, or at the size limit otherwise.
// Windows whose trimmed text is shorter than MinChunkSize are dropped.
func (s *CharSplitter) Split(text string) []schema.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []schema.Chunk
	start := 0
	for start < n {
		end := start + s.ChunkSize
		if end > n {
			end = n
		}
		if end < n {
			end = sentenceEnd(runes, start, end)
		}

		trimmed := strings.TrimSpace(string(runes[start:end]))
		if length := utf8.RuneCountInString(trimmed); length >= s.MinChunkSize && length > 0 {
			chunks = append(chunks, schema.Chunk{
				Text:      trimmed,
				Index:     len(chunks),
				StartChar: start,
				EndChar:   end,
				Length:    length,
			})
		}

		if end == n {
			break
		}
		next := end - s.ChunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// sentenceEnd returns the offset just past the rightmost sentence terminator in
// the look-back window before end, or end itself when there is none.
func sentenceEnd(runes []rune, start, end int) int {
	from := end - sentenceLookBack
	if from < start {
		from = start
	}
	for i := end - 1; i >= from; i-- {
		switch runes[i] {
		case '.', '?', '!':
			return i + 1
		}
	}
	return end
}

// compile-time check to ensure CharSplitter implements the Splitter interface
var _ interfaces.Splitter = (*CharSplitter)(nil)
