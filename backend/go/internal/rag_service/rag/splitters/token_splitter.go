package splitters

import "fmt"

// CharsPerToken is the heuristic used to turn token budgets into characters.
const CharsPerToken = 4

// NewTokenSplitter sizes a CharSplitter from token counts, assuming one token
// is roughly four characters. The minimum chunk size stays at the default.
func NewTokenSplitter(tokensPerChunk, overlapTokens int) (*CharSplitter, error) {
	if tokensPerChunk <= 0 {
		return nil, fmt.Errorf("tokens per chunk must be > 0, got %d", tokensPerChunk)
	}
	return NewCharSplitter(tokensPerChunk*CharsPerToken, overlapTokens*CharsPerToken, DefaultMinChunkSize)
}
