package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// TokensPerChar is the heuristic for estimating tokens (chars/4)
	TokensPerChar = 4

	// DefaultEncoding is the tiktoken encoding used by current OpenAI embedding models
	DefaultEncoding = "cl100k_base"
)

// TokenCounter counts the tokens a chunk will cost the embedding model
type TokenCounter interface {
	Count(text string) int
}

// HeuristicCounter estimates tokens as bytes/4
type HeuristicCounter struct{}

// Count estimates the number of tokens in text
func (HeuristicCounter) Count(text string) int {
	return EstimateTokenCount(text)
}

// TikTokenCounter counts tokens exactly with a tiktoken BPE encoding
type TikTokenCounter struct {
	tke *tiktoken.Tiktoken
}

// NewTikTokenCounter creates a counter for the given encoding (e.g. "cl100k_base").
// The encoding tables are downloaded on first use unless TIKTOKEN_CACHE_DIR holds them.
func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding %s: %w", encoding, err)
	}
	return &TikTokenCounter{tke: tke}, nil
}

// Count returns the number of tokens in text
func (t *TikTokenCounter) Count(text string) int {
	return len(t.tke.Encode(text, nil, nil))
}

// EstimateTokenCount estimates the number of tokens in a string
func EstimateTokenCount(text string) int {
	return len(text) / TokensPerChar
}
