package types

import (
	"crypto/sha256"
	"errors"
	"unicode/utf8"
)

// Chunk represents a bounded-length section of a corpus, produced for a single embedding call
type Chunk struct {
	// Identification
	ID       int64
	CorpusID int64
	Index    int // Position in the chunk sequence (0-based)

	// Content
	Content     string
	ContentHash [32]byte // SHA-256 hash for deduplication
	TokenCount  int

	// Location, in characters of the normalized corpus: Content == corpus[StartOffset:EndOffset]
	StartOffset int
	EndOffset   int
}

// CharCount returns the number of characters (runes) in the chunk content
func (c *Chunk) CharCount() int {
	return utf8.RuneCountInString(c.Content)
}

// ComputeContentHash computes the SHA-256 hash of the chunk content
func (c *Chunk) ComputeContentHash() {
	c.ContentHash = sha256.Sum256([]byte(c.Content))
}

// ValidateContent checks if the chunk content is valid
func (c *Chunk) ValidateContent() error {
	if c.Content == "" {
		return ErrEmptyContent
	}

	if c.StartOffset < 0 || c.EndOffset < 0 {
		return errors.New("offsets must not be negative")
	}

	if c.StartOffset >= c.EndOffset {
		return errors.New("start offset must be before end offset")
	}

	return nil
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if err := c.ValidateContent(); err != nil {
		return err
	}

	if c.Index < 0 {
		return ErrInvalidChunkIndex
	}

	// Verify content hash is computed
	var zeroHash [32]byte
	if c.ContentHash == zeroHash {
		return errors.New("content hash must be computed")
	}

	return nil
}
