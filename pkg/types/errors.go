package types

import "errors"

// Domain errors for type validation
var (
	// Chunk errors
	ErrEmptyContent      = errors.New("content cannot be empty")
	ErrInvalidChunkIndex = errors.New("chunk index must be >= 0")

	// Vector errors
	ErrEmptyVector        = errors.New("vector has no components")
	ErrMalformedComponent = errors.New("malformed vector component")

	// Search result errors
	ErrInvalidChunkID        = errors.New("invalid chunk ID")
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
	ErrMissingCorpusInfo     = errors.New("corpus info is required")
)
