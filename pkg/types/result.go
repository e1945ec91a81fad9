package types

// SearchResult represents a single search result with relevance information
type SearchResult struct {
	// Identification
	ChunkID int64
	Rank    int // Position in result set (1-based)

	// Scoring
	RelevanceScore float64 // Vector similarity, normalized BM25, or RRF score

	// Metadata
	Corpus  *CorpusInfo
	Content string // Chunk content
}

// CorpusInfo locates a search result inside its corpus
type CorpusInfo struct {
	Path        string
	ChunkIndex  int
	StartOffset int
	EndOffset   int
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.ChunkID == 0 {
		return ErrInvalidChunkID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.RelevanceScore < 0 || sr.RelevanceScore > 1 {
		return ErrInvalidRelevanceScore
	}

	if sr.Corpus == nil {
		return ErrMissingCorpusInfo
	}

	if sr.Content == "" {
		return ErrEmptyContent
	}

	return nil
}
