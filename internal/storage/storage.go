package storage

import (
	"context"
	"time"

	"github.com/dshills/embedtext/pkg/types"
)

// Storage defines the interface for persisting and querying indexed corpora
type Storage interface {
	// Corpus operations
	CreateCorpus(ctx context.Context, corpus *Corpus) error
	GetCorpus(ctx context.Context, path string) (*Corpus, error)
	GetCorpusByID(ctx context.Context, corpusID int64) (*Corpus, error)
	UpdateCorpus(ctx context.Context, corpus *Corpus) error
	ListCorpora(ctx context.Context) ([]*Corpus, error)
	DeleteCorpus(ctx context.Context, corpusID int64) error

	// Chunk operations
	ReplaceChunks(ctx context.Context, corpusID int64, chunks []*Chunk) error
	UpsertChunk(ctx context.Context, chunk *Chunk) error
	GetChunk(ctx context.Context, chunkID int64) (*Chunk, error)
	ListChunks(ctx context.Context, corpusID int64) ([]*Chunk, error)
	DeleteChunksByCorpus(ctx context.Context, corpusID int64) error

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error)
	DeleteEmbedding(ctx context.Context, chunkID int64) error

	// Search operations
	SearchVector(ctx context.Context, corpusID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error)
	SearchText(ctx context.Context, corpusID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error)

	// Status operations
	GetStatus(ctx context.Context, corpusID int64) (*CorpusStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Corpus represents one indexed text file
type Corpus struct {
	ID            int64
	Path          string
	ContentHash   [32]byte // SHA-256 of the raw file contents
	MaxLen        int
	Unit          string // Character unit the chunks were measured in
	Provider      string
	Model         string
	TotalChunks   int
	IndexVersion  string
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Chunk represents one stored chunk of a corpus
type Chunk struct {
	ID          int64
	CorpusID    int64
	Position    int // Order within the corpus, from 0
	Content     string
	ContentHash [32]byte
	TokenCount  int
	StartOffset int
	EndOffset   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Embedding represents a vector embedding for a chunk
type Embedding struct {
	ID        int64
	ChunkID   int64
	Vector    []byte // Serialized float32 array
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// SearchFilters contains filters for narrowing search results
type SearchFilters struct {
	MinRelevance float64 // Minimum relevance score
	FromPosition int     // First chunk position to consider
	ToPosition   int     // Last chunk position to consider; zero means no bound
}

// VectorResult represents a result from vector similarity search
type VectorResult struct {
	ChunkID         int64
	SimilarityScore float64
}

// TextResult represents a result from full-text search
type TextResult struct {
	ChunkID   int64
	BM25Score float64
}

// CorpusStatus contains statistics about an indexed corpus
type CorpusStatus struct {
	Corpus          *Corpus
	ChunksCount     int
	EmbeddingsCount int
	Dimension       int
	IndexSizeMB     float64
	LastIndexedAt   time.Time
	Health          HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	EmbeddingsComplete  bool // Every chunk has an embedding
	FTSIndexesBuilt     bool
}

// ToTypesChunk converts storage Chunk to types.Chunk
func (c *Chunk) ToTypesChunk() *types.Chunk {
	return &types.Chunk{
		ID:          c.ID,
		CorpusID:    c.CorpusID,
		Index:       c.Position,
		Content:     c.Content,
		ContentHash: c.ContentHash,
		TokenCount:  c.TokenCount,
		StartOffset: c.StartOffset,
		EndOffset:   c.EndOffset,
	}
}

// FromTypesChunk converts types.Chunk to storage Chunk
func FromTypesChunk(c *types.Chunk, corpusID int64) *Chunk {
	return &Chunk{
		ID:          c.ID,
		CorpusID:    corpusID,
		Position:    c.Index,
		Content:     c.Content,
		ContentHash: c.ContentHash,
		TokenCount:  c.TokenCount,
		StartOffset: c.StartOffset,
		EndOffset:   c.EndOffset,
	}
}

// NewEmbedding builds a storage Embedding for chunkID from a vector
func NewEmbedding(chunkID int64, vector types.Vector, provider, model string) *Embedding {
	return &Embedding{
		ChunkID:   chunkID,
		Vector:    serializeVector(vector),
		Dimension: len(vector),
		Provider:  provider,
		Model:     model,
	}
}

// Values deserializes the stored vector
func (e *Embedding) Values() types.Vector {
	return deserializeVector(e.Vector)
}
