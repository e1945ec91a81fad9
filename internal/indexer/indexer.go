package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/embedtext/internal/chunker"
	"github.com/dshills/embedtext/internal/chunkfile"
	"github.com/dshills/embedtext/internal/embedder"
	"github.com/dshills/embedtext/internal/storage"
	"github.com/dshills/embedtext/pkg/types"
)

// ErrNoOutput is returned when an index run has neither a store nor an output writer
var ErrNoOutput = errors.New("no chunk file output or storage configured")

// Logger receives progress messages
type Logger interface {
	Printf(format string, args ...interface{})
}

// Indexer coordinates the indexing pipeline: read -> chunk -> embed -> write/store
type Indexer struct {
	embedder embedder.Embedder
	storage  storage.Storage // may be nil when only a chunk file is written
}

// Config contains configuration for one index run
type Config struct {
	MaxLen          int                  // Maximum chunk length in characters (default: chunker.DefaultMaxLen)
	Unit            chunker.Unit         // Character unit (default: runes)
	TokenCounter    chunker.TokenCounter // Token counter for chunk metadata (default: heuristic)
	Workers         int                  // Concurrent embedding requests (default: runtime.NumCPU())
	BatchSize       int                  // Chunks per embedding request (default: embedder.DefaultBatchSize)
	Force           bool                 // Re-index even when the corpus is unchanged
	ContinueOnError bool                 // Record failed batches and keep going instead of aborting
	Output          io.Writer            // Chunk file destination; nil writes none
	Logger          Logger               // Progress messages; nil is silent
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	CorpusID       int64
	Characters     int
	ChunksCreated  int
	ChunksEmbedded int
	ChunksFailed   int
	ChunksWritten  int
	Dimension      int
	Skipped        bool // Corpus unchanged; embeddings reused from storage
	Duration       time.Duration
	ErrorMessages  []string
}

// New creates a new Indexer. store may be nil.
func New(emb embedder.Embedder, store storage.Storage) *Indexer {
	return &Indexer{
		embedder: emb,
		storage:  store,
	}
}

func (c *Config) withDefaults() *Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.MaxLen == 0 {
		out.MaxLen = chunker.DefaultMaxLen
	}
	if out.Workers <= 0 {
		out.Workers = runtime.NumCPU()
	}
	if out.BatchSize <= 0 {
		out.BatchSize = embedder.DefaultBatchSize
	}
	if out.BatchSize > embedder.MaxBatchSize {
		out.BatchSize = embedder.MaxBatchSize
	}
	return &out
}

func (c *Config) logf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

// IndexCorpus reads the file at path and indexes its contents under that path
func (idx *Indexer) IndexCorpus(ctx context.Context, path string, config *Config) (*Statistics, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	return idx.IndexText(ctx, path, string(content), config)
}

// IndexText chunks and embeds text, writing the chunk file and/or storing it under name
func (idx *Indexer) IndexText(ctx context.Context, name, text string, config *Config) (*Statistics, error) {
	cfg := config.withDefaults()
	if cfg.Output == nil && idx.storage == nil {
		return nil, ErrNoOutput
	}

	tc, err := chunker.New(cfg.MaxLen, chunker.WithUnit(cfg.Unit), chunker.WithTokenCounter(cfg.TokenCounter))
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}
	hash := sha256.Sum256([]byte(text))

	if idx.storage != nil && !cfg.Force {
		corpus, unchanged, err := idx.checkUnchanged(ctx, name, hash, cfg)
		if err != nil {
			return nil, err
		}
		if unchanged {
			stats.Skipped = true
			stats.CorpusID = corpus.ID
			if cfg.Output != nil {
				if err := idx.exportChunkFile(ctx, corpus, cfg.Output, stats); err != nil {
					return nil, err
				}
			}
			stats.Duration = time.Since(startTime)
			cfg.logf("%s unchanged, %d chunks reused", name, stats.ChunksCreated)
			return stats, nil
		}
	}

	normalized := chunker.NormalizeWhitespace(text)
	chunks := tc.ChunkText(normalized)
	stats.ChunksCreated = len(chunks)
	stats.Characters = len([]rune(normalized))
	cfg.logf("%s: %d chunks (maxlen %d)", name, len(chunks), cfg.MaxLen)

	vectors, err := idx.embedChunks(ctx, chunks, cfg, stats)
	if err != nil {
		return nil, err
	}

	if cfg.Output != nil {
		if err := writeChunkFile(cfg.Output, chunks, vectors, stats); err != nil {
			return nil, fmt.Errorf("failed to write chunk file: %w", err)
		}
	}

	if idx.storage != nil {
		if err := idx.store(ctx, name, hash, cfg, chunks, vectors, stats); err != nil {
			return nil, fmt.Errorf("failed to store corpus: %w", err)
		}
	}

	stats.Duration = time.Since(startTime)
	return stats, nil
}

// checkUnchanged reports whether the stored corpus was built from the same text and settings
func (idx *Indexer) checkUnchanged(ctx context.Context, name string, hash [32]byte, cfg *Config) (*storage.Corpus, bool, error) {
	corpus, err := idx.storage.GetCorpus(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if corpus.ContentHash != hash || corpus.MaxLen != cfg.MaxLen || corpus.Unit != cfg.Unit.String() ||
		corpus.Provider != idx.embedder.Provider() || corpus.Model != idx.embedder.Model() {
		return corpus, false, nil
	}

	status, err := idx.storage.GetStatus(ctx, corpus.ID)
	if err != nil {
		return nil, false, err
	}
	complete := status.ChunksCount == corpus.TotalChunks && status.Health.EmbeddingsComplete
	return corpus, complete, nil
}

// embedChunks embeds chunks in batches on a bounded worker pool. The result is
// indexed like chunks; entries of failed batches stay nil.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []*types.Chunk, cfg *Config, stats *Statistics) ([]types.Vector, error) {
	vectors := make([]types.Vector, len(chunks))
	if len(chunks) == 0 {
		return vectors, nil
	}

	batches := (len(chunks) + cfg.BatchSize - 1) / cfg.BatchSize

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	var mu sync.Mutex // Protects stats
	done := 0

	for b := 0; b < batches; b++ {
		start := b * cfg.BatchSize
		end := min(start+cfg.BatchSize, len(chunks))

		g.Go(func() error {
			texts := make([]string, end-start)
			for i, c := range chunks[start:end] {
				texts[i] = c.Content
			}

			resp, err := idx.embedder.GenerateBatch(gctx, embedder.BatchEmbeddingRequest{Texts: texts})
			if err == nil && len(resp.Embeddings) != len(texts) {
				err = fmt.Errorf("%w: %d embeddings for %d chunks", embedder.ErrMalformedOutput, len(resp.Embeddings), len(texts))
			}

			mu.Lock()
			defer mu.Unlock()
			done++

			if err != nil {
				if !cfg.ContinueOnError || gctx.Err() != nil {
					return fmt.Errorf("chunks %d-%d: %w", start, end-1, err)
				}
				stats.ChunksFailed += len(texts)
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("chunks %d-%d: %v", start, end-1, err))
				cfg.logf("batch %d/%d failed: %v", done, batches, err)
				return nil
			}

			for i, emb := range resp.Embeddings {
				vectors[start+i] = emb.Vector
			}
			stats.ChunksEmbedded += len(texts)
			if stats.Dimension == 0 && len(resp.Embeddings) > 0 {
				stats.Dimension = len(resp.Embeddings[0].Vector)
			}
			cfg.logf("embedded batch %d/%d", done, batches)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	return vectors, nil
}

// writeChunkFile writes embedded chunks in corpus order
func writeChunkFile(w io.Writer, chunks []*types.Chunk, vectors []types.Vector, stats *Statistics) error {
	cw := chunkfile.NewWriter(w)
	for i, chunk := range chunks {
		if vectors[i] == nil {
			continue
		}
		if err := cw.Write(chunk.Content, vectors[i]); err != nil {
			return err
		}
	}
	if err := cw.Flush(); err != nil {
		return err
	}
	stats.ChunksWritten = cw.Count()
	return nil
}

// store replaces the stored chunks and embeddings of the corpus in one transaction
func (idx *Indexer) store(ctx context.Context, name string, hash [32]byte, cfg *Config,
	chunks []*types.Chunk, vectors []types.Vector, stats *Statistics) error {

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	corpus, err := tx.GetCorpus(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		corpus = &storage.Corpus{Path: name, MaxLen: cfg.MaxLen, Unit: cfg.Unit.String()}
		err = tx.CreateCorpus(ctx, corpus)
	}
	if err != nil {
		return err
	}

	stored := make([]*storage.Chunk, len(chunks))
	for i, c := range chunks {
		stored[i] = storage.FromTypesChunk(c, corpus.ID)
	}
	if err := tx.ReplaceChunks(ctx, corpus.ID, stored); err != nil {
		return err
	}

	for i, c := range stored {
		if vectors[i] == nil {
			continue
		}
		emb := storage.NewEmbedding(c.ID, vectors[i], idx.embedder.Provider(), idx.embedder.Model())
		if err := tx.UpsertEmbedding(ctx, emb); err != nil {
			return err
		}
		chunks[i].ID = c.ID
		chunks[i].CorpusID = corpus.ID
	}

	corpus.ContentHash = hash
	corpus.MaxLen = cfg.MaxLen
	corpus.Unit = cfg.Unit.String()
	corpus.Provider = idx.embedder.Provider()
	corpus.Model = idx.embedder.Model()
	corpus.TotalChunks = len(chunks)
	corpus.LastIndexedAt = time.Now()
	if err := tx.UpdateCorpus(ctx, corpus); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	stats.CorpusID = corpus.ID
	return nil
}

// exportChunkFile writes the chunk file of a stored corpus
func (idx *Indexer) exportChunkFile(ctx context.Context, corpus *storage.Corpus, w io.Writer, stats *Statistics) error {
	chunks, err := idx.storage.ListChunks(ctx, corpus.ID)
	if err != nil {
		return err
	}

	cw := chunkfile.NewWriter(w)
	for _, c := range chunks {
		emb, err := idx.storage.GetEmbedding(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", c.Position, err)
		}
		if err := cw.Write(c.Content, emb.Values()); err != nil {
			return err
		}
		stats.Dimension = emb.Dimension
	}
	if err := cw.Flush(); err != nil {
		return err
	}

	stats.ChunksCreated = len(chunks)
	stats.ChunksEmbedded = len(chunks)
	stats.ChunksWritten = cw.Count()
	return nil
}
