// Command embed-corpus chunks a text file, embeds every chunk and writes the
// chunk file: one line of chunk text followed by one line of vector values.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dshills/embedtext/internal/config"
	"github.com/dshills/embedtext/internal/embedder"
	"github.com/dshills/embedtext/internal/indexer"
	"github.com/dshills/embedtext/internal/storage"
)

func main() {
	os.Exit(run())
}

// run returns the exit status so the embedder and database are closed before exit.
// Status 2 means some chunks could not be embedded.
func run() int {
	configPath := flag.String("config", "", "Path to YAML config file (default ./"+config.DefaultFileName+" if present)")
	in := flag.String("in", "corpus.txt", "Corpus text file")
	out := flag.String("out", "chunks.bin", "Chunk file to write; empty writes none")
	maxLen := flag.Int("maxlen", 0, "Maximum chunk length in characters (default from config, 500)")
	dbPath := flag.String("db", "", "Also store chunks and embeddings in this SQLite database")
	force := flag.Bool("force", false, "Re-embed even when the database holds this corpus unchanged")
	workers := flag.Int("workers", 0, "Concurrent embedding requests (default from config, number of CPUs)")
	continueOnError := flag.Bool("continue-on-error", false, "Skip chunks whose embedding fails instead of aborting")
	verbose := flag.Bool("v", false, "Log progress")
	flag.Parse()

	log.SetOutput(os.Stderr)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}
	if *maxLen != 0 {
		cfg.Chunker.MaxLen = *maxLen
	}
	if *workers != 0 {
		cfg.Indexer.Workers = *workers
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		log.Printf("Failed to initialize embedder: %v", err)
		return 1
	}
	defer func() { _ = emb.Close() }()

	var store storage.Storage
	if *dbPath != "" {
		path, err := config.ExpandHome(*dbPath)
		if err != nil {
			log.Printf("Invalid database path: %v", err)
			return 1
		}
		sqlite, err := storage.NewSQLiteStorage(path)
		if err != nil {
			log.Printf("Failed to open database: %v", err)
			return 1
		}
		defer func() { _ = sqlite.Close() }()
		store = sqlite
	}

	idxCfg := &indexer.Config{
		MaxLen:          cfg.Chunker.MaxLen,
		Unit:            cfg.Unit(),
		Workers:         cfg.Indexer.Workers,
		BatchSize:       cfg.Embedder.BatchSize,
		Force:           *force,
		ContinueOnError: *continueOnError || cfg.Indexer.ContinueOnError,
	}
	if *verbose {
		idxCfg.Logger = log.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	corpusPath, err := filepath.Abs(*in)
	if err != nil {
		log.Printf("Invalid corpus path: %v", err)
		return 1
	}

	stats, err := indexCorpus(ctx, indexer.New(emb, store), corpusPath, *out, idxCfg)
	if err != nil {
		log.Printf("Indexing failed: %v", err)
		return 1
	}

	if stats.Skipped {
		log.Printf("%s unchanged, reused %d stored chunks", *in, stats.ChunksCreated)
	}
	log.Printf("Embedded %d of %d chunks (%d characters, dimension %d) in %v",
		stats.ChunksEmbedded, stats.ChunksCreated, stats.Characters, stats.Dimension, stats.Duration)
	for _, msg := range stats.ErrorMessages {
		log.Printf("error: %s", msg)
	}
	if stats.ChunksFailed > 0 {
		return 2
	}
	return 0
}

// indexCorpus indexes the corpus, writing the chunk file through a temporary file that
// replaces outPath only when the run succeeds
func indexCorpus(ctx context.Context, idx *indexer.Indexer, corpusPath, outPath string, cfg *indexer.Config) (*indexer.Statistics, error) {
	if outPath == "" {
		return idx.IndexCorpus(ctx, corpusPath, cfg)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	_ = tmp.Chmod(0o644)

	cfg.Output = tmp
	stats, err := idx.IndexCorpus(ctx, corpusPath, cfg)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to write output: %w", closeErr)
	}
	if err != nil {
		return nil, err
	}

	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	return stats, nil
}
