// Package indexer coordinates the end-to-end indexing pipeline for text corpora.
//
// A run reads a corpus, folds line breaks into spaces, chunks the text, embeds
// the chunks and then writes a chunk file, stores the corpus in SQLite, or both.
//
// # Basic Usage
//
//	idx := indexer.New(emb, store) // store may be nil
//
//	out, _ := os.Create("chunks.bin")
//	stats, err := idx.IndexCorpus(ctx, "corpus.txt", &indexer.Config{
//	    MaxLen: 500,
//	    Output: out,
//	})
//
//	fmt.Printf("Embedded %d chunks in %v\n", stats.ChunksEmbedded, stats.Duration)
//
// # Indexing Pipeline
//
//  1. Incremental Decision: compare the corpus hash and settings with storage
//  2. Chunk: normalize whitespace and split at word boundaries
//  3. Embed: batches of Config.BatchSize on Config.Workers concurrent requests
//  4. Write: chunk file records in corpus order
//  5. Store: chunks and embeddings replaced in one transaction
//
// # Incremental Indexing
//
// When a store is configured and the corpus was indexed before from identical
// bytes with the same maximum length, unit, provider and model, nothing is
// re-embedded. Statistics.Skipped is set and, if an output writer is given, the
// chunk file is rebuilt from the stored embeddings. Config.Force disables the check.
// A corpus with missing embeddings is always re-indexed.
//
// # Error Handling
//
// By default the first failed embedding batch cancels the remaining batches and
// the run fails. With Config.ContinueOnError the failure is recorded in
// Statistics.ErrorMessages and the affected chunks are left out of the chunk file
// and stored without embeddings.
//
// # Concurrency
//
// Batches are embedded concurrently; results are placed by chunk position so
// output order never depends on completion order. IndexLock lets long-running
// servers refuse a second concurrent run instead of queueing it.
package indexer
