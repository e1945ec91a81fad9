// Package storage provides SQLite-based persistence for indexed corpora.
//
// The storage layer manages:
//   - Corpus metadata (path, content hash, chunking parameters, embedding model)
//   - Chunks in corpus order
//   - Vector embeddings for chunks
//   - A full-text search index over chunk content
//
// # Database Schema
//
// Tables:
//   - corpora: one row per indexed file
//   - chunks: chunk text, position and character offsets
//   - embeddings: float32 vectors serialized little-endian
//   - chunks_fts: FTS5 index kept in sync with chunks by triggers
//
// Schema changes are applied by ApplyMigrations, ordered by semantic version.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("embedtext.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	corpus := &storage.Corpus{Path: "corpus.txt", MaxLen: 500}
//	if err := db.CreateCorpus(ctx, corpus); err != nil {
//	    return err
//	}
//
//	// Chunks receive their IDs on insert
//	if err := db.ReplaceChunks(ctx, corpus.ID, chunks); err != nil {
//	    return err
//	}
//
// # Transactions
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.ReplaceChunks(ctx, corpus.ID, chunks); err != nil {
//	    return err
//	}
//	for i, c := range chunks {
//	    _ = tx.UpsertEmbedding(ctx, storage.NewEmbedding(c.ID, vectors[i], "local", "local-hash"))
//	}
//	return tx.Commit()
//
// # Search
//
// SearchVector ranks chunks by cosine similarity to a query vector. SearchText runs
// an FTS5 query where each word of the input is an OR-ed term, and maps BM25 scores
// into (0, 1].
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (pure Go). Building with -tags sqlite_vec
// switches to mattn/go-sqlite3 and lets vector search use sqlite-vec when loaded.
package storage
