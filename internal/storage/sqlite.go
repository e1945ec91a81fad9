package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
	// ErrEmptyQuery is returned when a text search query has no searchable terms
	ErrEmptyQuery = errors.New("empty search query")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// isUniqueViolation matches the constraint error text of both drivers
func isUniqueViolation(err error) bool {
	return err != nil && containsAny(err.Error(), "UNIQUE constraint failed", "constraint failed: UNIQUE")
}

// Corpus operations

const corpusColumns = `id, path, content_hash, maxlen, unit, provider, model, total_chunks,
       index_version, last_indexed_at, created_at, updated_at`

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCorpus(row scanner) (*Corpus, error) {
	var corpus Corpus
	var hash []byte
	var provider, model sql.NullString
	var lastIndexedAt sql.NullTime
	err := row.Scan(
		&corpus.ID, &corpus.Path, &hash, &corpus.MaxLen, &corpus.Unit,
		&provider, &model, &corpus.TotalChunks, &corpus.IndexVersion,
		&lastIndexedAt, &corpus.CreatedAt, &corpus.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(corpus.ContentHash[:], hash)
	corpus.Provider = provider.String
	corpus.Model = model.String
	if lastIndexedAt.Valid {
		corpus.LastIndexedAt = lastIndexedAt.Time
	}
	return &corpus, nil
}

// createCorpusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createCorpusWithQuerier(ctx context.Context, q querier, corpus *Corpus) error {
	query := `
		INSERT INTO corpora (path, content_hash, maxlen, unit, provider, model, index_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if corpus.Unit == "" {
		corpus.Unit = "runes"
	}
	if corpus.IndexVersion == "" {
		corpus.IndexVersion = CurrentSchemaVersion
	}
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		corpus.Path, corpus.ContentHash[:], corpus.MaxLen, corpus.Unit,
		corpus.Provider, corpus.Model, corpus.IndexVersion, now, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: corpus %s", ErrAlreadyExists, corpus.Path)
	}
	if err != nil {
		return fmt.Errorf("failed to create corpus: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	corpus.ID = id
	corpus.CreatedAt = now
	corpus.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateCorpus(ctx context.Context, corpus *Corpus) error {
	return s.createCorpusWithQuerier(ctx, s.querier(), corpus)
}

// getCorpusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getCorpusWithQuerier(ctx context.Context, q querier, path string) (*Corpus, error) {
	query := `SELECT ` + corpusColumns + ` FROM corpora WHERE path = ?`
	corpus, err := scanCorpus(q.QueryRowContext(ctx, query, path))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return corpus, err
}

func (s *SQLiteStorage) GetCorpus(ctx context.Context, path string) (*Corpus, error) {
	return s.getCorpusWithQuerier(ctx, s.querier(), path)
}

// getCorpusByIDWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getCorpusByIDWithQuerier(ctx context.Context, q querier, corpusID int64) (*Corpus, error) {
	query := `SELECT ` + corpusColumns + ` FROM corpora WHERE id = ?`
	corpus, err := scanCorpus(q.QueryRowContext(ctx, query, corpusID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return corpus, err
}

func (s *SQLiteStorage) GetCorpusByID(ctx context.Context, corpusID int64) (*Corpus, error) {
	return s.getCorpusByIDWithQuerier(ctx, s.querier(), corpusID)
}

// updateCorpusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) updateCorpusWithQuerier(ctx context.Context, q querier, corpus *Corpus) error {
	query := `
		UPDATE corpora
		SET content_hash = ?, maxlen = ?, unit = ?, provider = ?, model = ?,
		    total_chunks = ?, last_indexed_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		corpus.ContentHash[:], corpus.MaxLen, corpus.Unit, corpus.Provider, corpus.Model,
		corpus.TotalChunks, corpus.LastIndexedAt, now, corpus.ID)
	if err != nil {
		return fmt.Errorf("failed to update corpus: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	corpus.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateCorpus(ctx context.Context, corpus *Corpus) error {
	return s.updateCorpusWithQuerier(ctx, s.querier(), corpus)
}

// listCorporaWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listCorporaWithQuerier(ctx context.Context, q querier) ([]*Corpus, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+corpusColumns+` FROM corpora ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	corpora := make([]*Corpus, 0)
	for rows.Next() {
		corpus, err := scanCorpus(rows)
		if err != nil {
			return nil, err
		}
		corpora = append(corpora, corpus)
	}
	return corpora, rows.Err()
}

func (s *SQLiteStorage) ListCorpora(ctx context.Context) ([]*Corpus, error) {
	return s.listCorporaWithQuerier(ctx, s.querier())
}

// deleteCorpusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteCorpusWithQuerier(ctx context.Context, q querier, corpusID int64) error {
	if err := s.deleteChunksByCorpusWithQuerier(ctx, q, corpusID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `DELETE FROM corpora WHERE id = ?`, corpusID)
	return err
}

func (s *SQLiteStorage) DeleteCorpus(ctx context.Context, corpusID int64) error {
	return s.withTx(ctx, func(q querier) error {
		return s.deleteCorpusWithQuerier(ctx, q, corpusID)
	})
}

// withTx runs fn in a new transaction, committing on success
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Chunk operations

const chunkColumns = `id, corpus_id, position, content, content_hash, token_count,
       start_offset, end_offset, created_at, updated_at`

func scanChunk(row scanner) (*Chunk, error) {
	var chunk Chunk
	var hash []byte
	var tokenCount sql.NullInt64
	err := row.Scan(
		&chunk.ID, &chunk.CorpusID, &chunk.Position, &chunk.Content, &hash, &tokenCount,
		&chunk.StartOffset, &chunk.EndOffset, &chunk.CreatedAt, &chunk.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(chunk.ContentHash[:], hash)
	chunk.TokenCount = int(tokenCount.Int64)
	return &chunk, nil
}

const upsertChunkQuery = `
	INSERT INTO chunks (corpus_id, position, content, content_hash, token_count, start_offset, end_offset, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(corpus_id, position) DO UPDATE SET
		content = excluded.content,
		content_hash = excluded.content_hash,
		token_count = excluded.token_count,
		start_offset = excluded.start_offset,
		end_offset = excluded.end_offset,
		updated_at = excluded.updated_at
	RETURNING id
`

// upsertChunkWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertChunkWithQuerier(ctx context.Context, q querier, chunk *Chunk) error {
	now := time.Now()
	err := q.QueryRowContext(ctx, upsertChunkQuery,
		chunk.CorpusID, chunk.Position, chunk.Content, chunk.ContentHash[:], chunk.TokenCount,
		chunk.StartOffset, chunk.EndOffset, now, now).Scan(&chunk.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}
	chunk.CreatedAt = now
	chunk.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertChunk(ctx context.Context, chunk *Chunk) error {
	return s.upsertChunkWithQuerier(ctx, s.querier(), chunk)
}

// replaceChunksWithQuerier deletes the corpus' chunks (and their embeddings) and inserts chunks in order
func (s *SQLiteStorage) replaceChunksWithQuerier(ctx context.Context, q querier, corpusID int64, chunks []*Chunk) error {
	if err := s.deleteChunksByCorpusWithQuerier(ctx, q, corpusID); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	stmt, err := q.PrepareContext(ctx, upsertChunkQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, chunk := range chunks {
		chunk.CorpusID = corpusID
		err := stmt.QueryRowContext(ctx,
			chunk.CorpusID, chunk.Position, chunk.Content, chunk.ContentHash[:], chunk.TokenCount,
			chunk.StartOffset, chunk.EndOffset, now, now).Scan(&chunk.ID)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.Position, err)
		}
		chunk.CreatedAt = now
		chunk.UpdatedAt = now
	}
	return nil
}

// ReplaceChunks atomically swaps the stored chunks of a corpus for chunks, assigning their IDs
func (s *SQLiteStorage) ReplaceChunks(ctx context.Context, corpusID int64, chunks []*Chunk) error {
	return s.withTx(ctx, func(q querier) error {
		return s.replaceChunksWithQuerier(ctx, q, corpusID, chunks)
	})
}

// getChunkWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getChunkWithQuerier(ctx context.Context, q querier, chunkID int64) (*Chunk, error) {
	chunk, err := scanChunk(q.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, chunkID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return chunk, err
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID int64) (*Chunk, error) {
	return s.getChunkWithQuerier(ctx, s.querier(), chunkID)
}

// listChunksWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listChunksWithQuerier(ctx context.Context, q querier, corpusID int64) ([]*Chunk, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE corpus_id = ? ORDER BY position`, corpusID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*Chunk, 0)
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) ListChunks(ctx context.Context, corpusID int64) ([]*Chunk, error) {
	return s.listChunksWithQuerier(ctx, s.querier(), corpusID)
}

// deleteChunksByCorpusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteChunksByCorpusWithQuerier(ctx context.Context, q querier, corpusID int64) error {
	// Explicit so the result does not depend on the foreign_keys pragma
	if _, err := q.ExecContext(ctx,
		`DELETE FROM embeddings WHERE chunk_id IN (SELECT id FROM chunks WHERE corpus_id = ?)`, corpusID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE corpus_id = ?`, corpusID)
	return err
}

func (s *SQLiteStorage) DeleteChunksByCorpus(ctx context.Context, corpusID int64) error {
	return s.withTx(ctx, func(q querier) error {
		return s.deleteChunksByCorpusWithQuerier(ctx, q, corpusID)
	})
}

// Embedding operations

// upsertEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	query := `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		embedding.ChunkID, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, now).Scan(&embedding.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}

	embedding.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

// getEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getEmbeddingWithQuerier(ctx context.Context, q querier, chunkID int64) (*Embedding, error) {
	query := `
		SELECT id, chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE chunk_id = ?
	`
	var embedding Embedding
	err := q.QueryRowContext(ctx, query, chunkID).Scan(
		&embedding.ID, &embedding.ChunkID, &embedding.Vector,
		&embedding.Dimension, &embedding.Provider, &embedding.Model,
		&embedding.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &embedding, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.querier(), chunkID)
}

// deleteEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteEmbeddingWithQuerier(ctx context.Context, q querier, chunkID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM embeddings WHERE chunk_id = ?`, chunkID)
	return err
}

func (s *SQLiteStorage) DeleteEmbedding(ctx context.Context, chunkID int64) error {
	return s.deleteEmbeddingWithQuerier(ctx, s.querier(), chunkID)
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, corpusID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, s.querier(), corpusID, queryVector, limit, filters)
}

func (s *SQLiteStorage) SearchText(ctx context.Context, corpusID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, s.querier(), corpusID, query, limit, filters)
}

// Status operations

// getStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, corpusID int64) (*CorpusStatus, error) {
	corpus, err := s.getCorpusByIDWithQuerier(ctx, q, corpusID)
	if err != nil {
		return nil, err
	}

	status := &CorpusStatus{
		Corpus:        corpus,
		LastIndexedAt: corpus.LastIndexedAt,
	}

	err = q.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE corpus_id = ?", corpusID).Scan(&status.ChunksCount)
	if err != nil {
		return nil, err
	}

	var dimension sql.NullInt64
	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*), MAX(e.dimension) FROM embeddings e
		JOIN chunks c ON e.chunk_id = c.id
		WHERE c.corpus_id = ?
	`, corpusID).Scan(&status.EmbeddingsCount, &dimension)
	if err != nil {
		return nil, err
	}
	status.Dimension = int(dimension.Int64)

	// Calculate database size
	var pageCount, pageSize int
	err = q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	var ftsName string
	ftsErr := q.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE name = 'chunks_fts'").Scan(&ftsName)

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.EmbeddingsCount > 0,
		EmbeddingsComplete:  status.EmbeddingsCount == status.ChunksCount,
		FTSIndexesBuilt:     ftsErr == nil,
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, corpusID int64) (*CorpusStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), corpusID)
}

// Transaction implementations route every operation through the transaction

func (t *sqliteTx) CreateCorpus(ctx context.Context, corpus *Corpus) error {
	return t.storage.createCorpusWithQuerier(ctx, t.querier(), corpus)
}

func (t *sqliteTx) GetCorpus(ctx context.Context, path string) (*Corpus, error) {
	return t.storage.getCorpusWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) GetCorpusByID(ctx context.Context, corpusID int64) (*Corpus, error) {
	return t.storage.getCorpusByIDWithQuerier(ctx, t.querier(), corpusID)
}

func (t *sqliteTx) UpdateCorpus(ctx context.Context, corpus *Corpus) error {
	return t.storage.updateCorpusWithQuerier(ctx, t.querier(), corpus)
}

func (t *sqliteTx) ListCorpora(ctx context.Context) ([]*Corpus, error) {
	return t.storage.listCorporaWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteCorpus(ctx context.Context, corpusID int64) error {
	return t.storage.deleteCorpusWithQuerier(ctx, t.querier(), corpusID)
}

func (t *sqliteTx) ReplaceChunks(ctx context.Context, corpusID int64, chunks []*Chunk) error {
	return t.storage.replaceChunksWithQuerier(ctx, t.querier(), corpusID, chunks)
}

func (t *sqliteTx) UpsertChunk(ctx context.Context, chunk *Chunk) error {
	return t.storage.upsertChunkWithQuerier(ctx, t.querier(), chunk)
}

func (t *sqliteTx) GetChunk(ctx context.Context, chunkID int64) (*Chunk, error) {
	return t.storage.getChunkWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) ListChunks(ctx context.Context, corpusID int64) ([]*Chunk, error) {
	return t.storage.listChunksWithQuerier(ctx, t.querier(), corpusID)
}

func (t *sqliteTx) DeleteChunksByCorpus(ctx context.Context, corpusID int64) error {
	return t.storage.deleteChunksByCorpusWithQuerier(ctx, t.querier(), corpusID)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.querier(), embedding)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	return t.storage.getEmbeddingWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) DeleteEmbedding(ctx context.Context, chunkID int64) error {
	return t.storage.deleteEmbeddingWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) SearchVector(ctx context.Context, corpusID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, t.querier(), corpusID, vector, limit, filters)
}

func (t *sqliteTx) SearchText(ctx context.Context, corpusID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, t.querier(), corpusID, query, limit, filters)
}

func (t *sqliteTx) GetStatus(ctx context.Context, corpusID int64) (*CorpusStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), corpusID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
