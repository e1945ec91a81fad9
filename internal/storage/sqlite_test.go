package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/embedtext/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func createTestCorpus(t *testing.T, s *SQLiteStorage, path string) *Corpus {
	t.Helper()
	corpus := &Corpus{Path: path, MaxLen: 500, Provider: "local", Model: "local-hash"}
	require.NoError(t, s.CreateCorpus(context.Background(), corpus))
	return corpus
}

func makeChunks(contents ...string) []*Chunk {
	chunks := make([]*Chunk, len(contents))
	offset := 0
	for i, content := range contents {
		chunks[i] = &Chunk{
			Position:    i,
			Content:     content,
			ContentHash: sha256.Sum256([]byte(content)),
			TokenCount:  len(content) / 4,
			StartOffset: offset,
			EndOffset:   offset + len(content),
		}
		offset += len(content) + 1
	}
	return chunks
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)

	version, err := SchemaVersion(context.Background(), storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestNewSQLiteStorage_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	corpus := &Corpus{Path: "corpus.txt", MaxLen: 100}
	require.NoError(t, s.CreateCorpus(ctx, corpus))
	require.NoError(t, s.Close())

	// Reopening applies no migrations twice and keeps data
	s, err = NewSQLiteStorage(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetCorpus(ctx, "corpus.txt")
	require.NoError(t, err)
	assert.Equal(t, corpus.ID, got.ID)
}

func TestCreateCorpus(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	corpus := &Corpus{
		Path:        "/data/corpus.txt",
		ContentHash: sha256.Sum256([]byte("text")),
		MaxLen:      500,
		Unit:        "graphemes",
		Provider:    "jina",
		Model:       "jina-embeddings-v3",
	}
	require.NoError(t, storage.CreateCorpus(ctx, corpus))
	assert.Greater(t, corpus.ID, int64(0))
	assert.Equal(t, CurrentSchemaVersion, corpus.IndexVersion)

	got, err := storage.GetCorpus(ctx, "/data/corpus.txt")
	require.NoError(t, err)
	assert.Equal(t, corpus.ContentHash, got.ContentHash)
	assert.Equal(t, 500, got.MaxLen)
	assert.Equal(t, "graphemes", got.Unit)
	assert.Equal(t, "jina", got.Provider)
	assert.Equal(t, "jina-embeddings-v3", got.Model)

	// Duplicate path
	err = storage.CreateCorpus(ctx, &Corpus{Path: "/data/corpus.txt", MaxLen: 10})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateCorpus_DefaultUnit(t *testing.T) {
	storage := setupTestDB(t)
	corpus := createTestCorpus(t, storage, "a.txt")

	got, err := storage.GetCorpusByID(context.Background(), corpus.ID)
	require.NoError(t, err)
	assert.Equal(t, "runes", got.Unit)
}

func TestGetCorpus_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	_, err := storage.GetCorpus(ctx, "/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = storage.GetCorpusByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCorpus(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	corpus := createTestCorpus(t, storage, "a.txt")

	corpus.TotalChunks = 7
	corpus.MaxLen = 250
	corpus.ContentHash = sha256.Sum256([]byte("new"))
	corpus.LastIndexedAt = time.Now().Truncate(time.Second)
	require.NoError(t, storage.UpdateCorpus(ctx, corpus))

	got, err := storage.GetCorpusByID(ctx, corpus.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.TotalChunks)
	assert.Equal(t, 250, got.MaxLen)
	assert.Equal(t, corpus.ContentHash, got.ContentHash)
	assert.WithinDuration(t, corpus.LastIndexedAt, got.LastIndexedAt, time.Second)

	err = storage.UpdateCorpus(ctx, &Corpus{ID: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDeleteCorpora(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	b := createTestCorpus(t, storage, "b.txt")
	createTestCorpus(t, storage, "a.txt")

	corpora, err := storage.ListCorpora(ctx)
	require.NoError(t, err)
	require.Len(t, corpora, 2)
	assert.Equal(t, "a.txt", corpora[0].Path)
	assert.Equal(t, "b.txt", corpora[1].Path)

	chunks := makeChunks("one", "two")
	require.NoError(t, storage.ReplaceChunks(ctx, b.ID, chunks))
	require.NoError(t, storage.UpsertEmbedding(ctx, NewEmbedding(chunks[0].ID, types.Vector{1, 0}, "local", "m")))

	require.NoError(t, storage.DeleteCorpus(ctx, b.ID))

	_, err = storage.GetCorpusByID(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = storage.GetChunk(ctx, chunks[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = storage.GetEmbedding(ctx, chunks[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceChunks(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	corpus := createTestCorpus(t, storage, "a.txt")

	first := makeChunks("the quick", "brown fox")
	require.NoError(t, storage.ReplaceChunks(ctx, corpus.ID, first))
	for _, c := range first {
		assert.Greater(t, c.ID, int64(0))
		assert.Equal(t, corpus.ID, c.CorpusID)
	}
	require.NoError(t, storage.UpsertEmbedding(ctx, NewEmbedding(first[0].ID, types.Vector{1, 2}, "local", "m")))

	second := makeChunks("jumps over", "the lazy", "dog")
	require.NoError(t, storage.ReplaceChunks(ctx, corpus.ID, second))

	chunks, err := storage.ListChunks(ctx, corpus.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		assert.Equal(t, second[i].Content, c.Content)
		assert.Equal(t, second[i].ContentHash, c.ContentHash)
		assert.Equal(t, second[i].StartOffset, c.StartOffset)
		assert.Equal(t, second[i].EndOffset, c.EndOffset)
	}

	// Old embeddings go with their chunks
	_, err = storage.GetEmbedding(ctx, first[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The FTS index follows replacements
	results, err := storage.SearchText(ctx, corpus.ID, "brown", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	results, err = storage.SearchText(ctx, corpus.ID, "lazy", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, second[1].ID, results[0].ChunkID)

	// Replacing with nothing clears the corpus
	require.NoError(t, storage.ReplaceChunks(ctx, corpus.ID, nil))
	chunks, err = storage.ListChunks(ctx, corpus.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestReplaceChunks_RollsBack(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	corpus := createTestCorpus(t, storage, "a.txt")

	require.NoError(t, storage.ReplaceChunks(ctx, corpus.ID, makeChunks("keep me")))

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.ReplaceChunks(ctx, corpus.ID, makeChunks("lost", "also lost")))
	require.NoError(t, tx.Rollback())

	chunks, err := storage.ListChunks(ctx, corpus.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "keep me", chunks[0].Content)

	// A cancelled context never starts the swap
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, storage.ReplaceChunks(cctx, corpus.ID, makeChunks("lost")))
}

func TestUpsertChunk(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	corpus := createTestCorpus(t, storage, "a.txt")

	chunk := makeChunks("original")[0]
	chunk.CorpusID = corpus.ID
	require.NoError(t, storage.UpsertChunk(ctx, chunk))
	id := chunk.ID

	updated := makeChunks("replacement")[0]
	updated.CorpusID = corpus.ID
	require.NoError(t, storage.UpsertChunk(ctx, updated))
	assert.Equal(t, id, updated.ID, "same position updates in place")

	got, err := storage.GetChunk(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "replacement", got.Content)

	_, err = storage.GetChunk(ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmbeddings(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	corpus := createTestCorpus(t, storage, "a.txt")
	chunks := makeChunks("alpha")
	require.NoError(t, storage.ReplaceChunks(ctx, corpus.ID, chunks))

	emb := NewEmbedding(chunks[0].ID, types.Vector{0.5, -0.25, 1}, "local", "local-hash")
	require.NoError(t, storage.UpsertEmbedding(ctx, emb))
	assert.Greater(t, emb.ID, int64(0))

	got, err := storage.GetEmbedding(ctx, chunks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Dimension)
	assert.Equal(t, types.Vector{0.5, -0.25, 1}, got.Values())

	// Upsert replaces
	require.NoError(t, storage.UpsertEmbedding(ctx, NewEmbedding(chunks[0].ID, types.Vector{9}, "jina", "v3")))
	got, err = storage.GetEmbedding(ctx, chunks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, types.Vector{9}, got.Values())
	assert.Equal(t, "jina", got.Provider)

	require.NoError(t, storage.DeleteEmbedding(ctx, chunks[0].ID))
	_, err = storage.GetEmbedding(ctx, chunks[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	corpus := createTestCorpus(t, storage, "a.txt")

	status, err := storage.GetStatus(ctx, corpus.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, status.ChunksCount)
	assert.False(t, status.Health.EmbeddingsAvailable)
	assert.True(t, status.Health.DatabaseAccessible)
	assert.True(t, status.Health.FTSIndexesBuilt)

	chunks := makeChunks("a", "b", "c")
	require.NoError(t, storage.ReplaceChunks(ctx, corpus.ID, chunks))
	for _, c := range chunks[:2] {
		require.NoError(t, storage.UpsertEmbedding(ctx, NewEmbedding(c.ID, types.Vector{1, 2, 3, 4}, "local", "m")))
	}

	status, err = storage.GetStatus(ctx, corpus.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, status.ChunksCount)
	assert.Equal(t, 2, status.EmbeddingsCount)
	assert.Equal(t, 4, status.Dimension)
	assert.True(t, status.Health.EmbeddingsAvailable)
	assert.False(t, status.Health.EmbeddingsComplete)
	assert.Greater(t, status.IndexSizeMB, 0.0)

	_, err = storage.GetStatus(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransaction(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)

		corpus := &Corpus{Path: "committed.txt", MaxLen: 10}
		require.NoError(t, tx.CreateCorpus(ctx, corpus))
		chunks := makeChunks("x", "y")
		require.NoError(t, tx.ReplaceChunks(ctx, corpus.ID, chunks))
		require.NoError(t, tx.UpsertEmbedding(ctx, NewEmbedding(chunks[0].ID, types.Vector{1}, "local", "m")))

		// Reads inside the transaction see its writes
		listed, err := tx.ListChunks(ctx, corpus.ID)
		require.NoError(t, err)
		assert.Len(t, listed, 2)

		require.NoError(t, tx.Commit())

		got, err := storage.GetCorpus(ctx, "committed.txt")
		require.NoError(t, err)
		assert.Equal(t, corpus.ID, got.ID)
	})

	t.Run("rollback", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.CreateCorpus(ctx, &Corpus{Path: "rolled.txt", MaxLen: 10}))
		require.NoError(t, tx.Rollback())

		_, err = storage.GetCorpus(ctx, "rolled.txt")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("nested", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()
		_, err = tx.BeginTx(ctx)
		assert.Error(t, err)
	})
}

func TestMigrations_Rollback(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, storage.db))
	version, err := SchemaVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)

	require.NoError(t, RollbackMigration(ctx, storage.db))
	version, err = SchemaVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", version)

	assert.Error(t, RollbackMigration(ctx, storage.db))

	// Re-applying from scratch restores the full schema
	require.NoError(t, ApplyMigrations(ctx, storage.db))
	version, err = SchemaVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestChunkConversion(t *testing.T) {
	tc := &types.Chunk{ID: 3, Index: 2, Content: "abc", TokenCount: 1, StartOffset: 5, EndOffset: 8}
	tc.ComputeContentHash()

	sc := FromTypesChunk(tc, 9)
	assert.Equal(t, int64(9), sc.CorpusID)
	assert.Equal(t, 2, sc.Position)

	back := sc.ToTypesChunk()
	assert.Equal(t, tc.Content, back.Content)
	assert.Equal(t, tc.ContentHash, back.ContentHash)
	assert.Equal(t, tc.StartOffset, back.StartOffset)
	assert.Equal(t, tc.EndOffset, back.EndOffset)
	assert.Equal(t, int64(9), back.CorpusID)
}

func BenchmarkReplaceChunks(b *testing.B) {
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(b, err)
	defer storage.Close()
	ctx := context.Background()

	corpus := &Corpus{Path: "bench.txt", MaxLen: 500}
	require.NoError(b, storage.CreateCorpus(ctx, corpus))

	contents := make([]string, 200)
	for i := range contents {
		contents[i] = fmt.Sprintf("chunk number %d with some words", i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := storage.ReplaceChunks(ctx, corpus.ID, makeChunks(contents...)); err != nil {
			b.Fatal(err)
		}
	}
}
