package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/embedtext/internal/chunkfile"
	"github.com/dshills/embedtext/internal/embedder"
	"github.com/dshills/embedtext/internal/indexer"
)

func newTestIndexer(t *testing.T) *indexer.Indexer {
	t.Helper()
	emb, err := embedder.NewLocalProvider(embedder.Config{Dimension: 4}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = emb.Close() })
	return indexer.New(emb, nil)
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	return matches
}

func TestIndexCorpus_WritesChunkFile(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus.txt")
	out := filepath.Join(dir, "chunks.bin")
	require.NoError(t, os.WriteFile(corpus, []byte("the quick brown fox jumps over the lazy dog"), 0o600))

	stats, err := indexCorpus(context.Background(), newTestIndexer(t), corpus, out, &indexer.Config{MaxLen: 10})
	require.NoError(t, err)
	assert.Positive(t, stats.ChunksWritten)
	assert.Zero(t, stats.ChunksFailed)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := chunkfile.ReadAll(f)
	require.NoError(t, err)
	assert.Len(t, records, stats.ChunksWritten)
	for _, rec := range records {
		assert.Len(t, rec.Vector, 4)
	}

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	assert.Empty(t, tempFiles(t, dir))
}

func TestIndexCorpus_FailureKeepsExistingOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "chunks.bin")
	require.NoError(t, os.WriteFile(out, []byte("previous\n1 \n"), 0o644))

	_, err := indexCorpus(context.Background(), newTestIndexer(t), filepath.Join(dir, "missing.txt"), out, &indexer.Config{})
	require.Error(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "previous\n1 \n", string(data))
	assert.Empty(t, tempFiles(t, dir))
}

func TestIndexCorpus_NoOutputNoStore(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(corpus, []byte("text"), 0o600))

	_, err := indexCorpus(context.Background(), newTestIndexer(t), corpus, "", &indexer.Config{})
	assert.ErrorIs(t, err, indexer.ErrNoOutput)
}
