package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/embedtext/internal/embedder"
	"github.com/dshills/embedtext/internal/storage"
	"github.com/dshills/embedtext/pkg/types"
)

var testChunks = []string{
	"the quick brown fox",
	"jumps over the lazy dog",
	"pack my box with five dozen liquor jugs",
	"how vexingly quick daft zebras jump",
	"the five boxing wizards jump quickly",
}

// countingEmbedder wraps an embedder and counts query embeddings
type countingEmbedder struct {
	embedder.Embedder
	calls int
	err   error
}

func (c *countingEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.Embedder.GenerateEmbedding(ctx, req)
}

// setupTestSearcher stores testChunks with local embeddings in an in-memory database
func setupTestSearcher(t *testing.T) (*Searcher, *countingEmbedder, int64) {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	local, err := embedder.NewLocalProvider(embedder.Config{Dimension: 64}, nil)
	require.NoError(t, err)
	emb := &countingEmbedder{Embedder: local}

	corpus := &storage.Corpus{Path: "corpus.txt", MaxLen: 50}
	require.NoError(t, store.CreateCorpus(ctx, corpus))

	chunks := make([]*storage.Chunk, len(testChunks))
	offset := 0
	for i, content := range testChunks {
		tc := &types.Chunk{Index: i, Content: content, StartOffset: offset, EndOffset: offset + len(content)}
		tc.ComputeContentHash()
		chunks[i] = storage.FromTypesChunk(tc, corpus.ID)
		offset += len(content) + 1
	}
	require.NoError(t, store.ReplaceChunks(ctx, corpus.ID, chunks))

	for _, c := range chunks {
		e, err := local.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: c.Content})
		require.NoError(t, err)
		require.NoError(t, store.UpsertEmbedding(ctx, storage.NewEmbedding(c.ID, e.Vector, e.Provider, e.Model)))
	}

	return NewSearcher(store, emb), emb, corpus.ID
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		want    SearchMode
		wantErr bool
	}{
		{"", SearchModeHybrid, false},
		{"hybrid", SearchModeHybrid, false},
		{"VECTOR", SearchModeVector, false},
		{"keyword", SearchModeKeyword, false},
		{"fuzzy", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	req := SearchRequest{Query: "fox"}
	require.NoError(t, validateRequest(&req))
	assert.Equal(t, DefaultLimit, req.Limit)
	assert.Equal(t, SearchModeHybrid, req.Mode)
	assert.Equal(t, float64(DefaultRRFConstant), req.RRFConstant)
	assert.Equal(t, DefaultCacheTTL, req.CacheTTL)

	req = SearchRequest{Query: "fox", Limit: 1000}
	require.NoError(t, validateRequest(&req))
	assert.Equal(t, MaxLimit, req.Limit)

	req = SearchRequest{Query: "   "}
	assert.ErrorIs(t, validateRequest(&req), ErrEmptyQuery)

	req = SearchRequest{Query: "fox", Mode: "fuzzy"}
	assert.ErrorIs(t, validateRequest(&req), ErrUnsupportedMode)
}

func TestSearch_Vector(t *testing.T) {
	s, _, corpusID := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{
		Query:    testChunks[2],
		Mode:     SearchModeVector,
		CorpusID: corpusID,
		Limit:    3,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, SearchModeVector, resp.SearchMode)

	// Identical text embeds identically
	top := resp.Results[0]
	assert.Equal(t, testChunks[2], top.Content)
	assert.InDelta(t, 1.0, top.RelevanceScore, 1e-5)
	assert.Equal(t, 1, top.Rank)
	require.NotNil(t, top.Corpus)
	assert.Equal(t, "corpus.txt", top.Corpus.Path)
	assert.Equal(t, 2, top.Corpus.ChunkIndex)

	for i, r := range resp.Results {
		assert.Equal(t, i+1, r.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, resp.Results[i-1].RelevanceScore, r.RelevanceScore)
		}
	}
}

func TestSearch_Keyword(t *testing.T) {
	s, emb, corpusID := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{
		Query:    "zebras",
		Mode:     SearchModeKeyword,
		CorpusID: corpusID,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, testChunks[3], resp.Results[0].Content)
	assert.Equal(t, 0, emb.calls, "keyword search needs no query embedding")
	assert.Equal(t, 1, resp.TextResults)
}

func TestSearch_Hybrid(t *testing.T) {
	s, _, corpusID := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{
		Query:    testChunks[3],
		CorpusID: corpusID,
		Limit:    5,
	})
	require.NoError(t, err)
	assert.Equal(t, SearchModeHybrid, resp.SearchMode)
	require.NotEmpty(t, resp.Results)

	// Ranked first by both searches
	assert.Equal(t, testChunks[3], resp.Results[0].Content)
	assert.InDelta(t, 2.0/61.0, resp.Results[0].RelevanceScore, 1e-9)
	assert.Positive(t, resp.VectorResults)
	assert.Positive(t, resp.TextResults)
}

func TestSearch_HybridOneSideFails(t *testing.T) {
	s, emb, corpusID := setupTestSearcher(t)
	emb.err = errors.New("provider down")

	resp, err := s.Search(context.Background(), SearchRequest{Query: "quick", CorpusID: corpusID})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)
	assert.Equal(t, 0, resp.VectorResults)

	_, err = s.Search(context.Background(), SearchRequest{Query: "quick", Mode: SearchModeVector, CorpusID: corpusID})
	assert.Error(t, err)
}

func TestSearch_Filters(t *testing.T) {
	s, _, corpusID := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{
		Query:    "jump",
		Mode:     SearchModeKeyword,
		CorpusID: corpusID,
		Filters:  &storage.SearchFilters{FromPosition: 4},
	})
	require.NoError(t, err)
	for _, r := range resp.Results {
		assert.GreaterOrEqual(t, r.Corpus.ChunkIndex, 4)
	}
}

func TestSearch_Cache(t *testing.T) {
	s, emb, corpusID := setupTestSearcher(t)
	ctx := context.Background()
	req := SearchRequest{Query: testChunks[0], Mode: SearchModeVector, CorpusID: corpusID, UseCache: true}

	first, err := s.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, 1, s.CacheLen())

	second, err := s.Search(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, first.Results, second.Results)

	// Cached copies are independent of callers
	second.Results[0].Corpus.Path = "mutated"
	third, err := s.Search(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "corpus.txt", third.Results[0].Corpus.Path)

	s.InvalidateCache()
	assert.Equal(t, 0, s.CacheLen())
}

func TestSearch_CacheExpiry(t *testing.T) {
	s, emb, corpusID := setupTestSearcher(t)
	ctx := context.Background()
	req := SearchRequest{Query: "fox", Mode: SearchModeVector, CorpusID: corpusID, UseCache: true, CacheTTL: time.Nanosecond}

	_, err := s.Search(ctx, req)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	resp, err := s.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
	assert.Equal(t, 2, emb.calls)
}

func TestApplyRRF(t *testing.T) {
	vr := []storage.VectorResult{{ChunkID: 1}, {ChunkID: 2}, {ChunkID: 3}}
	tr := []storage.TextResult{{ChunkID: 3}, {ChunkID: 4}}

	ranked := applyRRF(vr, tr, 60)
	require.Len(t, ranked, 4)

	// Chunk 3: 1/63 + 1/61 beats chunk 1: 1/61
	assert.Equal(t, int64(3), ranked[0].chunkID)
	assert.InDelta(t, 1.0/63+1.0/61, ranked[0].score, 1e-12)
	assert.Equal(t, int64(1), ranked[1].chunkID)
	// Chunks 2 and 4 tie at 1/62; lower ID first
	assert.Equal(t, int64(2), ranked[2].chunkID)
	assert.Equal(t, int64(4), ranked[3].chunkID)
	for i, r := range ranked {
		assert.Equal(t, i+1, r.rank)
	}
}

func TestComputeQueryHash(t *testing.T) {
	base := SearchRequest{Query: "fox", Mode: SearchModeVector, CorpusID: 1, Limit: 10}
	other := base
	other.CorpusID = 2
	filtered := base
	filtered.Filters = &storage.SearchFilters{FromPosition: 3}

	assert.Equal(t, computeQueryHash(base), computeQueryHash(base))
	assert.NotEqual(t, computeQueryHash(base), computeQueryHash(other))
	assert.NotEqual(t, computeQueryHash(base), computeQueryHash(filtered))
}

func TestEvictLRU(t *testing.T) {
	s, _, corpusID := setupTestSearcher(t)
	ctx := context.Background()
	for _, q := range []string{"fox", "dog", "jugs"} {
		_, err := s.Search(ctx, SearchRequest{Query: q, Mode: SearchModeVector, CorpusID: corpusID, UseCache: true})
		require.NoError(t, err)
	}
	require.Equal(t, 3, s.CacheLen())

	require.NoError(t, s.EvictLRU(5))
	assert.Equal(t, 3, s.CacheLen())
	require.NoError(t, s.EvictLRU(2))
	assert.Equal(t, 0, s.CacheLen())
}

func BenchmarkApplyRRF(b *testing.B) {
	vr := make([]storage.VectorResult, 200)
	tr := make([]storage.TextResult, 200)
	for i := range vr {
		vr[i] = storage.VectorResult{ChunkID: int64(i), SimilarityScore: 1 - float64(i)/200}
		tr[i] = storage.TextResult{ChunkID: int64(i*7%300 + 1), BM25Score: 1 - float64(i)/200}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = applyRRF(vr, tr, DefaultRRFConstant)
	}
}
