package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// embeddingsServer answers with vector {len(text), index} per input, listing data in reverse order
func embeddingsServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data := make([]map[string]interface{}, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]interface{}{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(len(req.Input[i])), float32(i)},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func TestNewJinaProvider_RequiresKey(t *testing.T) {
	t.Setenv(EnvJinaAPIKey, "")
	_, err := NewJinaProvider(Config{}, nil)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	t.Setenv(EnvJinaAPIKey, "from-env")
	p, err := NewJinaProvider(Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", p.apiKey)
	assert.Equal(t, DefaultJinaModel, p.Model())
	assert.Equal(t, DefaultJinaURL, p.url)
}

func TestJinaProvider_Batch(t *testing.T) {
	var calls int32
	var auth atomic.Value
	srv := embeddingsServer(t, &calls)
	defer srv.Close()

	wrapped := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		srv.Config.Handler.ServeHTTP(w, r)
	}))
	defer wrapped.Close()

	p, err := NewJinaProvider(Config{APIKey: "secret", BaseURL: wrapped.URL, Retry: fastRetry()}, NewCache(10))
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"a", "bbb", "cc"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)

	// Reordered by index despite the reversed response
	assert.Equal(t, []float32{1, 0}, []float32(resp.Embeddings[0].Vector))
	assert.Equal(t, []float32{3, 1}, []float32(resp.Embeddings[1].Vector))
	assert.Equal(t, []float32{2, 2}, []float32(resp.Embeddings[2].Vector))
	assert.Equal(t, ComputeHash("bbb"), resp.Embeddings[1].Hash)
	assert.Equal(t, "Bearer secret", auth.Load())
}

func TestJinaProvider_CacheHit(t *testing.T) {
	var calls int32
	srv := embeddingsServer(t, &calls)
	defer srv.Close()

	p, err := NewJinaProvider(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()}, NewCache(10))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello"})
	require.NoError(t, err)
	second, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestJinaProvider_CacheKeyedByModel(t *testing.T) {
	var calls int32
	srv := embeddingsServer(t, &calls)
	defer srv.Close()

	p, err := NewJinaProvider(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()}, NewCache(10))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello"})
	require.NoError(t, err)

	// Same text, different model: not served from the default model's entry
	_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello", Model: "jina-other"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello", Model: "jina-other"})
	require.NoError(t, err)
	_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello", Model: DefaultJinaModel})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestJinaProvider_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"detail":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := NewJinaProvider(Config{APIKey: "bad", BaseURL: srv.URL, Retry: fastRetry()}, nil)
	require.NoError(t, err)

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	require.ErrorIs(t, err, ErrProviderFailed)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestJinaProvider_ServerErrorRetried(t *testing.T) {
	var calls int32
	ok := embeddingsServer(t, new(int32))
	defer ok.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		ok.Config.Handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	p, err := NewJinaProvider(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()}, nil)
	require.NoError(t, err)

	emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "abcd"})
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 0}, []float32(emb.Vector))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestJinaProvider_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[],"model":"m"}`))
	}))
	defer srv.Close()

	p, err := NewJinaProvider(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()}, nil)
	require.NoError(t, err)

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Contains(t, err.Error(), "0 embeddings for 1 texts")
}

func TestJinaProvider_BatchTooLarge(t *testing.T) {
	p, err := NewJinaProvider(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"}, nil)
	require.NoError(t, err)

	texts := make([]string, MaxBatchSize+1)
	for i := range texts {
		texts[i] = "t"
	}
	_, err = p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: texts})
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}
