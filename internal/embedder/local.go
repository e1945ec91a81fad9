package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/dshills/embedtext/pkg/types"
)

// LocalProvider produces deterministic offline vectors derived from a hash of the text.
// Identical texts map to identical vectors; the values carry no semantics.
type LocalProvider struct {
	model     string
	dimension int
	cache     *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(cfg Config, cache *Cache) (*LocalProvider, error) {
	dim := cfg.Dimension
	if dim <= 0 {
		dim = LocalDimension
	}
	return &LocalProvider{
		model:     LocalModel,
		dimension: dim,
		cache:     cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Check cache
	hash := ComputeHash(req.Text)
	key := cacheKey(l.model, req.Text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(key); ok {
			return emb, nil
		}
	}

	emb := &Embedding{
		Vector:    hashVector(req.Text, l.dimension),
		Dimension: l.dimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      hash,
	}

	if l.cache != nil {
		l.cache.Set(key, emb)
	}

	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	return batchViaSingle(ctx, l, req)
}

// hashVector expands SHA-256(counter || text) blocks into dim values in [-1, 1], unit-normalized
func hashVector(text string, dim int) types.Vector {
	vector := make(types.Vector, dim)
	var counter [4]byte
	for i := 0; i < dim; {
		binary.LittleEndian.PutUint32(counter[:], uint32(i))
		h := sha256.New()
		h.Write(counter[:])
		h.Write([]byte(text))
		sum := h.Sum(nil)
		for k := 0; k+2 <= len(sum) && i < dim; k += 2 {
			v := binary.LittleEndian.Uint16(sum[k:])
			vector[i] = float32(v)/math.MaxUint16*2 - 1
			i++
		}
	}
	return vector.Normalize()
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}
