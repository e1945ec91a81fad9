package embedder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Embedder against any OpenAI-compatible embeddings endpoint
type OpenAIProvider struct {
	client *openai.Client
	model  string
	cache  *Cache
	retry  RetryConfig
}

// NewOpenAIProvider creates a new OpenAI embedder. An empty apiKey falls back to OPENAI_API_KEY.
// A BaseURL points the client at a self-hosted server, which may not need a key.
func NewOpenAIProvider(cfg Config, cache *Cache) (*OpenAIProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		cache:  cache,
		retry:  cfg.retryConfig(),
	}, nil
}

func (o *OpenAIProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	// Check cache
	if o.cache != nil {
		if emb, ok := o.cache.Get(cacheKey(model, req.Text)); ok {
			return emb, nil
		}
	}

	resp, err := o.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}

	return resp.Embeddings[0], nil
}

func (o *OpenAIProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	embeddings, err := retryWithBackoff(ctx, o.retry, func() ([]*Embedding, error) {
		return o.callAPI(ctx, req.Texts, model)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	for i, emb := range embeddings {
		emb.Hash = ComputeHash(req.Texts[i])
		if o.cache != nil {
			o.cache.Set(cacheKey(model, req.Texts[i]), emb)
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderOpenAI,
		Model:      model,
	}, nil
}

func (o *OpenAIProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		if !retryableOpenAIError(err) {
			return nil, permanent(fmt.Errorf("api call: %w", err))
		}
		return nil, fmt.Errorf("api call: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, permanent(fmt.Errorf("%w: got %d embeddings for %d texts", ErrMalformedOutput, len(resp.Data), len(texts)))
	}

	sort.Slice(resp.Data, func(a, b int) bool {
		return resp.Data[a].Index < resp.Data[b].Index
	})

	respModel := string(resp.Model)
	if respModel == "" {
		respModel = model
	}

	embeddings := make([]*Embedding, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) == 0 {
			return nil, permanent(fmt.Errorf("%w: empty vector at index %d", ErrMalformedOutput, data.Index))
		}
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  ProviderOpenAI,
			Model:     respModel,
		}
	}

	return embeddings, nil
}

// retryableOpenAIError treats client errors other than rate limiting as permanent
func retryableOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}

func (o *OpenAIProvider) Dimension() int {
	if o.model == DefaultOpenAIModel {
		return OpenAIDimension
	}
	return 0
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	return nil
}
