package embedder

import "time"

// Provider configuration
const (
	ProviderJina    = "jina"
	ProviderOpenAI  = "openai"
	ProviderLocal   = "local"
	ProviderCommand = "command"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	LocalModel         = "local-hash"

	// Default endpoints
	DefaultJinaURL = "https://api.jina.ai/v1/embeddings"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	// Cache
	DefaultCacheSize = 10000

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	// DefaultTimeout bounds a single provider call
	DefaultTimeout = 20 * time.Second
)

// Environment variables read by NewFromEnv
const (
	EnvProvider     = "EMBEDTEXT_PROVIDER"
	EnvModel        = "EMBEDTEXT_MODEL"
	EnvBaseURL      = "EMBEDTEXT_BASE_URL"
	EnvCommand      = "EMBEDTEXT_COMMAND"
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)
