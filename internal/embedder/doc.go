// Package embedder turns text into vector embeddings.
//
// Four providers implement the Embedder interface:
//
//   - jina: Jina AI embeddings API over HTTP
//   - openai: any OpenAI-compatible embeddings endpoint (OpenAI, or a local server via BaseURL)
//   - local: deterministic hash vectors for offline runs and tests
//   - command: an external program that prints the vector on stdout
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{Provider: "local", CacheSize: 1000})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: "hello world"})
//	fmt.Println(result.Vector.Format())
//
// # Provider Selection
//
// NewFromEnv picks a provider from the environment:
//
//  1. If EMBEDTEXT_PROVIDER is set → use specified provider
//  2. Else if JINA_API_KEY is set → use Jina AI
//  3. Else if OPENAI_API_KEY is set → use OpenAI
//  4. Else → local provider
//
// # Command Provider
//
// The command provider runs Config.Command with the text appended as the last
// argument. Diagnostic output printed before a "<begin>" line is ignored and "<end>"
// terminates the vector, so programs that emit the framed session format work as-is.
// Each call is bounded by Config.Timeout (20s by default).
//
// # Caching
//
// Embeddings are cached in an LRU keyed by the SHA-256 of the text. The cache hands
// out deep copies, so callers may modify returned vectors.
//
// # Errors
//
// Network providers retry transient failures (transport errors, 429, 5xx) with
// exponential backoff; other API errors fail immediately. All provider failures
// wrap ErrProviderFailed or ErrMalformedOutput.
package embedder
