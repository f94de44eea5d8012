// Package embedder generates vector embeddings for documentation sections
// and search queries.
//
// Providers:
//   - openai: OpenAI /v1/embeddings (text-embedding-3-small, 1536 dims)
//   - jina: Jina AI, same wire format (jina-embeddings-v3, 1024 dims)
//   - compat: any OpenAI-compatible server via langchaingo (Ollama, LM Studio, vLLM)
//   - local: deterministic feature-hashed word vectors, no network
//
// "none" (or an empty provider) configures no backend. New then returns
// ErrNoProviderEnabled and the rest of the system runs without semantic
// reranking.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider: "compat",
//	    BaseURL:  "http://localhost:11434/v1",
//	    Model:    "nomic-embed-text",
//	})
//	if errors.Is(err, embedder.ErrNoProviderEnabled) {
//	    // run lexical-only
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "Use API keys for authentication",
//	})
//
// # Caching
//
// Every provider memoizes vectors in an LRU cache keyed by model and the
// SHA-256 of the text, so repeated queries cost one call.
//
// # Error Handling
//
// HTTP providers retry transient failures (network errors, 429, 5xx) with
// exponential backoff. Other 4xx responses fail immediately. All provider
// failures wrap ErrProviderFailed.
package embedder
