package embedder

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// CompatProvider talks to any OpenAI-compatible embedding server (Ollama,
// LM Studio, vLLM, LocalAI) through langchaingo.
type CompatProvider struct {
	embedder  embeddings.Embedder
	model     string
	dimension int
	cache     *Cache
}

// NewCompatProvider connects to baseURL, e.g. http://localhost:11434/v1.
// Local servers usually ignore the token; "none" is sent when apiKey is
// empty. dimension is informational only.
func NewCompatProvider(baseURL, apiKey, model string, dimension int, cache *Cache) (*CompatProvider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: compat provider needs a base URL", ErrNoProviderEnabled)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: compat provider needs a model", ErrUnsupportedModel)
	}

	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(orDefault(apiKey, "none")),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(DefaultBatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return newCompatProvider(emb, model, dimension, cache), nil
}

func newCompatProvider(emb embeddings.Embedder, model string, dimension int, cache *Cache) *CompatProvider {
	return &CompatProvider{
		embedder:  emb,
		model:     model,
		dimension: dimension,
		cache:     cache,
	}
}

func (c *CompatProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	key := cacheKey(c.model, req.Text)
	if emb, ok := c.cache.Get(key); ok {
		return emb, nil
	}

	vector, err := c.embedder.EmbedQuery(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrProviderFailed)
	}

	emb := c.wrap(vector, key)
	c.cache.Set(key, emb)
	return emb, nil
}

func (c *CompatProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	vectors, err := c.embedder.EmbedDocuments(ctx, req.Texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(vectors) != len(req.Texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(vectors), len(req.Texts))
	}

	out := make([]*Embedding, len(vectors))
	for i, v := range vectors {
		key := cacheKey(c.model, req.Texts[i])
		out[i] = c.wrap(v, key)
		c.cache.Set(key, out[i])
	}

	return &BatchEmbeddingResponse{
		Embeddings: out,
		Provider:   ProviderCompat,
		Model:      c.model,
	}, nil
}

func (c *CompatProvider) wrap(vector []float32, key string) *Embedding {
	return &Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Provider:  ProviderCompat,
		Model:     c.model,
		Hash:      key,
	}
}

func (c *CompatProvider) Dimension() int {
	return c.dimension
}

func (c *CompatProvider) Provider() string {
	return ProviderCompat
}

func (c *CompatProvider) Model() string {
	return c.model
}

func (c *CompatProvider) Close() error {
	return nil
}
