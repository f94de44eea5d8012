package embedder

import (
	"fmt"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string // none, local, openai, jina, compat
	Model     string // empty selects the provider default
	APIKey    string
	BaseURL   string // endpoint override; required for compat
	Dimension int    // local vector size; informational for compat
	CacheSize int
}

// Enabled reports whether cfg names an embedding backend.
func (cfg Config) Enabled() bool {
	p := strings.ToLower(strings.TrimSpace(cfg.Provider))
	return p != "" && p != ProviderNone
}

// New creates an embedder from cfg. It returns ErrNoProviderEnabled when no
// backend is configured, which callers treat as the degraded mode where
// semantic reranking is unavailable.
func New(cfg Config) (Embedder, error) {
	if !cfg.Enabled() {
		return nil, ErrNoProviderEnabled
	}

	cache := NewCache(cfg.CacheSize)

	var (
		emb Embedder
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderJina:
		emb, err = NewJinaProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cache)
	case ProviderOpenAI:
		emb, err = NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cache)
	case ProviderCompat:
		emb, err = NewCompatProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimension, cache)
	case ProviderLocal:
		emb = NewLocalProvider(cfg.Dimension, cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return emb, nil
}
