package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/doccontext-mcp/internal/embedder"
)

// Environment overrides, applied after the config file.
const (
	EnvDBPath            = "DOCCONTEXT_DB_PATH"
	EnvDataDir           = "DOCCONTEXT_DATA_DIR"
	EnvEmbeddingProvider = "DOCCONTEXT_EMBEDDING_PROVIDER"
	EnvEmbeddingModel    = "DOCCONTEXT_EMBEDDING_MODEL"
	EnvEmbeddingBaseURL  = "DOCCONTEXT_EMBEDDING_BASE_URL"
	EnvEmbeddingAPIKey   = "DOCCONTEXT_EMBEDDING_API_KEY"
	EnvLogLevel          = "DOCCONTEXT_LOG_LEVEL"
	EnvMaxResults        = "DOCCONTEXT_MAX_RESULTS"
)

const (
	// DefaultDir holds the config file, the database and the data directory.
	DefaultDir = "~/.doccontext"
	// FileName is the config file name inside DefaultDir.
	FileName = "config.toml"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete runtime configuration.
type Config struct {
	DBPath    string          `toml:"db_path"`
	DataDir   string          `toml:"data_dir"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Log       LogConfig       `toml:"log"`
	Search    SearchConfig    `toml:"search"`
}

type EmbeddingConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Dimension int    `toml:"dimension"`
	CacheSize int    `toml:"cache_size"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console or json
}

type SearchConfig struct {
	DefaultMaxResults int `toml:"default_max_results"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DBPath:  filepath.Join(DefaultDir, "doccontext.db"),
		DataDir: filepath.Join(DefaultDir, "data"),
		Embedding: EmbeddingConfig{
			Provider:  embedder.ProviderNone,
			CacheSize: embedder.DefaultCacheSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Search: SearchConfig{DefaultMaxResults: 5},
	}
}

// DefaultPath returns the expanded path of the default config file.
func DefaultPath() (string, error) {
	return ExpandHome(filepath.Join(DefaultDir, FileName))
}

// Load reads path over the defaults, applies environment overrides and
// expands paths. An empty path reads the default file if it exists; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file yet - defaults apply
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.expand(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.DBPath, EnvDBPath)
	set(&c.DataDir, EnvDataDir)
	set(&c.Embedding.Provider, EnvEmbeddingProvider)
	set(&c.Embedding.Model, EnvEmbeddingModel)
	set(&c.Embedding.BaseURL, EnvEmbeddingBaseURL)
	set(&c.Embedding.APIKey, EnvEmbeddingAPIKey)
	set(&c.Log.Level, EnvLogLevel)

	if v := getenv(EnvMaxResults); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvMaxResults, v)
		}
		c.Search.DefaultMaxResults = n
	}

	// Provider-specific keys only fill a missing api_key.
	if c.Embedding.APIKey == "" {
		switch strings.ToLower(c.Embedding.Provider) {
		case embedder.ProviderOpenAI:
			c.Embedding.APIKey = getenv(embedder.EnvOpenAIAPIKey)
		case embedder.ProviderJina:
			c.Embedding.APIKey = getenv(embedder.EnvJinaAPIKey)
		}
	}
	return nil
}

func (c *Config) expand() error {
	var err error
	if c.DBPath, err = ExpandHome(c.DBPath); err != nil {
		return err
	}
	if c.DataDir, err = ExpandHome(c.DataDir); err != nil {
		return err
	}
	return nil
}

// Validate checks values a component would otherwise reject at startup.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path is empty", ErrInvalidConfig)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "", embedder.ProviderNone, embedder.ProviderLocal, embedder.ProviderOpenAI, embedder.ProviderJina:
	case embedder.ProviderCompat:
		if c.Embedding.BaseURL == "" {
			return fmt.Errorf("%w: embedding provider compat needs base_url", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}
	if c.Search.DefaultMaxResults <= 0 {
		return fmt.Errorf("%w: default_max_results must be positive", ErrInvalidConfig)
	}
	return nil
}

// EmbedderConfig converts the embedding section for embedder.New.
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedding.Provider,
		Model:     c.Embedding.Model,
		APIKey:    c.Embedding.APIKey,
		BaseURL:   c.Embedding.BaseURL,
		Dimension: c.Embedding.Dimension,
		CacheSize: c.Embedding.CacheSize,
	}
}

// EnsureDirs creates the database's parent directory and the data directory.
func (c *Config) EnsureDirs() error {
	if c.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(c.DBPath), 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
