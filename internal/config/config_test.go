package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/doccontext-mcp/internal/embedder"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
db_path = "/var/lib/doccontext/docs.db"
data_dir = "/var/lib/doccontext/data"

[embedding]
provider = "compat"
base_url = "http://localhost:11434/v1"
model = "nomic-embed-text"

[log]
level = "debug"
`)

	cfg, err := load(path, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/doccontext/docs.db", cfg.DBPath)
	assert.Equal(t, "compat", cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Search.DefaultMaxResults)
	assert.Equal(t, embedder.DefaultCacheSize, cfg.Embedding.CacheSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `db_path = "/from/file.db"`)

	cfg, err := load(path, envMap(map[string]string{
		EnvDBPath:                "/from/env.db",
		EnvEmbeddingProvider:     "openai",
		embedder.EnvOpenAIAPIKey: "sk-test",
		EnvMaxResults:            "8",
	}))
	require.NoError(t, err)
	assert.Equal(t, "/from/env.db", cfg.DBPath)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, 8, cfg.Search.DefaultMaxResults)
}

func TestLoad_ExplicitKeyWins(t *testing.T) {
	path := writeConfig(t, `
[embedding]
provider = "jina"
api_key = "from-file"
`)
	cfg, err := load(path, envMap(map[string]string{embedder.EnvJinaAPIKey: "from-env"}))
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Embedding.APIKey)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := load("", envMap(nil))
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".doccontext", "doccontext.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(home, ".doccontext", "data"), cfg.DataDir)
	assert.False(t, cfg.EmbedderConfig().Enabled())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		env  map[string]string
	}{
		{"missing explicit file", filepath.Join(t.TempDir(), "nope.toml"), nil},
		{"bad toml", writeConfig(t, `db_path = `), nil},
		{"unknown provider", writeConfig(t, "[embedding]\nprovider = \"word2vec\""), nil},
		{"compat without base_url", writeConfig(t, "[embedding]\nprovider = \"compat\""), nil},
		{"bad max results", writeConfig(t, ""), map[string]string{EnvMaxResults: "many"}},
		{"zero max results", writeConfig(t, "[search]\ndefault_max_results = 0"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(tt.path, envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandHome("~/.doccontext/x.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".doccontext", "x.db"), got)

	got, err = ExpandHome("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)

	got, err = ExpandHome("~user/x")
	require.NoError(t, err)
	assert.Equal(t, "~user/x", got)
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.DBPath = filepath.Join(root, "db", "docs.db")
	cfg.DataDir = filepath.Join(root, "data")

	require.NoError(t, cfg.EnsureDirs())
	assert.DirExists(t, filepath.Join(root, "db"))
	assert.DirExists(t, cfg.DataDir)
}
