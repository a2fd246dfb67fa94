package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "statcheck", cfg.Name)
	assert.Equal(t, "https://statistikdatabasen.scb.se/api/v2", cfg.API.BaseURL)
	assert.Equal(t, "en", cfg.API.Language)
	assert.Equal(t, "json-stat2", cfg.API.OutputFormat)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 24*time.Hour, cfg.GetCacheTTL())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "statcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  language: sv\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sv", cfg.API.Language)
	assert.Equal(t, "https://statistikdatabasen.scb.se/api/v2", cfg.API.BaseURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [not a map"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("GEMINI_API_KEY sets key and provider", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "test-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "test-key", cfg.LLM.APIKey)
		assert.Equal(t, "genai", cfg.LLM.Provider)
	})

	t.Run("GEMINI_API_KEY keeps existing provider", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "test-key")

		cfg := &Config{LLM: LLMConfig{Provider: "gemini-rest"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "gemini-rest", cfg.LLM.Provider)
	})

	t.Run("database paths", func(t *testing.T) {
		t.Setenv("STATCHECK_CATALOG_DB", "/tmp/cat.db")
		t.Setenv("STATCHECK_CACHE_DB", "/tmp/cache.db")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/cat.db", cfg.Catalog.DatabasePath)
		assert.Equal(t, "/tmp/cache.db", cfg.Cache.DatabasePath)
	})

	t.Run("API URL", func(t *testing.T) {
		t.Setenv("STATCHECK_API_URL", "http://localhost:8080")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	})
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "nested", "statcheck.yaml")

	cfg := DefaultConfig()
	cfg.API.Language = "sv"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sv", loaded.API.Language)
}

func TestDurationGetters(t *testing.T) {
	cfg := &Config{
		LLM:   LLMConfig{Timeout: "90s"},
		API:   APIConfig{Timeout: "bogus"},
		Cache: CacheConfig{TTL: "1h"},
	}

	assert.Equal(t, 90*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 30*time.Second, cfg.GetAPITimeout(), "unparseable falls back to default")
	assert.Equal(t, time.Hour, cfg.GetCacheTTL())
}
