// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/murmur-dev/murmur/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "murmur.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8787", cfg.Server.Listen)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 1536, cfg.Storage.VectorDimensions)
	assert.Equal(t, "openai/text-embedding-3-small", cfg.Models.Embedding)
	assert.Equal(t, 5, cfg.Clustering.Count)
	assert.Equal(t, 10, cfg.Clustering.Threshold)
	assert.Equal(t, "hybrid", cfg.Search.Mode)
	assert.InDelta(t, 0.6, cfg.Search.SemanticWeight, 1e-9)
	assert.InDelta(t, 0.4, cfg.Search.KeywordWeight, 1e-9)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: "127.0.0.1:9090"
storage:
  backend: memory
  vector_dimensions: 8
providers:
  openai:
    api_key: test-key
clustering:
  count: 3
search:
  mode: keyword
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Listen)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 8, cfg.Storage.VectorDimensions)
	assert.Equal(t, 3, cfg.Clustering.Count)
	assert.Equal(t, "keyword", cfg.Search.Mode)
	assert.Equal(t, "test-key", cfg.Providers["openai"].APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: "not-an-address"
storage:
  backend: postgres
  vector_dimensions: 0
clustering:
  count: 0
search:
  mode: fuzzy
  semantic_weight: 2.0
`)

	_, err := config.Load(path)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "server.listen")
	assert.Contains(t, msg, "storage.backend")
	assert.Contains(t, msg, "vector_dimensions")
	assert.Contains(t, msg, "clustering.count")
	assert.Contains(t, msg, "search.mode")
	assert.Contains(t, msg, "semantic_weight")
}

func TestValidate_ModelsCrossReferenceProviders(t *testing.T) {
	path := writeConfig(t, `
providers:
  anthropic:
    api_key: test-key
models:
  embedding: openai/text-embedding-3-small
  enrichment: anthropic/claude-haiku-4-5
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `provider "openai" which is not configured`)
}

func TestProviderModelSplit(t *testing.T) {
	assert.Equal(t, "openai", config.ProviderFromModel("openai/text-embedding-3-small"))
	assert.Equal(t, "text-embedding-3-small", config.ModelFromRef("openai/text-embedding-3-small"))
	assert.Equal(t, "bare", config.ProviderFromModel("bare"))
	assert.Equal(t, "bare", config.ModelFromRef("bare"))
}
