package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("app:\n  name: rag\n"))
	require.NoError(t, err)

	assert.Equal(t, "rag", cfg.App.Name)
	assert.Equal(t, 800, cfg.Chunking.ChunkSize)
	assert.Equal(t, 100, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, 100, cfg.Chunking.MinChunkSize)
	assert.Equal(t, 5, cfg.Search.TopK)
	require.NotNil(t, cfg.Search.MinScore)
	assert.InDelta(t, 0.7, *cfg.Search.MinScore, 1e-6)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, 5, cfg.Embedding.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Embedding.BatchDelay)
	assert.Equal(t, "COSINE", cfg.Databases.Milvus.Index.MetricType)
	assert.Equal(t, "HNSW", cfg.Databases.Milvus.Index.IndexType)
	assert.Equal(t, 100, cfg.VectorStore.UpsertBatchSize)
}

func TestParse_ExplicitZeroMinScoreKept(t *testing.T) {
	cfg, err := Parse([]byte("search:\n  minScore: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Search.MinScore)
	assert.Equal(t, float32(0), *cfg.Search.MinScore)
}

func TestParse_Durations(t *testing.T) {
	cfg, err := Parse([]byte("embedding:\n  timeout: 5s\n  batchDelay: 250ms\n"))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Embedding.BatchDelay)
}

func TestParse_Validation(t *testing.T) {
	_, err := Parse([]byte("chunking:\n  chunkSize: 100\n  chunkOverlap: 100\n  minChunkSize: 10\n"))
	assert.ErrorContains(t, err, "chunkOverlap")

	_, err = Parse([]byte("vectorStore:\n  provider: pinecone\n"))
	assert.ErrorContains(t, err, "vectorStore.provider")

	_, err = Parse([]byte("auth:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "jwtSecret")

	_, err = Parse([]byte("jobs:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "kafka")
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")
	cfg, err := Parse([]byte("embedding:\n  gemini:\n    apiKey: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Embedding.Gemini.APIKey)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \":9090\"\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_TokenChunking(t *testing.T) {
	cfg, err := Parse([]byte("chunking:\n  tokensPerChunk: 200\n  overlapTokens: 25\n"))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Chunking.TokensPerChunk)

	_, err = Parse([]byte("chunking:\n  tokensPerChunk: 20\n  overlapTokens: 20\n"))
	assert.ErrorContains(t, err, "overlapTokens")

	_, err = Parse([]byte("chunking:\n  tokensPerChunk: 1025\n"))
	assert.ErrorContains(t, err, "tokensPerChunk")
}

func TestParse_ChunkSizeLimit(t *testing.T) {
	_, err := Parse([]byte("chunking:\n  chunkSize: 4096\n"))
	require.NoError(t, err)

	_, err = Parse([]byte("chunking:\n  chunkSize: 4097\n"))
	assert.ErrorContains(t, err, "chunkSize")
}

func TestLoadConfig_SampleFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "sample-secret")

	cfg, err := LoadConfig(filepath.Join("..", "..", "..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "milvus", cfg.VectorStore.Provider)
	assert.Equal(t, 256, cfg.Embedding.QueryCacheSize)
	assert.Equal(t, 10*time.Minute, cfg.Embedding.QueryCacheTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Databases.Kafka.Brokers)
	assert.Equal(t, 16, cfg.Databases.Milvus.Index.Params["M"])
}
