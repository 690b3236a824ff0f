package milvus

import (
	"testing"

	"Outreach/backend/go/internal/config"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndex(t *testing.T) {
	idx, err := buildIndex(config.IndexConfig{IndexType: "HNSW", MetricType: "COSINE"})
	require.NoError(t, err)
	assert.Equal(t, entity.HNSW, idx.IndexType())

	idx, err = buildIndex(config.IndexConfig{IndexType: "IVF_FLAT", MetricType: "L2", Params: map[string]int{"nlist": 64}})
	require.NoError(t, err)
	assert.Equal(t, entity.IvfFlat, idx.IndexType())

	_, err = buildIndex(config.IndexConfig{IndexType: "DISKANN", MetricType: "COSINE"})
	assert.Error(t, err)
}

func TestBuildSearchParam(t *testing.T) {
	sp, err := buildSearchParam(config.IndexConfig{IndexType: "HNSW", SearchEf: 32}, 5)
	require.NoError(t, err)
	assert.Equal(t, 32, sp.Params()["ef"])

	_, err = buildSearchParam(config.IndexConfig{IndexType: "AUTOINDEX"}, 5)
	require.NoError(t, err)

	_, err = buildSearchParam(config.IndexConfig{IndexType: "UNKNOWN"}, 5)
	assert.Error(t, err)
}

func TestBuildSearchParam_EfCoversTopK(t *testing.T) {
	sp, err := buildSearchParam(config.IndexConfig{IndexType: "HNSW", SearchEf: 64}, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, sp.Params()["ef"])

	sp, err = buildSearchParam(config.IndexConfig{IndexType: "HNSW"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 64, sp.Params()["ef"])
}
