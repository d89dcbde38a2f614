package milvus

import (
	"testing"

	"Aethena/backend/go/internal/config"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndexDefaultsToHNSW(t *testing.T) {
	idx, err := BuildIndex(config.IndexConfig{})
	require.NoError(t, err)
	assert.Equal(t, entity.HNSW, idx.IndexType())

	sp, err := BuildSearchParam(config.IndexConfig{})
	require.NoError(t, err)
	assert.Equal(t, 64, sp.Params()["ef"])
}

func TestBuildIndexTypes(t *testing.T) {
	for _, typ := range []string{"FLAT", "IVF_FLAT", "ivf_sq8", "IVF_PQ", "AUTOINDEX"} {
		_, err := BuildIndex(config.IndexConfig{IndexType: typ, MetricType: "L2"})
		assert.NoError(t, err, typ)
		_, err = BuildSearchParam(config.IndexConfig{IndexType: typ})
		assert.NoError(t, err, typ)
	}
	_, err := BuildIndex(config.IndexConfig{IndexType: "DISKANN_XL"})
	assert.Error(t, err)
}

func TestMetricType(t *testing.T) {
	assert.Equal(t, entity.COSINE, MetricType(config.IndexConfig{}))
	assert.Equal(t, entity.L2, MetricType(config.IndexConfig{MetricType: "l2"}))
	assert.Equal(t, entity.IP, MetricType(config.IndexConfig{MetricType: "IP"}))
}
