package embeddings

import (
	"context"
	"testing"
	"time"

	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/pkg/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns vectors whose first component is the text length,
// and records the size of every batch it receives.
type scriptedProvider struct {
	batches []int
	mutate  func(out [][]float32) [][]float32
	err     error
}

func (p *scriptedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (p *scriptedProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.batches = append(p.batches, len(texts))
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	if p.mutate != nil {
		out = p.mutate(out)
	}
	return out, nil
}

func TestEmbedBatchSplitsAndKeepsOrder(t *testing.T) {
	p := &scriptedProvider{}
	c := NewClient(p, 2, nil)

	out, err := c.EmbedBatch(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, p.batches)
	require.Len(t, out, 5)
	for i, v := range out {
		assert.Equal(t, float32(i+1), v[0])
	}
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	p := &scriptedProvider{}
	out, err := NewClient(p, 4, nil).EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, p.batches)
}

func TestEmbedBatchRejectsBadResponses(t *testing.T) {
	cases := map[string]func([][]float32) [][]float32{
		"count mismatch": func(out [][]float32) [][]float32 { return out[:1] },
		"empty vector":   func(out [][]float32) [][]float32 { out[1] = nil; return out },
		"dimension drift": func(out [][]float32) [][]float32 {
			out[1] = []float32{1, 2, 3}
			return out
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewClient(&scriptedProvider{mutate: mutate}, 8, nil)
			_, err := c.EmbedBatch(context.Background(), []string{"x", "y"})
			assert.ErrorIs(t, err, schema.ErrEmbeddingService)
			assert.True(t, schema.IsTransient(err))
		})
	}
}

func TestEmbedWrapsUpstreamErrors(t *testing.T) {
	c := NewClient(&scriptedProvider{err: assert.AnError}, 8, nil)
	_, err := c.Embed(context.Background(), "q")
	assert.ErrorIs(t, err, schema.ErrEmbeddingService)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestOpenBreakerIsAnEmbeddingServiceError(t *testing.T) {
	p := &scriptedProvider{err: assert.AnError}
	c := NewClient(p, 8, circuitbreaker.New(1, 1, time.Hour))

	_, err := c.Embed(context.Background(), "q")
	require.Error(t, err)
	_, err = c.Embed(context.Background(), "q")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.ErrorIs(t, err, schema.ErrEmbeddingService)
	assert.Len(t, p.batches, 1)
}
