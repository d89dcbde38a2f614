package embeddings

import (
	"context"
	"errors"
	"fmt"

	"Aethena/backend/go/internal/embedding"
	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/pkg/circuitbreaker"
)

// Client adapts an embedding provider to the EmbeddingModel interface. It
// sends texts in bounded sub-batches, checks that every vector came back with
// a consistent dimension, and reports any failure as ErrEmbeddingService.
type Client struct {
	provider  embedding.Embedding
	batchSize int
	breaker   circuitbreaker.CircuitBreaker
}

// NewClient creates a Client. breaker may be nil.
func NewClient(provider embedding.Embedding, batchSize int, breaker circuitbreaker.CircuitBreaker) *Client {
	if batchSize <= 0 {
		batchSize = 96
	}
	return &Client{provider: provider, batchSize: batchSize, breaker: breaker}
}

// Embed returns the vector for one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text, in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch := texts[start:end]

		var vectors [][]float32
		err := c.call(ctx, func(ctx context.Context) error {
			var err error
			vectors, err = c.provider.EmbedBatch(ctx, batch)
			return err
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", schema.ErrEmbeddingService, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", schema.ErrEmbeddingService, len(vectors), len(batch))
		}
		out = append(out, vectors...)
	}

	dim := len(out[0])
	for i, v := range out {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector at index %d", schema.ErrEmbeddingService, i)
		}
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", schema.ErrEmbeddingService, i, len(v), dim)
		}
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.breaker == nil {
		return fn(ctx)
	}
	return c.breaker.Execute(ctx, fn)
}

// compile-time check to ensure Client implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*Client)(nil)
