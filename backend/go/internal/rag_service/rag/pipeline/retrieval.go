package pipeline

import (
	"context"
	"fmt"

	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/pkg/logger"
)

// DefaultTopK is the number of units retrieved per question.
const DefaultTopK = 5

// RetrievalPipeline finds the units most similar to a question within one
// tenant's collection.
type RetrievalPipeline struct {
	embedder interfaces.EmbeddingModel
	index    interfaces.VectorIndex
	topK     int
	log      *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline. A non-positive topK
// falls back to DefaultTopK.
func NewRetrievalPipeline(embedder interfaces.EmbeddingModel, index interfaces.VectorIndex, topK int, log *logger.Logger) *RetrievalPipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RetrievalPipeline{embedder: embedder, index: index, topK: topK, log: log}
}

// Run embeds the question and searches the tenant's collection. Every
// failure is reported as ErrRetrieval wrapping the upstream kind.
func (p *RetrievalPipeline) Run(ctx context.Context, tenantID, question string) ([]schema.SearchHit, error) {
	vector, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", schema.ErrRetrieval, ensureKind(schema.ErrEmbeddingService, err))
	}

	hits, err := p.index.SimilaritySearch(ctx, tenantID, vector, p.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", schema.ErrRetrieval, ensureKind(schema.ErrIndexUnavailable, err))
	}
	p.log.Debug(fmt.Sprintf("retrieved %d units for tenant %s", len(hits), tenantID))
	return hits, nil
}
