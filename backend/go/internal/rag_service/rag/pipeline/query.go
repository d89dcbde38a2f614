package pipeline

import (
	"context"
	"fmt"
	"strings"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/pkg/logger"
)

// QueryPipeline answers a tenant's question from that tenant's documents and
// records the exchange.
type QueryPipeline struct {
	retrieval              *RetrievalPipeline
	qa                     *QAPipeline
	history                interfaces.HistoryRecorder
	maxContextChars        int
	generateWithoutContext bool
	log                    *logger.Logger
}

// QueryOption configures optional QueryPipeline behavior.
type QueryOption func(*QueryPipeline)

// WithMaxContextChars bounds the context block.
func WithMaxContextChars(n int) QueryOption {
	return func(p *QueryPipeline) {
		if n > 0 {
			p.maxContextChars = n
		}
	}
}

// WithGenerateWithoutContext makes the pipeline call the model even when
// retrieval found nothing. By default NoAnswer is returned directly.
func WithGenerateWithoutContext(enabled bool) QueryOption {
	return func(p *QueryPipeline) { p.generateWithoutContext = enabled }
}

// NewQueryPipeline creates a new QueryPipeline. history may be nil.
func NewQueryPipeline(retrieval *RetrievalPipeline, qa *QAPipeline, history interfaces.HistoryRecorder, log *logger.Logger, opts ...QueryOption) *QueryPipeline {
	p := &QueryPipeline{
		retrieval:       retrieval,
		qa:              qa,
		history:         history,
		maxContextChars: DefaultMaxContextChars,
		log:             log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run answers question for tenantID.
func (p *QueryPipeline) Run(ctx context.Context, tenantID, question string) (*schema.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", schema.ErrInvalidInput)
	}
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant is required", schema.ErrInvalidInput)
	}
	log := p.log.WithField("user_id", tenantID)

	hits, err := p.retrieval.Run(ctx, tenantID, question)
	if err != nil {
		return nil, err
	}

	contextBlock, included := BuildContext(hits, p.maxContextChars)
	answer := &schema.Answer{Sources: SourcesFor(included)}

	if len(included) == 0 && !p.generateWithoutContext {
		log.Info("no units retrieved, skipping generation")
		answer.Answer = NoAnswer
	} else {
		answer.Answer, err = p.qa.Run(ctx, question, contextBlock)
		if err != nil {
			return nil, err
		}
	}

	p.record(ctx, log, tenantID, question, answer)
	return answer, nil
}

// record persists the exchange. Failures are logged and swallowed.
func (p *QueryPipeline) record(ctx context.Context, log *logger.Logger, tenantID, question string, answer *schema.Answer) {
	if p.history == nil {
		return
	}
	err := p.history.Record(ctx, &models.QueryHistory{
		UserID:   tenantID,
		Question: question,
		Answer:   answer.Answer,
		Sources:  answer.Sources,
	})
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "history_error"}).Warn("failed to record query history")
	}
}
