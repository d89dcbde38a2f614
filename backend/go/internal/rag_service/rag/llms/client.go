package llms

import (
	"context"
	"errors"
	"fmt"

	"Aethena/backend/go/internal/llm"
	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/pkg/circuitbreaker"
)

// Client adapts a provider from internal/llm to the LLM interface and reports
// every provider failure as ErrGeneration.
type Client struct {
	provider llm.LLM
	breaker  circuitbreaker.CircuitBreaker
}

// NewClient creates a Client. breaker may be nil.
func NewClient(provider llm.LLM, breaker circuitbreaker.CircuitBreaker) *Client {
	return &Client{provider: provider, breaker: breaker}
}

// Generate runs one system + user completion.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	var answer string
	call := func(ctx context.Context) error {
		var err error
		answer, err = c.provider.Generate(ctx, system, user)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", schema.ErrGeneration, err)
	}
	return answer, nil
}

// compile-time check to ensure Client implements the LLM interface
var _ interfaces.LLM = (*Client)(nil)
