package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"Aethena/backend/go/internal/config"
	"Aethena/backend/go/pkg/circuitbreaker"
)

// Client wraps the standard http.Client with optional circuit breaking.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
}

// NewClient creates a new Client. The breaker is only installed when enabled in cfg.
func NewClient(cfg config.CircuitBreakerConfig, timeout time.Duration) (*Client, error) {
	breaker, err := circuitbreaker.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithBreaker(breaker, timeout), nil
}

// NewClientWithBreaker creates a Client around an existing breaker, which may be nil.
func NewClientWithBreaker(breaker circuitbreaker.CircuitBreaker, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}, breaker: breaker}
}

// Do executes an HTTP request with circuit breaker protection.
// Status codes >= 500 count as failures; the response is still returned to
// the caller so the error body can be read.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	err := c.breaker.Execute(req.Context(), func(context.Context) error {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return &statusError{code: resp.StatusCode}
		}
		return nil
	})
	if _, ok := err.(*statusError); ok {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type statusError struct{ code int }

func (e *statusError) Error() string {
	return fmt.Sprintf("server error: received status code %d", e.code)
}
