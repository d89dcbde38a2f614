package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Aethena/backend/go/internal/config"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where requests are allowed.
	Closed State = iota
	// Open state is when the circuit has tripped and requests are blocked.
	Open
	// HalfOpen allows trial requests through to test whether the upstream recovered.
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards calls to an upstream dependency.
type CircuitBreaker interface {
	// Execute runs fn unless the circuit is open.
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
	// State returns the current state of the circuit breaker.
	State() State
}

// Option customizes a breaker.
type Option func(*breaker)

// WithFailurePredicate decides which errors count towards tripping the
// circuit. Errors it rejects are returned to the caller untouched and reset
// nothing. By default every non-nil error except context cancellation counts.
func WithFailurePredicate(isFailure func(error) bool) Option {
	return func(b *breaker) { b.isFailure = isFailure }
}

func withClock(now func() time.Time) Option {
	return func(b *breaker) { b.now = now }
}

type breaker struct {
	failureThreshold uint32        // Number of failures to trip the circuit.
	successThreshold uint32        // Number of successes in HalfOpen state to close the circuit.
	timeout          time.Duration // Duration to wait in Open state before transitioning to HalfOpen.
	isFailure        func(error) bool
	now              func() time.Time

	mutex                sync.Mutex
	state                State
	consecutiveSuccesses uint32
	consecutiveFailures  uint32
	openedAt             time.Time
}

// New creates a circuit breaker.
// failureThreshold: consecutive failures required to open the circuit.
// successThreshold: consecutive half-open successes required to close it again.
// timeout: how long the circuit stays open before allowing a trial request.
func New(failureThreshold, successThreshold uint32, timeout time.Duration, opts ...Option) CircuitBreaker {
	if failureThreshold == 0 {
		failureThreshold = 1
	}
	if successThreshold == 0 {
		successThreshold = 1
	}
	b := &breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		isFailure:        defaultIsFailure,
		now:              time.Now,
		state:            Closed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// State returns the current state of the circuit breaker.
func (b *breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.maybeHalfOpen()
	return b.state
}

// Execute wraps fn with the circuit breaker logic.
func (b *breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	b.mutex.Lock()
	b.maybeHalfOpen()
	if b.state == Open {
		b.mutex.Unlock()
		return ErrCircuitOpen
	}
	b.mutex.Unlock()

	err := fn(ctx)
	switch {
	case err == nil:
		b.onSuccess()
	case b.isFailure(err):
		b.onFailure()
	}
	return err
}

// maybeHalfOpen moves an expired Open circuit to HalfOpen. Caller holds the mutex.
func (b *breaker) maybeHalfOpen() {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.timeout {
		b.state = HalfOpen
		b.consecutiveSuccesses = 0
	}
}

func (b *breaker) onSuccess() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch b.state {
	case HalfOpen:
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.successThreshold {
			b.reset()
		}
	case Closed:
		b.consecutiveFailures = 0
	}
}

func (b *breaker) onFailure() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch b.state {
	case HalfOpen:
		b.trip()
	case Closed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failureThreshold {
			b.trip()
		}
	}
}

func (b *breaker) trip() {
	b.state = Open
	b.openedAt = b.now()
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
}

func (b *breaker) reset() {
	b.state = Closed
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
}

// FromConfig builds a breaker from the middleware configuration. It returns
// nil when the breaker is disabled.
func FromConfig(cfg config.CircuitBreakerConfig, opts ...Option) (CircuitBreaker, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	return New(cfg.FailureThreshold, cfg.SuccessThreshold, timeout, opts...), nil
}
