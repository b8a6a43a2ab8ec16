package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned while a breaker rejects calls.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreaker stops calling a failing service for a cool-down period
// after a run of consecutive failures.
type CircuitBreaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
}

// NewCircuitBreaker creates a breaker that opens after threshold consecutive
// failures and probes again after cooldown.
func NewCircuitBreaker(name string, threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{name: name, threshold: threshold, cooldown: cooldown, now: time.Now}
}

// State returns the current state, reporting half-open once the cool-down
// has elapsed.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Execute runs fn unless the breaker is open.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call runs fn through b and returns its value.
func Call[T any](ctx context.Context, b *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, eris.Wrap(ErrCircuitOpen, b.name)
	}
	v, err := fn(ctx)
	b.record(err)
	return v, err
}

func (b *CircuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return true
	}
	if b.now().Sub(b.openedAt) >= b.cooldown {
		b.setState(StateHalfOpen)
		return true
	}
	return false
}

func (b *CircuitBreaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		if b.state != StateClosed {
			b.setState(StateClosed)
		}
		return
	}
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		b.openedAt = b.now()
		if b.state != StateOpen {
			b.setState(StateOpen)
		}
	}
}

func (b *CircuitBreaker) setState(to BreakerState) {
	zap.L().Info("circuit breaker state change",
		zap.String("breaker", b.name),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
	)
	b.state = to
}
