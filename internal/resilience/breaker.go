package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reelsmith/internal/logging"
)

// BreakerState is the circuit breaker state.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half-open"
)

// BreakerConfig controls circuit-breaker behavior.
type BreakerConfig struct {
	FailureThreshold int           // Consecutive failures before opening
	ResetTimeout     time.Duration // Time open before probing half-open
	HalfOpenAttempts int           // Consecutive successes to close again
}

// DefaultBreakerConfig returns the standard breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
		HalfOpenAttempts: 3,
	}
}

// CircuitBreaker guards one external service. It starts closed, opens
// after FailureThreshold consecutive failures, probes half-open after
// ResetTimeout, and closes again after HalfOpenAttempts consecutive
// half-open successes. A single half-open failure reopens it.
type CircuitBreaker struct {
	service string
	config  BreakerConfig

	mu           sync.Mutex
	state        BreakerState
	failureCount int
	successCount int
	lastFailure  time.Time

	now func() time.Time // injectable clock for tests
}

// NewCircuitBreaker creates a closed breaker for the named service.
func NewCircuitBreaker(service string, config BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		service: service,
		config:  config,
		state:   StateClosed,
		now:     time.Now,
	}
}

// ErrCircuitOpen marks rejections while the breaker is open. The wrapping
// ClassifiedError is SERVICE_UNAVAILABLE and deliberately non-retryable:
// hammering a tripped service defeats the breaker.
var ErrCircuitOpen = fmt.Errorf("circuit breaker open")

// Execute runs op if the breaker allows it and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, op Operation) error {
	if err := cb.allow(); err != nil {
		return err
	}

	err := op(ctx)
	if err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

// allow checks admission, transitioning open -> half-open when the reset
// timeout has elapsed.
func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailure) >= cb.config.ResetTimeout {
			cb.state = StateHalfOpen
			cb.successCount = 0
			logging.ResilienceDebug("breaker %s: open -> half-open", cb.service)
		} else {
			return &ClassifiedError{
				Category:  CategoryServiceUnavailable,
				Service:   cb.service,
				Retryable: false,
				Err:       fmt.Errorf("%w for %s", ErrCircuitOpen, cb.service),
			}
		}
	}
	return nil
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = cb.now()
	switch cb.state {
	case StateHalfOpen:
		cb.state = StateOpen
		cb.successCount = 0
		logging.Get(logging.CategoryResilience).Warnf("breaker %s: half-open probe failed, reopening", cb.service)
	default:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.state = StateOpen
			logging.Get(logging.CategoryResilience).Warnf("breaker %s: opened after %d consecutive failures", cb.service, cb.failureCount)
		}
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.HalfOpenAttempts {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.successCount = 0
			logging.ResilienceDebug("breaker %s: half-open -> closed", cb.service)
		}
	default:
		cb.failureCount = 0
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker back to closed with cleared counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
}

// BreakerRegistry owns one breaker per external service name. It is
// injected into the orchestrator rather than kept as package state so
// tests can reset deterministically and orchestrator instances do not
// share hidden state.
type BreakerRegistry struct {
	mu       sync.Mutex
	config   BreakerConfig
	breakers map[string]*CircuitBreaker
}

// NewBreakerRegistry creates an empty registry.
func NewBreakerRegistry(config BreakerConfig) *BreakerRegistry {
	return &BreakerRegistry{
		config:   config,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for a service, creating it on first use.
func (r *BreakerRegistry) Get(service string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[service]
	if !ok {
		cb = NewCircuitBreaker(service, r.config)
		r.breakers[service] = cb
	}
	return cb
}

// ResetAll closes every breaker in the registry.
func (r *BreakerRegistry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cb := range r.breakers {
		cb.Reset()
	}
}
