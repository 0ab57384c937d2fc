package resilience

import "context"

// Executor composes retry outside circuit breaking: each retry attempt is
// itself circuit-guarded, so a freshly opened breaker stops the remaining
// attempts for that service immediately.
type Executor struct {
	retry    RetryConfig
	breakers *BreakerRegistry
}

// NewExecutor creates an executor with the given retry schedule and
// breaker registry.
func NewExecutor(retry RetryConfig, breakers *BreakerRegistry) *Executor {
	return &Executor{retry: retry, breakers: breakers}
}

// NewDefaultExecutor creates an executor with default retry and breaker
// settings and a fresh registry.
func NewDefaultExecutor() *Executor {
	return NewExecutor(DefaultRetryConfig(), NewBreakerRegistry(DefaultBreakerConfig()))
}

// Execute runs op against the named service with full protection. The
// returned error, if any, is always a *ClassifiedError.
func (e *Executor) Execute(ctx context.Context, service string, op Operation) error {
	cb := e.breakers.Get(service)

	err := ExecuteWithRetry(ctx, func(ctx context.Context) error {
		return cb.Execute(ctx, op)
	}, e.retry)
	if err == nil {
		return nil
	}

	ce := Classify(err)
	if ce.Service == "" {
		ce.Service = service
	}
	return ce
}

// Breakers exposes the registry, mainly for admin endpoints and tests.
func (e *Executor) Breakers() *BreakerRegistry { return e.breakers }
