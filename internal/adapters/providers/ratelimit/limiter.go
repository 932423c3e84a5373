package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"fincal/pkg/errors"
)

// Limiter paces outbound calls to a single data provider
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter creates a new rate limiter.
// requestsPerMinute <= 0 disables limiting.
func NewLimiter(name string, requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1), name: name}
	}

	rps := float64(requestsPerMinute) / 60.0

	// Allow burst of 10% of per-minute limit
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
	}
}

// Wait blocks until the rate limiter allows the request
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limiter %s", l.name)
	}
	return nil
}

// Allow checks if a request is allowed without blocking
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Name returns the limiter name
func (l *Limiter) Name() string {
	return l.name
}

// Registry hands out one shared limiter per provider so that concurrent jobs
// hitting the same provider draw from the same budget.
type Registry struct {
	limiters map[string]*Limiter
	mu       sync.Mutex
}

// NewRegistry creates an empty limiter registry
func NewRegistry() *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
	}
}

// For returns the limiter for provider, creating it on first use
func (r *Registry) For(provider string, requestsPerMinute int) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[provider]; ok {
		return l
	}

	l := NewLimiter(provider, requestsPerMinute)
	r.limiters[provider] = l
	return l
}
