package retry

import (
	"context"
	"math"
	"time"

	"fincal/pkg/errors"
)

// Strategy defines the retry strategy
type Strategy string

const (
	// StrategyExponential uses exponential backoff
	StrategyExponential Strategy = "exponential"
	// StrategyLinear uses linear backoff
	StrategyLinear Strategy = "linear"
	// StrategyFixed uses fixed delay
	StrategyFixed Strategy = "fixed"
)

// Config contains retry configuration
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Strategy     Strategy
	Multiplier   float64 // For exponential backoff

	// Retryable decides whether an error is worth another attempt.
	// Defaults to errors.Retryable (provider rate limiting only).
	Retryable func(error) bool
}

// DefaultConfig returns the provider backoff used when a provider throttles us
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Strategy:     StrategyExponential,
		Multiplier:   2.0,
	}
}

// Middleware provides retry functionality with backoff
type Middleware struct {
	config Config
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a new retry middleware
func New(config Config) *Middleware {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Strategy == "" {
		config.Strategy = StrategyExponential
	}
	if config.Retryable == nil {
		config.Retryable = errors.Retryable
	}

	return &Middleware{config: config, sleep: sleepCtx}
}

// Do executes fn, retrying retryable failures with backoff.
// When retries are exhausted the last error is returned wrapped with ErrProviderUnavailable,
// so callers treat a persistently throttled provider as unavailable.
func (m *Middleware) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= m.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !m.config.Retryable(err) {
			return err
		}

		if attempt == m.config.MaxRetries {
			break
		}

		if err := m.sleep(ctx, m.calculateDelay(attempt)); err != nil {
			return errors.Wrap(err, "retry cancelled")
		}
	}

	return errors.Join(
		errors.Wrapf(errors.ErrProviderUnavailable, "max retries (%d) exceeded", m.config.MaxRetries),
		lastErr,
	)
}

// calculateDelay calculates the backoff delay based on the strategy
func (m *Middleware) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch m.config.Strategy {
	case StrategyExponential:
		delay = time.Duration(float64(m.config.InitialDelay) * math.Pow(m.config.Multiplier, float64(attempt)))
	case StrategyLinear:
		delay = m.config.InitialDelay * time.Duration(1+attempt)
	case StrategyFixed:
		delay = m.config.InitialDelay
	default:
		delay = m.config.InitialDelay
	}

	if delay > m.config.MaxDelay {
		delay = m.config.MaxDelay
	}

	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
