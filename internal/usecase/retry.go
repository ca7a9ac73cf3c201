package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/domain"
)

// RetryPolicy re-runs idempotent operations that lost an optimistic race.
// Only conflicts are retried; every other outcome is returned as is.
type RetryPolicy struct {
	maxRetries      int
	initialInterval time.Duration
	metrics         MetricsRecorder
	timer           backoff.Timer
}

// RetryOption customizes a RetryPolicy.
type RetryOption func(*RetryPolicy)

// WithRetryMetrics reports every retry to m.
func WithRetryMetrics(m MetricsRecorder) RetryOption {
	return func(p *RetryPolicy) { p.metrics = m }
}

// WithRetryTimer replaces the wall-clock timer used between attempts.
func WithRetryTimer(t backoff.Timer) RetryOption {
	return func(p *RetryPolicy) { p.timer = t }
}

// NewRetryPolicy creates a policy allowing maxRetries retries after the first
// attempt, waiting initialInterval before the first retry and doubling the
// wait after each one.
func NewRetryPolicy(maxRetries int, initialInterval time.Duration, opts ...RetryOption) *RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if initialInterval <= 0 {
		initialInterval = DefaultRetryInitialInterval
	}

	p := &RetryPolicy{
		maxRetries:      maxRetries,
		initialInterval: initialInterval,
		metrics:         noopMetrics{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxRetries returns the retry budget.
func (p *RetryPolicy) MaxRetries() int { return p.maxRetries }

// Run calls attempt once, and again on conflict while the budget lasts if
// idempotent is set. Exhaustion returns the last conflict. Cancellation while
// waiting is a system failure.
func (p *RetryPolicy) Run(ctx context.Context, operation string, idempotent bool, attempt func(ctx context.Context) error) error {
	if !idempotent || p.maxRetries == 0 {
		return attempt(ctx)
	}

	logger := zerolog.Ctx(ctx)
	retries := 0

	err := backoff.RetryNotifyWithTimer(func() error {
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	}, p.newBackOff(ctx), func(err error, delay time.Duration) {
		retries++
		p.metrics.IncRetry(operation)
		logger.Warn().
			Err(err).
			Str("operation", operation).
			Int("retry", retries).
			Dur("delay", delay).
			Msg("conflict, retrying operation")
	}, p.timer)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return domain.NewSystemError("retry "+operation, err)
	}
	return err
}

func (p *RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialInterval
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = p.initialInterval
	for i := 0; i < p.maxRetries && b.MaxInterval < time.Minute; i++ {
		b.MaxInterval *= 2
	}
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.maxRetries)), ctx)
}
