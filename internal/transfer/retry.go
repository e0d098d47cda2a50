package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/fjmerc/filesender-client/internal/config"
	"github.com/fjmerc/filesender-client/internal/metrics"
)

// RetryPolicy decides whether failed transport calls are attempted again.
type RetryPolicy interface {
	Do(ctx context.Context, op string, fn func(ctx context.Context) error) error
}

// NoRetry runs each operation exactly once.
type NoRetry struct{}

// Do runs fn once.
func (NoRetry) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// BackoffRetry retries temporary failures following a go-retry backoff.
type BackoffRetry struct {
	newBackoff func() retry.Backoff
}

// NewConstantRetry retries up to attempts times, waiting delay between tries.
func NewConstantRetry(attempts uint64, delay time.Duration) *BackoffRetry {
	return &BackoffRetry{newBackoff: func() retry.Backoff {
		return retry.WithMaxRetries(attempts, retry.NewConstant(delay))
	}}
}

// NewExponentialRetry retries up to attempts times with doubling, jittered delays.
func NewExponentialRetry(attempts uint64, base time.Duration) *BackoffRetry {
	return &BackoffRetry{newBackoff: func() retry.Backoff {
		b := retry.NewExponential(base)
		b = retry.WithJitterPercent(10, b)
		return retry.WithMaxRetries(attempts, b)
	}}
}

// Do runs fn, retrying errors that are not permanent.
func (p *BackoffRetry) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, p.newBackoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		metrics.RetriesTotal.WithLabelValues(op).Inc()
		return retry.RetryableError(err)
	})
}

// RetryPolicyFromConfig builds the configured policy.
func RetryPolicyFromConfig(cfg *config.Config) RetryPolicy {
	switch cfg.RetryPolicy {
	case config.RetryPolicyConstant:
		return NewConstantRetry(uint64(cfg.RetryMaxAttempts), cfg.RetryBaseDelay)
	case config.RetryPolicyExponential:
		return NewExponentialRetry(uint64(cfg.RetryMaxAttempts), cfg.RetryBaseDelay)
	default:
		return NoRetry{}
	}
}

// temporary is implemented by transport errors that know whether a
// retry can succeed.
type temporary interface {
	Temporary() bool
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrStopped) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return true
}
