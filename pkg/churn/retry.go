package churn

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/walletops/churnd/pkg/logger"
)

// RetryPolicy is the single retry discipline for transient service failures:
// a fixed interval, retried without bound. The process parks until the
// operator fixes the external condition or terminates it; only context
// cancellation stops the loop.
type RetryPolicy struct {
	Interval time.Duration
	clock    clock.Clock
}

func NewRetryPolicy(interval time.Duration, clk clock.Clock) RetryPolicy {
	return RetryPolicy{Interval: interval, clock: clk}
}

// Do runs fn until it succeeds or ctx is cancelled. Every failed attempt is
// logged with op and fields so the condition can be diagnosed externally.
func (p RetryPolicy) Do(ctx context.Context, op string, fields map[string]any, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		logFields := map[string]any{
			"op":      op,
			"attempt": attempt,
			"error":   err.Error(),
		}
		for k, v := range fields {
			logFields[k] = v
		}
		logger.WarnCF("retry", "Transient failure, will retry", logFields)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.TickAfter(p.Interval):
		}
	}
}
