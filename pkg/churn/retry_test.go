package churn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_FixedBackoffUntilSuccess(t *testing.T) {
	start := time.Now()
	clk := clock.NewTestClock(start)
	p := NewRetryPolicy(time.Minute, clk)

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(context.Background(), "op", nil, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("transient")
			}
			return nil
		})
	}()

	timeout := time.After(5 * time.Second)
	for i := 1; ; i++ {
		select {
		case err := <-done:
			require.NoError(t, err)
			require.Equal(t, 3, attempts)
			return
		case <-timeout:
			t.Fatal("retry never completed")
		default:
			clk.SetTime(start.Add(time.Duration(i) * time.Minute))
			time.Sleep(time.Millisecond)
		}
	}
}

func TestRetryPolicy_StopsOnContextCancel(t *testing.T) {
	clk := clock.NewTestClock(time.Now())
	p := NewRetryPolicy(time.Minute, clk)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, "op", map[string]any{"wallet": "w1"}, func() error {
			return errors.New("never succeeds")
		})
	}()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestRetryPolicy_NoWaitOnFirstSuccess(t *testing.T) {
	// A test clock that never advances: success on the first attempt must
	// not touch the ticker at all.
	p := NewRetryPolicy(time.Minute, clock.NewTestClock(time.Now()))
	calls := 0
	err := p.Do(context.Background(), "op", nil, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}
