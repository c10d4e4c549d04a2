package churn

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/walletops/churnd/pkg/logger"
	"github.com/walletops/churnd/pkg/state"
	"github.com/walletops/churnd/pkg/wallet"
)

// ChurnWallet is what the executor needs from the one open wallet.
// *wallet.Active satisfies it.
type ChurnWallet interface {
	Name() string
	Address() string
	Balance(ctx context.Context) (wallet.Balance, error)
	SelfSend(ctx context.Context) (string, error)
}

// ExecutorConfig bounds the executor's waits.
type ExecutorConfig struct {
	// PollInterval spaces balance polls while waiting for funds to unlock.
	PollInterval time.Duration

	// MinDelay/MaxDelay bound the random pause between confirmed rounds.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Executor runs the churn round loop for one open wallet: wait for the
// balance to unlock, send it back to the wallet's own address, persist the
// completed round, pause, repeat until the wallet's rounds are exhausted.
type Executor struct {
	cfg     ExecutorConfig
	states  *state.Store
	display *Display
	retry   RetryPolicy
	clock   clock.Clock
}

func NewExecutor(cfg ExecutorConfig, states *state.Store, display *Display, retry RetryPolicy, clk clock.Clock) *Executor {
	return &Executor{
		cfg:     cfg,
		states:  states,
		display: display,
		retry:   retry,
		clock:   clk,
	}
}

// Run churns aw until its persisted rounds hit zero, then returns control to
// the scheduler. Every completed round is persisted before the inter-round
// pause begins, so a kill at any point loses at most the in-flight send.
func (e *Executor) Run(ctx context.Context, aw ChurnWallet) error {
	for {
		rec, ok := e.states.Lookup(aw.Name())
		if !ok {
			// The scheduler only runs wallets it read from the store.
			return fmt.Errorf("churn: wallet %s missing from state store", aw.Name())
		}
		if rec.RoundsRemaining == 0 {
			logger.InfoCF("churn", "Wallet rounds exhausted", map[string]any{
				"wallet": aw.Name(),
			})
			return nil
		}

		if err := e.awaitUnlock(ctx, aw, rec.RoundsRemaining); err != nil {
			return err
		}

		var txid string
		err := e.retry.Do(ctx, "self_send", map[string]any{
			"wallet":           aw.Name(),
			"rounds_remaining": rec.RoundsRemaining,
		}, func() error {
			id, err := aw.SelfSend(ctx)
			if err != nil {
				return err
			}
			txid = id
			return nil
		})
		if err != nil {
			return err
		}

		// Persist the completed round before any further wait so a crash
		// here resumes with the decrement already durable.
		if err := e.states.RecordRoundCompleted(aw.Name()); err != nil {
			return err
		}
		logger.InfoCF("churn", "Round completed", map[string]any{
			"wallet":           aw.Name(),
			"txid":             txid,
			"rounds_remaining": rec.RoundsRemaining - 1,
		})

		if rec.RoundsRemaining > 1 {
			if err := e.sleep(ctx, e.drawDelay()); err != nil {
				return err
			}
		}
	}
}

// awaitUnlock polls the balance on the fixed interval until some of it is
// spendable. The receive address is shown once per wallet as a side effect.
func (e *Executor) awaitUnlock(ctx context.Context, aw ChurnWallet, roundsRemaining int) error {
	for {
		var bal wallet.Balance
		err := e.retry.Do(ctx, "get_balance", map[string]any{
			"wallet":           aw.Name(),
			"rounds_remaining": roundsRemaining,
		}, func() error {
			b, err := aw.Balance(ctx)
			if err != nil {
				return err
			}
			bal = b
			return nil
		})
		if err != nil {
			return err
		}

		if bal.Unlocked > 0 {
			logger.InfoCF("churn", "Balance unlocked", map[string]any{
				"wallet":   aw.Name(),
				"unlocked": wallet.FormatAmount(bal.Unlocked),
				"total":    wallet.FormatAmount(bal.Total),
			})
			return nil
		}

		e.display.ShowAddressOnce(aw.Name(), aw.Address())
		logger.InfoCF("churn", "Waiting for unlocked balance", map[string]any{
			"wallet": aw.Name(),
			"total":  wallet.FormatAmount(bal.Total),
		})

		if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
			return err
		}
	}
}

// drawDelay draws a uniform inter-round delay from [MinDelay, MaxDelay].
func (e *Executor) drawDelay() time.Duration {
	if e.cfg.MaxDelay <= e.cfg.MinDelay {
		return e.cfg.MinDelay
	}
	span := int64(e.cfg.MaxDelay - e.cfg.MinDelay)
	return e.cfg.MinDelay + time.Duration(rand.Int64N(span+1))
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.clock.TickAfter(d):
		return nil
	}
}
