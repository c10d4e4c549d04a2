package churn

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/walletops/churnd/pkg/logger"
	"github.com/walletops/churnd/pkg/seed"
	"github.com/walletops/churnd/pkg/state"
	"github.com/walletops/churnd/pkg/wallet"
)

var (
	// ErrSeedsExhausted is a fatal configuration error: a bounded run needs
	// more seed entries than the seed file holds.
	ErrSeedsExhausted = errors.New("seed file exhausted before session budget")

	// ErrStateInconsistent is returned when the durable state has no entry
	// for the wallet a sweep is about to target. Silently skipping it would
	// misdirect funds.
	ErrStateInconsistent = errors.New("state file inconsistent")
)

// SchedulerConfig is the top-level run shape.
type SchedulerConfig struct {
	// MinRounds/MaxRounds bound the uniform per-session round draw.
	MinRounds int
	MaxRounds int

	// Sessions is the wallet chain length; 0 runs unbounded. The seed index
	// wraps around only in unbounded mode.
	Sessions int

	// WalletPrefix names generated wallets <prefix>-<session>.
	WalletPrefix string

	// SweepTo optionally receives the final session's sweep. When empty the
	// funds stay in the last wallet.
	SweepTo string

	// UseSeedFile restores each session's wallet from the next seed file
	// entry instead of creating fresh wallets.
	UseSeedFile bool

	Passwords wallet.PasswordPolicy
}

// Scheduler drives the whole run: pick the next actionable wallet, churn it,
// mint the next link in the chain, sweep into it, repeat until the session
// budget is spent.
type Scheduler struct {
	cfg       SchedulerConfig
	states    *state.Store
	seeds     *seed.Store
	lifecycle *wallet.Lifecycle
	executor  *Executor
	retry     RetryPolicy
	display   *Display
}

func NewScheduler(cfg SchedulerConfig, states *state.Store, seeds *seed.Store, lifecycle *wallet.Lifecycle, executor *Executor, retry RetryPolicy, display *Display) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		states:    states,
		seeds:     seeds,
		lifecycle: lifecycle,
		executor:  executor,
		retry:     retry,
		display:   display,
	}
}

// Run loops until the run completes or a fatal error leaves the process to
// exit with the queue exactly as last durably recorded.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := s.states.NextActionable()
		if errors.Is(err, state.ErrNoActionable) {
			if s.budgetExhausted() {
				logger.InfoCF("scheduler", "Run complete", map[string]any{
					"sessions": len(s.states.Records()),
				})
				return nil
			}
			if _, err := s.mintNext(ctx); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		if err := s.runSession(ctx, rec); err != nil {
			return err
		}
	}
}

// budgetExhausted reports whether every budgeted session has been minted.
// Minted wallets with rounds remaining are handled by NextActionable before
// this is consulted.
func (s *Scheduler) budgetExhausted() bool {
	return s.cfg.Sessions > 0 && len(s.states.Records()) >= s.cfg.Sessions
}

// walletName names the wallet at the zero-based chain position index.
func (s *Scheduler) walletName(index int) string {
	return fmt.Sprintf("%s-%d", s.cfg.WalletPrefix, index+1)
}

// mintNext materializes the next wallet in the chain and appends it to the
// durable queue with a fresh round budget. All failures here are fatal:
// a rejected create/restore or an unwritable store will not self-correct.
func (s *Scheduler) mintNext(ctx context.Context) (wallet.Record, error) {
	index := len(s.states.Records())

	var rec wallet.Record
	if s.cfg.UseSeedFile {
		seeds, err := s.seeds.Records()
		if err != nil {
			return wallet.Record{}, fmt.Errorf("reading seed file: %w", err)
		}
		if len(seeds) == 0 {
			return wallet.Record{}, fmt.Errorf("%w: seed file is empty", ErrSeedsExhausted)
		}
		seedIndex := index
		if seedIndex >= len(seeds) {
			if s.cfg.Sessions != 0 {
				return wallet.Record{}, fmt.Errorf("%w: need entry %d, have %d",
					ErrSeedsExhausted, seedIndex+1, len(seeds))
			}
			// Unbounded runs walk the seed file in a loop.
			seedIndex = seedIndex % len(seeds)
		}
		rec = seeds[seedIndex]
		if rec.Name == "" {
			rec.Name = s.walletName(index)
		} else if _, taken := s.states.Lookup(rec.Name); taken {
			// A wrapped run revisits seed entries, but wallet names are
			// never reused: the service would reject the restore and the
			// state file must stay one-entry-per-name.
			rec.Name = s.walletName(index)
		}
	} else {
		rec = wallet.Record{
			Name:           s.walletName(index),
			Password:       s.cfg.Passwords.NewPassword(),
			CreationHeight: wallet.HeightUnknown,
		}
	}

	rec, err := s.lifecycle.CreateOrRestore(ctx, rec)
	if err != nil {
		return wallet.Record{}, err
	}

	// Archive the credentials of wallets this run created, so every link in
	// the chain stays restorable from the seed file.
	if !s.cfg.UseSeedFile {
		if err := s.seeds.Append(rec); err != nil {
			return wallet.Record{}, fmt.Errorf("archiving seed for %s: %w", rec.Name, err)
		}
	}

	rec.RoundsRemaining = s.drawRounds()
	if err := s.states.Append(rec); err != nil {
		return wallet.Record{}, err
	}

	logger.InfoCF("scheduler", "Wallet minted", map[string]any{
		"wallet":  rec.Name,
		"session": index + 1,
		"rounds":  rec.RoundsRemaining,
	})
	return rec, nil
}

// hydrate rejoins a record read back from durable state with its archived
// credentials. State lines carry only name, address and rounds; the password
// and mnemonic live in the seed file, keyed by wallet name. Without this a
// restarted run could not reopen its own wallets.
func (s *Scheduler) hydrate(rec wallet.Record) (wallet.Record, error) {
	if rec.Password != "" || rec.Mnemonic != "" {
		return rec, nil
	}

	archived, err := s.seeds.Records()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			rec.Password = s.cfg.Passwords.Default
			return rec, nil
		}
		return wallet.Record{}, fmt.Errorf("reading seed file: %w", err)
	}
	for _, a := range archived {
		if a.Name == rec.Name {
			rec.Password = a.Password
			rec.Mnemonic = a.Mnemonic
			rec.CreationHeight = a.CreationHeight
			return rec, nil
		}
	}

	// Seed entries without a recorded wallet_name (bare mnemonics) were
	// restored under the configured default password.
	rec.Password = s.cfg.Passwords.Default
	return rec, nil
}

// drawRounds draws the session's round count uniformly from
// [MinRounds, MaxRounds].
func (s *Scheduler) drawRounds() int {
	if s.cfg.MaxRounds <= s.cfg.MinRounds {
		return s.cfg.MinRounds
	}
	return s.cfg.MinRounds + rand.IntN(s.cfg.MaxRounds-s.cfg.MinRounds+1)
}

// runSession churns one wallet to exhaustion, then hands its whole balance
// to the next link in the chain (or the terminal address on the final
// session) and closes everything.
func (s *Scheduler) runSession(ctx context.Context, rec wallet.Record) error {
	rec, err := s.hydrate(rec)
	if err != nil {
		return err
	}

	index := s.chainIndex(rec.Name)
	logger.InfoCF("scheduler", "Session starting", map[string]any{
		"wallet":  rec.Name,
		"session": index + 1,
		"rounds":  rec.RoundsRemaining,
	})

	aw, err := s.lifecycle.Open(ctx, rec)
	if err != nil {
		return err
	}
	if err := aw.Refresh(ctx); err != nil {
		logger.WarnCF("scheduler", "Refresh failed", map[string]any{
			"wallet": rec.Name,
			"error":  err.Error(),
		})
	}

	if err := s.executor.Run(ctx, aw); err != nil {
		s.lifecycle.Close(ctx)
		return err
	}

	final := s.cfg.Sessions > 0 && index+1 >= s.cfg.Sessions
	if final {
		return s.finishRun(ctx, aw)
	}

	// Minting the next wallet makes the service switch open wallets, so
	// close the churned one first and reopen it for the sweep.
	s.lifecycle.Close(ctx)
	next, err := s.mintNext(ctx)
	if err != nil {
		return err
	}

	// The sweep destination comes from durable state, not from memory: if
	// the entry is missing the file is not what this run thinks it is.
	nextRec, ok := s.states.Lookup(next.Name)
	if !ok {
		return fmt.Errorf("%w: no entry for next wallet %s, refusing to sweep", ErrStateInconsistent, next.Name)
	}

	aw, err = s.lifecycle.Open(ctx, rec)
	if err != nil {
		return err
	}
	if err := s.sweepInto(ctx, aw, nextRec.Name, nextRec.Address); err != nil {
		s.lifecycle.Close(ctx)
		return err
	}

	s.lifecycle.Close(ctx)
	return nil
}

// finishRun handles the last session: sweep to the terminal address when one
// is configured, otherwise leave the funds where they are.
func (s *Scheduler) finishRun(ctx context.Context, aw *wallet.Active) error {
	defer s.lifecycle.Close(ctx)

	if s.cfg.SweepTo == "" {
		// The operator needs the parked wallet's receive address to find
		// the funds again.
		s.display.ShowAddressOnce(aw.Name(), aw.Address())
		logger.InfoCF("scheduler", "Final session complete, funds remain in wallet", map[string]any{
			"wallet":  aw.Name(),
			"address": aw.Address(),
		})
		return nil
	}
	return s.sweepInto(ctx, aw, "terminal", s.cfg.SweepTo)
}

// sweepInto moves aw's entire balance to dest, retrying on the fixed backoff
// until the service produces a transaction. A balance still locked from the
// last churn round surfaces as an empty sweep and is retried the same way.
func (s *Scheduler) sweepInto(ctx context.Context, aw *wallet.Active, destName, dest string) error {
	var txid string
	err := s.retry.Do(ctx, "sweep_all", map[string]any{
		"wallet": aw.Name(),
		"dest":   destName,
	}, func() error {
		id, err := aw.SweepAll(ctx, dest)
		if err != nil {
			return err
		}
		txid = id
		return nil
	})
	if err != nil {
		return err
	}

	logger.InfoCF("scheduler", "Balance swept", map[string]any{
		"wallet": aw.Name(),
		"dest":   destName,
		"txid":   txid,
	})
	return nil
}

func (s *Scheduler) chainIndex(name string) int {
	for i, rec := range s.states.Records() {
		if rec.Name == name {
			return i
		}
	}
	return len(s.states.Records())
}
