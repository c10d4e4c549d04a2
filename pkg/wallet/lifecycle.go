package wallet

import (
	"context"
	"fmt"

	"github.com/thanhpk/randstr"
	"github.com/walletops/churnd/pkg/logger"
	"github.com/walletops/churnd/pkg/rpc"
)

// ServiceRPC is the wallet service capability set the lifecycle drives.
// *rpc.Client satisfies it.
type ServiceRPC interface {
	CreateWallet(ctx context.Context, filename, password string) error
	RestoreDeterministic(ctx context.Context, filename, password, seed string, restoreHeight uint64) error
	OpenWallet(ctx context.Context, filename, password string) error
	CloseWallet(ctx context.Context) error
	GetAddress(ctx context.Context) (string, error)
	GetBalance(ctx context.Context) (rpc.BalanceResult, error)
	QueryMnemonic(ctx context.Context) (string, error)
	SweepAll(ctx context.Context, address string) ([]string, error)
	Refresh(ctx context.Context) error
}

// HeightResolver resolves the restore height for a record whose creation
// height is unknown.
type HeightResolver interface {
	ResolveRestoreHeight(ctx context.Context, rec Record) (uint64, error)
}

// Lifecycle creates, restores, opens and closes wallets on the external
// service. Only one wallet is ever open at a time in the service; callers
// must Close before opening another.
type Lifecycle struct {
	rpc      ServiceRPC
	heights  HeightResolver
	simulate bool
}

func NewLifecycle(service ServiceRPC, heights HeightResolver, simulate bool) *Lifecycle {
	return &Lifecycle{
		rpc:      service,
		heights:  heights,
		simulate: simulate,
	}
}

// CreateOrRestore materializes the wallet named in rec on the service and
// returns the record with address, mnemonic and creation height populated.
// A record carrying a mnemonic is restored deterministically at its resolved
// height; otherwise a fresh wallet is created and the mnemonic queried back
// for persistence. The wallet is left closed.
func (l *Lifecycle) CreateOrRestore(ctx context.Context, rec Record) (Record, error) {
	height, err := l.heights.ResolveRestoreHeight(ctx, rec)
	if err != nil {
		return Record{}, fmt.Errorf("resolving restore height for %s: %w", rec.Name, err)
	}

	if rec.Mnemonic != "" {
		logger.InfoCF("wallet", "Restoring wallet from seed", map[string]any{
			"wallet": rec.Name,
			"height": height,
		})
		if err := l.rpc.RestoreDeterministic(ctx, rec.Name, rec.Password, rec.Mnemonic, height); err != nil {
			return Record{}, fmt.Errorf("%w: restore %s: %v", ErrCreationFailed, rec.Name, err)
		}
	} else {
		logger.InfoCF("wallet", "Creating wallet", map[string]any{
			"wallet": rec.Name,
		})
		if err := l.rpc.CreateWallet(ctx, rec.Name, rec.Password); err != nil {
			return Record{}, fmt.Errorf("%w: create %s: %v", ErrCreationFailed, rec.Name, err)
		}
		mnemonic, err := l.rpc.QueryMnemonic(ctx)
		if err != nil {
			return Record{}, fmt.Errorf("%w: query mnemonic for %s: %v", ErrCreationFailed, rec.Name, err)
		}
		rec.Mnemonic = mnemonic
	}
	rec.CreationHeight = int64(height)

	// The service leaves a freshly created or restored wallet open; grab
	// the address now, then close so Open owns the open/close discipline.
	address, err := l.rpc.GetAddress(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("%w: get address for %s: %v", ErrCreationFailed, rec.Name, err)
	}
	rec.Address = address

	l.Close(ctx)

	logger.InfoCF("wallet", "Wallet materialized", map[string]any{
		"wallet":  rec.Name,
		"address": rec.Address,
		"height":  rec.CreationHeight,
	})
	return rec, nil
}

// Open opens the named wallet and returns the active handle for it.
func (l *Lifecycle) Open(ctx context.Context, rec Record) (*Active, error) {
	if err := l.rpc.OpenWallet(ctx, rec.Name, rec.Password); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenFailed, rec.Name, err)
	}

	if rec.Address == "" {
		address, err := l.rpc.GetAddress(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrOpenFailed, rec.Name, err)
		}
		rec.Address = address
	}

	logger.InfoCF("wallet", "Wallet opened", map[string]any{
		"wallet": rec.Name,
	})
	return &Active{
		Record:   rec,
		rpc:      l.rpc,
		simulate: l.simulate,
	}, nil
}

// Close closes whatever wallet the service has open. Best-effort: a stuck
// open wallet does not corrupt state, so failures are logged and dropped.
func (l *Lifecycle) Close(ctx context.Context) {
	if err := l.rpc.CloseWallet(ctx); err != nil {
		logger.WarnCF("wallet", "Close failed", map[string]any{
			"error": err.Error(),
		})
	}
}

// Balance is a wallet's total and spendable balance in atomic units.
type Balance struct {
	Total    uint64
	Unlocked uint64
}

// Active is the handle for the one currently open wallet. All operations
// act on the open wallet in the service.
type Active struct {
	Record   Record
	rpc      ServiceRPC
	simulate bool
}

func (a *Active) Name() string {
	return a.Record.Name
}

func (a *Active) Address() string {
	return a.Record.Address
}

func (a *Active) Balance(ctx context.Context) (Balance, error) {
	res, err := a.rpc.GetBalance(ctx)
	if err != nil {
		return Balance{}, err
	}
	return Balance{Total: res.Balance, Unlocked: res.UnlockedBalance}, nil
}

// Refresh asks the service to rescan the chain for this wallet.
func (a *Active) Refresh(ctx context.Context) error {
	return a.rpc.Refresh(ctx)
}

// SelfSend churns the wallet once: the entire unlocked balance back to its
// own address. Returns the transaction id.
func (a *Active) SelfSend(ctx context.Context) (string, error) {
	return a.SweepAll(ctx, a.Record.Address)
}

// SweepAll sends the entire unlocked balance to dest in one transaction.
// An empty transaction list from the service maps to ErrNoTxProduced.
func (a *Active) SweepAll(ctx context.Context, dest string) (string, error) {
	if a.simulate {
		txid := randstr.Hex(32)
		logger.InfoCF("wallet", "Simulated sweep", map[string]any{
			"wallet": a.Record.Name,
			"dest":   dest,
			"txid":   txid,
		})
		return txid, nil
	}

	hashes, err := a.rpc.SweepAll(ctx, dest)
	if err != nil {
		return "", err
	}
	if len(hashes) == 0 || hashes[0] == "" {
		return "", ErrNoTxProduced
	}
	return hashes[0], nil
}
