package wallet

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/walletops/churnd/pkg/rpc"
)

// fakeService is an in-memory stand-in for the wallet RPC service. It keeps
// the single-open-wallet discipline of the real one.
type fakeService struct {
	wallets  map[string]string // name -> password
	open     string
	balance  rpc.BalanceResult
	sweeps   []string // destinations, in order
	sweepTx  []string // next responses for SweepAll
	failNext map[string]error
}

func newFakeService() *fakeService {
	return &fakeService{
		wallets:  make(map[string]string),
		failNext: make(map[string]error),
		sweepTx:  []string{"tx-1"},
	}
}

func (f *fakeService) fail(method string) error {
	if err := f.failNext[method]; err != nil {
		delete(f.failNext, method)
		return err
	}
	return nil
}

func (f *fakeService) CreateWallet(ctx context.Context, filename, password string) error {
	if err := f.fail("create_wallet"); err != nil {
		return err
	}
	if _, exists := f.wallets[filename]; exists {
		return errors.New("wallet already exists")
	}
	f.wallets[filename] = password
	f.open = filename
	return nil
}

func (f *fakeService) RestoreDeterministic(ctx context.Context, filename, password, seed string, restoreHeight uint64) error {
	if err := f.fail("restore_deterministic_wallet"); err != nil {
		return err
	}
	f.wallets[filename] = password
	f.open = filename
	return nil
}

func (f *fakeService) OpenWallet(ctx context.Context, filename, password string) error {
	pw, exists := f.wallets[filename]
	if !exists || pw != password {
		return errors.New("failed to open wallet")
	}
	f.open = filename
	return nil
}

func (f *fakeService) CloseWallet(ctx context.Context) error {
	f.open = ""
	return nil
}

func (f *fakeService) GetAddress(ctx context.Context) (string, error) {
	if f.open == "" {
		return "", errors.New("no wallet open")
	}
	return "addr-" + f.open, nil
}

func (f *fakeService) GetBalance(ctx context.Context) (rpc.BalanceResult, error) {
	if err := f.fail("get_balance"); err != nil {
		return rpc.BalanceResult{}, err
	}
	return f.balance, nil
}

func (f *fakeService) QueryMnemonic(ctx context.Context) (string, error) {
	return "mnemonic for " + f.open, nil
}

func (f *fakeService) SweepAll(ctx context.Context, address string) ([]string, error) {
	if err := f.fail("sweep_all"); err != nil {
		return nil, err
	}
	f.sweeps = append(f.sweeps, address)
	if len(f.sweepTx) == 0 {
		return nil, nil
	}
	tx := f.sweepTx[0]
	f.sweepTx = f.sweepTx[1:]
	if tx == "" {
		return nil, nil
	}
	return []string{tx}, nil
}

func (f *fakeService) Refresh(ctx context.Context) error {
	return nil
}

type fixedResolver uint64

func (r fixedResolver) ResolveRestoreHeight(ctx context.Context, rec Record) (uint64, error) {
	if rec.HasHeight() {
		return uint64(rec.CreationHeight), nil
	}
	return uint64(r), nil
}

func TestCreateOrRestore_Fresh(t *testing.T) {
	svc := newFakeService()
	lc := NewLifecycle(svc, fixedResolver(2000), false)

	rec, err := lc.CreateOrRestore(context.Background(), Record{
		Name:           "w1",
		Password:       "pw",
		CreationHeight: HeightUnknown,
	})
	require.NoError(t, err)
	require.Equal(t, "addr-w1", rec.Address)
	require.Equal(t, "mnemonic for w1", rec.Mnemonic)
	require.Equal(t, int64(2000), rec.CreationHeight)
	require.Empty(t, svc.open, "wallet should be left closed")
}

func TestCreateOrRestore_FromSeed(t *testing.T) {
	svc := newFakeService()
	lc := NewLifecycle(svc, fixedResolver(2000), false)

	rec, err := lc.CreateOrRestore(context.Background(), Record{
		Name:           "w2",
		Password:       "pw",
		Mnemonic:       "some seed words",
		CreationHeight: 555,
	})
	require.NoError(t, err)
	require.Equal(t, "addr-w2", rec.Address)
	require.Equal(t, int64(555), rec.CreationHeight, "recorded height used verbatim")
	require.Contains(t, svc.wallets, "w2")
}

func TestCreateOrRestore_RejectionIsFatal(t *testing.T) {
	svc := newFakeService()
	svc.failNext["create_wallet"] = errors.New("invalid filename")
	lc := NewLifecycle(svc, fixedResolver(2000), false)

	_, err := lc.CreateOrRestore(context.Background(), Record{Name: "w1", CreationHeight: HeightUnknown})
	require.ErrorIs(t, err, ErrCreationFailed)
}

func TestOpen_WrongPassword(t *testing.T) {
	svc := newFakeService()
	svc.wallets["w1"] = "right"
	lc := NewLifecycle(svc, fixedResolver(0), false)

	_, err := lc.Open(context.Background(), Record{Name: "w1", Password: "wrong"})
	require.ErrorIs(t, err, ErrOpenFailed)
}

func TestOpen_FetchesMissingAddress(t *testing.T) {
	svc := newFakeService()
	svc.wallets["w1"] = "pw"
	lc := NewLifecycle(svc, fixedResolver(0), false)

	aw, err := lc.Open(context.Background(), Record{Name: "w1", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "addr-w1", aw.Address())
}

func TestActive_SelfSendSweepsToOwnAddress(t *testing.T) {
	svc := newFakeService()
	svc.wallets["w1"] = "pw"
	lc := NewLifecycle(svc, fixedResolver(0), false)

	aw, err := lc.Open(context.Background(), Record{Name: "w1", Password: "pw", Address: "addr-w1"})
	require.NoError(t, err)

	txid, err := aw.SelfSend(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tx-1", txid)
	require.Equal(t, []string{"addr-w1"}, svc.sweeps)
}

func TestActive_EmptySweepIsNoTxProduced(t *testing.T) {
	svc := newFakeService()
	svc.wallets["w1"] = "pw"
	svc.sweepTx = nil
	lc := NewLifecycle(svc, fixedResolver(0), false)

	aw, err := lc.Open(context.Background(), Record{Name: "w1", Password: "pw", Address: "addr-w1"})
	require.NoError(t, err)

	_, err = aw.SweepAll(context.Background(), "dest")
	require.ErrorIs(t, err, ErrNoTxProduced)
}

func TestActive_SimulateSkipsService(t *testing.T) {
	svc := newFakeService()
	svc.wallets["w1"] = "pw"
	lc := NewLifecycle(svc, fixedResolver(0), true)

	aw, err := lc.Open(context.Background(), Record{Name: "w1", Password: "pw", Address: "addr-w1"})
	require.NoError(t, err)

	txid, err := aw.SweepAll(context.Background(), "dest")
	require.NoError(t, err)
	require.NotEmpty(t, txid)
	require.Empty(t, svc.sweeps, "no sweep reaches the service in simulation")
}

func TestActive_Balance(t *testing.T) {
	svc := newFakeService()
	svc.wallets["w1"] = "pw"
	svc.balance = rpc.BalanceResult{Balance: 300, UnlockedBalance: 100}
	lc := NewLifecycle(svc, fixedResolver(0), false)

	aw, err := lc.Open(context.Background(), Record{Name: "w1", Password: "pw", Address: "a"})
	require.NoError(t, err)

	bal, err := aw.Balance(context.Background())
	require.NoError(t, err)
	require.Equal(t, Balance{Total: 300, Unlocked: 100}, bal)
}

func TestPasswordPolicy(t *testing.T) {
	random := PasswordPolicy{Random: true}
	a, b := random.NewPassword(), random.NewPassword()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)

	fixed := PasswordPolicy{Default: "hunter2"}
	require.Equal(t, "hunter2", fixed.NewPassword())
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		atomic uint64
		want   string
	}{
		{0, "0.000000000000"},
		{1_000_000_000_000, "1.000000000000"},
		{1_234_500_000_000, "1.234500000000"},
		{42, "0.000000000042"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FormatAmount(tc.atomic), fmt.Sprintf("atomic=%d", tc.atomic))
	}
}
