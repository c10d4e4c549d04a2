package rpc

import "context"

// Typed wrappers over the wallet service's capability set. Amounts are in
// atomic units throughout.

type createWalletParams struct {
	Filename string `json:"filename"`
	Password string `json:"password"`
	Language string `json:"language"`
}

// CreateWallet asks the service to create a fresh wallet file.
func (c *Client) CreateWallet(ctx context.Context, filename, password string) error {
	return c.Call(ctx, "create_wallet", createWalletParams{
		Filename: filename,
		Password: password,
		Language: "English",
	}, nil)
}

type restoreWalletParams struct {
	Filename      string `json:"filename"`
	Password      string `json:"password"`
	Seed          string `json:"seed"`
	RestoreHeight uint64 `json:"restore_height"`
}

// RestoreDeterministic recreates a wallet from its mnemonic, scanning from
// restoreHeight.
func (c *Client) RestoreDeterministic(ctx context.Context, filename, password, seed string, restoreHeight uint64) error {
	return c.Call(ctx, "restore_deterministic_wallet", restoreWalletParams{
		Filename:      filename,
		Password:      password,
		Seed:          seed,
		RestoreHeight: restoreHeight,
	}, nil)
}

type openWalletParams struct {
	Filename string `json:"filename"`
	Password string `json:"password"`
}

func (c *Client) OpenWallet(ctx context.Context, filename, password string) error {
	return c.Call(ctx, "open_wallet", openWalletParams{Filename: filename, Password: password}, nil)
}

func (c *Client) CloseWallet(ctx context.Context) error {
	return c.Call(ctx, "close_wallet", nil, nil)
}

type getAddressParams struct {
	AccountIndex uint32 `json:"account_index"`
}

type getAddressResult struct {
	Address string `json:"address"`
}

// GetAddress returns the open wallet's primary receive address.
func (c *Client) GetAddress(ctx context.Context) (string, error) {
	var res getAddressResult
	if err := c.Call(ctx, "get_address", getAddressParams{}, &res); err != nil {
		return "", err
	}
	return res.Address, nil
}

type getBalanceParams struct {
	AccountIndex uint32 `json:"account_index"`
}

// BalanceResult carries the open wallet's total and spendable balances.
type BalanceResult struct {
	Balance         uint64 `json:"balance"`
	UnlockedBalance uint64 `json:"unlocked_balance"`
}

func (c *Client) GetBalance(ctx context.Context) (BalanceResult, error) {
	var res BalanceResult
	if err := c.Call(ctx, "get_balance", getBalanceParams{}, &res); err != nil {
		return BalanceResult{}, err
	}
	return res, nil
}

type queryKeyParams struct {
	KeyType string `json:"key_type"`
}

type queryKeyResult struct {
	Key string `json:"key"`
}

// QueryMnemonic exports the open wallet's mnemonic seed.
func (c *Client) QueryMnemonic(ctx context.Context) (string, error) {
	var res queryKeyResult
	if err := c.Call(ctx, "query_key", queryKeyParams{KeyType: "mnemonic"}, &res); err != nil {
		return "", err
	}
	return res.Key, nil
}

type transferDestination struct {
	Amount  uint64 `json:"amount"`
	Address string `json:"address"`
}

type transferParams struct {
	Destinations []transferDestination `json:"destinations"`
	AccountIndex uint32                `json:"account_index"`
	GetTxKey     bool                  `json:"get_tx_key"`
}

type transferResult struct {
	TxHash string `json:"tx_hash"`
}

// Transfer sends amount to address and returns the transaction hash.
func (c *Client) Transfer(ctx context.Context, address string, amount uint64) (string, error) {
	var res transferResult
	err := c.Call(ctx, "transfer", transferParams{
		Destinations: []transferDestination{{Amount: amount, Address: address}},
		GetTxKey:     true,
	}, &res)
	if err != nil {
		return "", err
	}
	return res.TxHash, nil
}

type sweepAllParams struct {
	Address      string `json:"address"`
	AccountIndex uint32 `json:"account_index"`
	GetTxKeys    bool   `json:"get_tx_keys"`
}

type sweepAllResult struct {
	TxHashList []string `json:"tx_hash_list"`
}

// SweepAll sends the wallet's entire unlocked balance to address. The
// returned list may be empty when the service produced no transaction.
func (c *Client) SweepAll(ctx context.Context, address string) ([]string, error) {
	var res sweepAllResult
	err := c.Call(ctx, "sweep_all", sweepAllParams{Address: address, GetTxKeys: true}, &res)
	if err != nil {
		return nil, err
	}
	return res.TxHashList, nil
}

type setDaemonParams struct {
	Address string `json:"address"`
	Trusted bool   `json:"trusted"`
}

// SetDaemon points the wallet service at a chain daemon.
func (c *Client) SetDaemon(ctx context.Context, address string) error {
	return c.Call(ctx, "set_daemon", setDaemonParams{Address: address, Trusted: true}, nil)
}

// Refresh asks the wallet to rescan the chain for its transactions.
func (c *Client) Refresh(ctx context.Context) error {
	return c.Call(ctx, "refresh", nil, nil)
}

type getVersionResult struct {
	Version uint32 `json:"version"`
}

// GetVersion returns the service's RPC version; used as a startup probe.
func (c *Client) GetVersion(ctx context.Context) (uint32, error) {
	var res getVersionResult
	if err := c.Call(ctx, "get_version", nil, &res); err != nil {
		return 0, err
	}
	return res.Version, nil
}
