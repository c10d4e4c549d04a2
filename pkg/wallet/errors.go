package wallet

import "errors"

var (
	// ErrCreationFailed is returned when the service rejects a wallet
	// create or restore request. Never retried: a filename collision or
	// malformed seed will not self-correct.
	ErrCreationFailed = errors.New("wallet creation rejected by service")

	// ErrOpenFailed is returned when a wallet cannot be opened (wrong
	// credentials or missing wallet file).
	ErrOpenFailed = errors.New("wallet open failed")

	// ErrNoTxProduced is returned when a sweep reports success with an
	// empty transaction list. Treated as transient by callers.
	ErrNoTxProduced = errors.New("sweep produced no transaction")
)
