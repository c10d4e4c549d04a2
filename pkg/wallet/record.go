package wallet

// HeightUnknown marks a record whose creation height was never recorded. The
// restore height is derived from the daemon's current height when needed,
// not when the record is written.
const HeightUnknown int64 = -1

// Record is one wallet entry in persisted state or seed storage.
type Record struct {
	// Name is the stable wallet identifier, assigned at creation and never
	// reused.
	Name string

	// Address is the receive address, immutable once fetched.
	Address string

	// RoundsRemaining counts the self-churn rounds left for this wallet.
	// Zero marks it exhausted for churning; it may still source a final
	// sweep.
	RoundsRemaining int

	// Credential fields, present only when known.
	Mnemonic       string
	Password       string
	CreationHeight int64
}

// HasHeight reports whether the record carries a usable creation height.
func (r Record) HasHeight() bool {
	return r.CreationHeight >= 0
}
