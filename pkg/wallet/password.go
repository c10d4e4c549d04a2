package wallet

import "github.com/thanhpk/randstr"

// PasswordPolicy decides what password a freshly created wallet gets.
type PasswordPolicy struct {
	Default string
	Random  bool
}

// NewPassword returns the password for the next created wallet: a random
// hex string under the random policy, the configured default otherwise.
func (p PasswordPolicy) NewPassword() string {
	if p.Random {
		return randstr.Hex(16)
	}
	return p.Default
}
