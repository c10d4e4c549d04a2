package churn

import (
	"fmt"
	"io"
	"os"

	"github.com/mdp/qrterminal/v3"
)

// Display shows a wallet's receive address to the operator while the wallet
// waits for funds. Purely a side effect: nothing in the control flow depends
// on it.
type Display struct {
	out   io.Writer
	qr    bool
	shown map[string]bool
}

func NewDisplay(qr bool) *Display {
	return &Display{
		out:   os.Stdout,
		qr:    qr,
		shown: make(map[string]bool),
	}
}

// ShowAddressOnce prints the receive address, and optionally a QR rendering,
// the first time it is called for a given wallet.
func (d *Display) ShowAddressOnce(walletName, address string) {
	if d.shown[walletName] {
		return
	}
	d.shown[walletName] = true

	fmt.Fprintf(d.out, "\nWallet %s receive address:\n%s\n\n", walletName, address)
	if d.qr {
		qrterminal.GenerateHalfBlock(address, qrterminal.L, d.out)
	}
}
