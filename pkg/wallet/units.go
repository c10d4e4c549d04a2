package wallet

import "fmt"

// atomicPerCoin is the number of atomic units per whole coin.
const atomicPerCoin uint64 = 1_000_000_000_000

// FormatAmount renders an atomic-unit amount as a decimal coin string for
// logs and display.
func FormatAmount(amount uint64) string {
	return fmt.Sprintf("%d.%012d", amount/atomicPerCoin, amount%atomicPerCoin)
}
