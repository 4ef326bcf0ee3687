// internal/types/types.go
package types

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Address identifies a principal or a contract-like component on the ledger.
// An empty address is the zero sentinel and is never a valid participant.
type Address string

// ZeroAddress is the absent-address sentinel.
const ZeroAddress Address = ""

// IsZero reports whether the address is the zero sentinel.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) String() string {
	return string(a)
}

// BpsDenominator is the basis-point scale used for all tax math.
const BpsDenominator = 10_000

// Decimals is the fixed-point scale of every token amount.
const Decimals = 18

// OneUnit returns 1e18, one whole token.
func OneUnit() *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))
}

// Units returns n whole tokens scaled to 1e18 fixed point.
func Units(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), OneUnit())
}

// ApplyBps returns amount * bps / 10000, floor division.
func ApplyBps(amount *uint256.Int, bps uint64) *uint256.Int {
	if bps > BpsDenominator {
		bps = BpsDenominator
	}
	out := new(uint256.Int).Mul(amount, uint256.NewInt(bps))
	return out.Div(out, uint256.NewInt(BpsDenominator))
}

// FormatUnits renders an amount as a whole-unit decimal string for logs.
func FormatUnits(amount *uint256.Int) string {
	if amount == nil {
		return "0"
	}
	whole := new(uint256.Int).Div(amount, OneUnit())
	frac := new(uint256.Int).Mod(amount, OneUnit())
	if frac.IsZero() {
		return whole.Dec()
	}
	return fmt.Sprintf("%s.%018s", whole.Dec(), frac.Dec())
}
