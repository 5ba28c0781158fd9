package swapper

import "math/big"

// maxBps is the basis-point denominator: 10000 bps = 100%.
const maxBps = 10000

var bpsDenominator = big.NewInt(maxBps)

// feePortion returns amount*bps/10000 with integer truncation toward
// zero. The truncating division is deliberate: fee splits must never
// round a fraction of a unit in the fee recipient's favor.
func feePortion(amount *big.Int, bps uint32) *big.Int {
	fee := new(big.Int).Mul(amount, big.NewInt(int64(bps)))
	return fee.Quo(fee, bpsDenominator)
}

// validBps reports whether a basis-point value is within [0, 10000].
func validBps(bps uint32) bool {
	return bps <= maxBps
}
