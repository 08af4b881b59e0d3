package core

import "math/big"

const (
	// MinFeeBasisPoints and MaxFeeBasisPoints bound the platform fee rate:
	// strictly above zero and at most 10%.
	MinFeeBasisPoints uint32 = 1
	MaxFeeBasisPoints uint32 = 1000

	basisPointScale = 10000
)

// ValidFeeBasisPoints reports whether the rate is inside (0, 1000].
func ValidFeeBasisPoints(bp uint32) bool {
	return bp >= MinFeeBasisPoints && bp <= MaxFeeBasisPoints
}

// SplitProceeds divides a winning bid into the retained platform fee and the
// seller's payout:
//
//	fee    = floor(amount * feeBasisPoints / 10000)
//	seller = amount - fee
//
// The flooring means the seller keeps every sub-basis-point remainder.
func SplitProceeds(amount *big.Int, feeBasisPoints uint32) (fee, seller *big.Int) {
	fee = new(big.Int).Mul(amount, big.NewInt(int64(feeBasisPoints)))
	fee.Quo(fee, big.NewInt(basisPointScale))
	seller = new(big.Int).Sub(amount, fee)
	return fee, seller
}
