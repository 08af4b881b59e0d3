package core

import (
	"math/big"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestValidFeeBasisPoints(t *testing.T) {
	check.False(t, ValidFeeBasisPoints(0))
	check.True(t, ValidFeeBasisPoints(1))
	check.True(t, ValidFeeBasisPoints(250))
	check.True(t, ValidFeeBasisPoints(1000))
	check.False(t, ValidFeeBasisPoints(1001))
}

func TestSplitProceeds(t *testing.T) {
	// 250 bp on 1.1 units at 18 decimals
	fee, seller := SplitProceeds(bigPow(11, 17), 250)
	check.Equal(t, 0, fee.Cmp(bigPow(275, 14)))
	check.Equal(t, 0, seller.Cmp(bigPow(10725, 14)))

	// Parts always reassemble to the full amount
	sum := new(big.Int).Add(fee, seller)
	check.Equal(t, 0, sum.Cmp(bigPow(11, 17)))
}

func TestSplitProceeds_FeeRoundsDown(t *testing.T) {
	// 250 bp on 39: raw fee 0.975 floors to 0, everything to the seller
	fee, seller := SplitProceeds(big.NewInt(39), 250)
	check.Equal(t, 0, fee.Sign())
	check.Equal(t, 0, seller.Cmp(big.NewInt(39)))

	// 250 bp on 41: fee 1, seller 40
	fee, seller = SplitProceeds(big.NewInt(41), 250)
	check.Equal(t, 0, fee.Cmp(big.NewInt(1)))
	check.Equal(t, 0, seller.Cmp(big.NewInt(40)))
}

func TestSplitProceeds_MaxRate(t *testing.T) {
	fee, seller := SplitProceeds(big.NewInt(10_000), 1000)
	check.Equal(t, 0, fee.Cmp(big.NewInt(1000)))
	check.Equal(t, 0, seller.Cmp(big.NewInt(9000)))
}
