package core

import (
	"math/big"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestComputeBidDigest_Deterministic(t *testing.T) {
	d1 := ComputeBidDigest(1, "bidder1", BaseCurrency, big.NewInt(100))
	d2 := ComputeBidDigest(1, "bidder1", BaseCurrency, big.NewInt(100))
	check.Equal(t, d1, d2)
	check.Equal(t, 64, len(d1))

	// Any field change produces a different digest
	check.NotEqual(t, d1, ComputeBidDigest(2, "bidder1", BaseCurrency, big.NewInt(100)))
	check.NotEqual(t, d1, ComputeBidDigest(1, "bidder2", BaseCurrency, big.NewInt(100)))
	check.NotEqual(t, d1, ComputeBidDigest(1, "bidder1", "usdt", big.NewInt(100)))
	check.NotEqual(t, d1, ComputeBidDigest(1, "bidder1", BaseCurrency, big.NewInt(101)))
}

func TestComputeRecordDigest_ChainsOnPredecessor(t *testing.T) {
	first := ComputeRecordDigest("", "auction_created", `{"auction_id":1}`)
	second := ComputeRecordDigest(first, "bid_placed", `{"auction_id":1}`)

	check.Equal(t, 64, len(first))
	check.NotEqual(t, first, second)

	// Same body under a different predecessor diverges
	check.NotEqual(t, second, ComputeRecordDigest("", "bid_placed", `{"auction_id":1}`))
}
