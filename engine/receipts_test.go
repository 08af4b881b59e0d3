package engine

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/clearbid-io/clearbid/api"
	"github.com/clearbid-io/clearbid/core"
)

func TestReporterForVersion(t *testing.T) {
	v1, err := ReporterForVersion("v1")
	check.Nil(t, err)
	check.Equal(t, "v1", v1.Version())

	v2, err := ReporterForVersion("v2")
	check.Nil(t, err)
	check.Equal(t, "v2", v2.Version())

	_, err = ReporterForVersion("v9")
	check.True(t, errors.Is(err, ErrInvalidArgument))
}

func settledAuction() *Auction {
	clock := newFakeClock()
	return &Auction{
		ID:            7,
		Seller:        testSeller,
		Asset:         testAsset,
		StartTime:     clock.Now(),
		Ended:         true,
		ReserveUnit:   core.BaseCurrency,
		ReserveAmount: e(1, 18),
		HighestBidder: testBidder1,
		HighestUnit:   core.BaseCurrency,
		HighestAmount: e(11, 17),
	}
}

func TestReporterV1_Payload(t *testing.T) {
	a := settledAuction()
	at := newFakeClock().Now()

	receipt := reporterV1{}.Payload(a, e(275, 14), e(10725, 14), e(11, 5), at)

	check.Equal(t, "v1", receipt.Version)
	check.Equal(t, uint64(7), receipt.AuctionID)
	check.Equal(t, string(testSeller), receipt.Seller)
	check.Equal(t, "nft-registry/42", receipt.Asset)
	check.Equal(t, string(testBidder1), receipt.Winner)
	check.Equal(t, "1100000000000000000", receipt.Amount)
	check.Equal(t, "27500000000000000", receipt.Fee)
	check.Equal(t, "1072500000000000000", receipt.SellerProceeds)
	check.Equal(t, core.ComputeBidDigest(7, testBidder1, core.BaseCurrency, e(11, 17)), receipt.BidDigest)

	// v1 never reports a clearing value
	check.Equal(t, "", receipt.ClearingUSD)
	check.True(t, receipt.HasWinner())
}

func TestReporterV2_ReportsClearingUSD(t *testing.T) {
	a := settledAuction()
	at := newFakeClock().Now()

	// 1100000 at 6 USD decimals is $1.10
	receipt := reporterV2{}.Payload(a, e(275, 14), e(10725, 14), e(11, 5), at)

	check.Equal(t, "v2", receipt.Version)
	check.Equal(t, "1.1", receipt.ClearingUSD)
}

func TestReporter_NoWinnerOmitsSettlementFields(t *testing.T) {
	a := settledAuction()
	a.HighestBidder = core.ZeroAddress
	a.HighestUnit = ""
	a.HighestAmount = nil

	receipt := reporterV1{}.Payload(a, nil, nil, nil, newFakeClock().Now())

	check.False(t, receipt.HasWinner())
	check.Equal(t, "", receipt.Amount)
	check.Equal(t, "", receipt.Fee)
	check.Equal(t, "", receipt.SellerProceeds)
	check.Equal(t, "", receipt.BidDigest)
}

func TestSignReceipt(t *testing.T) {
	km, err := NewKeyManager()
	check.Nil(t, err)

	raw, err := SignReceipt(km, reporterV1{}.Payload(settledAuction(), e(275, 14), e(10725, 14), nil, newFakeClock().Now()))
	check.Nil(t, err)
	check.True(t, len(raw) > 0)

	// Encodes as base64 and decodes back byte for byte
	decoded, err := raw.EncodeBase64().Decode()
	check.Nil(t, err)
	check.Equal(t, []byte(raw), []byte(decoded))

	_, err = SignReceipt(nil, api.SettlementReceipt{})
	check.Error(t, err)
}
