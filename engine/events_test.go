package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
	"go.uber.org/zap"

	"github.com/clearbid-io/clearbid/core"
)

func TestRecorder_AppendChainsDigests(t *testing.T) {
	clock := newFakeClock()
	rec := NewRecorder(zap.NewNop(), clock.Now)

	first := rec.append(RecordAuctionCreated, AuctionCreatedBody{
		AuctionID:     1,
		Seller:        string(testSeller),
		Asset:         testAsset.String(),
		StartTime:     clock.Now(),
		EndTime:       clock.Now().Add(10 * time.Second),
		ReserveUnit:   string(core.BaseCurrency),
		ReserveAmount: "1000000000000000000",
	})
	check.NotEqual(t, "", first.ID)
	check.NotEqual(t, "", first.Digest)
	check.Equal(t, first.Digest, rec.TipDigest())

	clock.Advance(time.Second)
	second := rec.append(RecordBidPlaced, BidPlacedBody{
		AuctionID: 1,
		Bidder:    string(testBidder1),
		Unit:      string(core.BaseCurrency),
		Amount:    "1100000000000000000",
		USDValue:  "1100000",
	})
	check.NotEqual(t, first.Digest, second.Digest)
	check.Equal(t, second.Digest, rec.TipDigest())

	// Each digest commits to its predecessor
	records := rec.Records()
	check.Equal(t, 2, len(records))

	firstJSON, err := json.Marshal(records[0].Body)
	check.Nil(t, err)
	check.Equal(t, core.ComputeRecordDigest("", string(RecordAuctionCreated), string(firstJSON)), records[0].Digest)

	secondJSON, err := json.Marshal(records[1].Body)
	check.Nil(t, err)
	check.Equal(t, core.ComputeRecordDigest(records[0].Digest, string(RecordBidPlaced), string(secondJSON)), records[1].Digest)
}

func TestRecorder_RecordsReturnsSnapshot(t *testing.T) {
	rec := NewRecorder(zap.NewNop(), newFakeClock().Now)
	rec.append(RecordFeesSwept, FeesSweptBody{
		Unit:   string(core.BaseCurrency),
		Amount: "1",
		To:     string(testOwner),
	})

	records := rec.Records()
	records[0].Digest = "tampered"

	check.NotEqual(t, "tampered", rec.Records()[0].Digest)
}

func TestRecorder_EmptyTipDigest(t *testing.T) {
	rec := NewRecorder(zap.NewNop(), newFakeClock().Now)
	check.Equal(t, "", rec.TipDigest())
	check.Equal(t, 0, len(rec.Records()))
}
