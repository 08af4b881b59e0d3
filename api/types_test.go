package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

// TestReceiptCOSE_Encode tests encoding raw COSE bytes to base64
func TestReceiptCOSE_Encode(t *testing.T) {
	coseBytes := ReceiptCOSE([]byte("mock-cose-receipt-data"))

	encoded := coseBytes.EncodeBase64()
	check.NotEqual(t, "", encoded.String())

	decoded, err := encoded.Decode()
	check.Nil(t, err)
	check.Equal(t, coseBytes, decoded)
}

func TestReceiptCOSE_DecodeInvalidBase64(t *testing.T) {
	_, err := ReceiptCOSEBase64("not!!valid@@base64").Decode()
	check.Error(t, err)
}

func TestSettlementReceipt_HasWinner(t *testing.T) {
	settled := SettlementReceipt{Winner: "bidder1"}
	check.True(t, settled.HasWinner())

	unsold := SettlementReceipt{}
	check.False(t, unsold.HasWinner())
}

func TestSettlementReceipt_JSONOmitsEmptySettlementFields(t *testing.T) {
	receipt := SettlementReceipt{
		Version:   "v1",
		AuctionID: 3,
		Seller:    "seller",
		Asset:     "nft-registry/42",
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(&receipt)
	check.Nil(t, err)

	var decoded map[string]any
	check.Nil(t, json.Unmarshal(raw, &decoded))

	_, hasWinner := decoded["winner"]
	check.False(t, hasWinner)
	_, hasFee := decoded["fee"]
	check.False(t, hasFee)
	_, hasClearing := decoded["clearing_usd"]
	check.False(t, hasClearing)

	check.Equal(t, "v1", decoded["version"])
	check.Equal(t, any(float64(3)), decoded["auction_id"])
}

func TestResponse_RoundTrip(t *testing.T) {
	resp := Response{
		Type:      "place_bid",
		Success:   false,
		Message:   "bid below current leader",
		Reason:    "bid_too_low",
		AuctionID: 9,
	}

	raw, err := json.Marshal(&resp)
	check.Nil(t, err)

	var decoded Response
	check.Nil(t, json.Unmarshal(raw, &decoded))
	check.Equal(t, resp.Type, decoded.Type)
	check.Equal(t, resp.Success, decoded.Success)
	check.Equal(t, resp.Reason, decoded.Reason)
	check.Equal(t, resp.AuctionID, decoded.AuctionID)
}
