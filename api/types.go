package api

import (
	"encoding/base64"
	"time"

	"github.com/clearbid-io/clearbid/core"
)

// SettlementReceipt is the payload of the COSE-signed receipt issued for
// every successful finalization. Amounts are decimal strings at the unit's
// native scale; ClearingUSD is a 6-decimal USD string and only present for
// v2 receipts.
type SettlementReceipt struct {
	Version        string    `cbor:"version" json:"version"`
	AuctionID      uint64    `cbor:"auction_id" json:"auction_id"`
	Seller         string    `cbor:"seller" json:"seller"`
	Asset          string    `cbor:"asset" json:"asset"`
	Winner         string    `cbor:"winner,omitempty" json:"winner,omitempty"`
	Unit           string    `cbor:"unit,omitempty" json:"unit,omitempty"`
	Amount         string    `cbor:"amount,omitempty" json:"amount,omitempty"`
	Fee            string    `cbor:"fee,omitempty" json:"fee,omitempty"`
	SellerProceeds string    `cbor:"seller_proceeds,omitempty" json:"seller_proceeds,omitempty"`
	ClearingUSD    string    `cbor:"clearing_usd,omitempty" json:"clearing_usd,omitempty"`
	BidDigest      string    `cbor:"bid_digest,omitempty" json:"bid_digest,omitempty"`
	Timestamp      time.Time `cbor:"timestamp" json:"timestamp"`
}

// HasWinner reports whether the receipt settles to a winning bidder rather
// than returning the asset to the seller.
func (r *SettlementReceipt) HasWinner() bool {
	return r.Winner != ""
}

// ReceiptCOSE is a raw COSE_Sign1 settlement receipt.
type ReceiptCOSE []byte

// ReceiptCOSEBase64 is a base64-encoded COSE_Sign1 receipt for JSON
// transport.
type ReceiptCOSEBase64 string

// EncodeBase64 encodes raw COSE bytes for JSON transport.
func (r ReceiptCOSE) EncodeBase64() ReceiptCOSEBase64 {
	return ReceiptCOSEBase64(base64.StdEncoding.EncodeToString(r))
}

// Decode decodes the base64 form back to raw COSE bytes.
func (b ReceiptCOSEBase64) Decode() (ReceiptCOSE, error) {
	raw, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return nil, err
	}
	return ReceiptCOSE(raw), nil
}

func (b ReceiptCOSEBase64) String() string {
	return string(b)
}

// Daemon wire types. One request per connection; the request type is
// dispatched on the Type field.

// CreateAuctionRequest opens an auction for a custodied asset.
type CreateAuctionRequest struct {
	Type            string        `json:"type"`
	Seller          string        `json:"seller"`
	Asset           core.AssetRef `json:"asset"`
	ReserveUnit     string        `json:"reserve_unit"`
	ReserveAmount   string        `json:"reserve_amount"`
	DurationSeconds int64         `json:"duration_seconds"`
}

// PlaceBidRequest submits a bid on an open auction.
type PlaceBidRequest struct {
	Type          string `json:"type"`
	AuctionID     uint64 `json:"auction_id"`
	Bidder        string `json:"bidder"`
	Unit          string `json:"unit"`
	Amount        string `json:"amount"`
	AttachedValue string `json:"attached_value"`
}

// FinalizeRequest settles an auction whose window has elapsed.
type FinalizeRequest struct {
	Type      string `json:"type"`
	AuctionID uint64 `json:"auction_id"`
}

// WithdrawRequest pays out a displaced bidder's escrow entry.
type WithdrawRequest struct {
	Type        string `json:"type"`
	Beneficiary string `json:"beneficiary"`
	Unit        string `json:"unit"`
}

// Response is the daemon's uniform reply envelope.
type Response struct {
	Type              string            `json:"type"`
	Success           bool              `json:"success"`
	Message           string            `json:"message,omitempty"`
	Reason            string            `json:"reason,omitempty"`
	AuctionID         uint64            `json:"auction_id,omitempty"`
	Amount            string            `json:"amount,omitempty"`
	ReceiptCOSEBase64 ReceiptCOSEBase64 `json:"receipt_cose_base64,omitempty"`
	PublicKeyPEM      string            `json:"public_key_pem,omitempty"`
	Records           any               `json:"records,omitempty"`
}
