package engine

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/clearbid-io/clearbid/api"
	"github.com/clearbid-io/clearbid/core"
)

// ReceiptReporter builds the receipt payload for a finalized auction. The
// active reporter is the only part of the engine that varies across
// versions; ledger and escrow state are independent of it.
type ReceiptReporter interface {
	Version() string
	Payload(a *Auction, fee, sellerProceeds, clearingUSD *big.Int, at time.Time) api.SettlementReceipt
}

// ReporterForVersion resolves a version tag to its reporter.
func ReporterForVersion(version string) (ReceiptReporter, error) {
	switch version {
	case "v1":
		return reporterV1{}, nil
	case "v2":
		return reporterV2{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine version %q", ErrInvalidArgument, version)
	}
}

type reporterV1 struct{}

func (reporterV1) Version() string { return "v1" }

func (reporterV1) Payload(a *Auction, fee, sellerProceeds, _ *big.Int, at time.Time) api.SettlementReceipt {
	return baseReceipt("v1", a, fee, sellerProceeds, at)
}

// reporterV2 additionally reports the USD-normalized clearing value of the
// winning bid.
type reporterV2 struct{}

func (reporterV2) Version() string { return "v2" }

func (reporterV2) Payload(a *Auction, fee, sellerProceeds, clearingUSD *big.Int, at time.Time) api.SettlementReceipt {
	receipt := baseReceipt("v2", a, fee, sellerProceeds, at)
	if clearingUSD != nil {
		receipt.ClearingUSD = core.USDValue(clearingUSD).String()
	}
	return receipt
}

func baseReceipt(version string, a *Auction, fee, sellerProceeds *big.Int, at time.Time) api.SettlementReceipt {
	receipt := api.SettlementReceipt{
		Version:   version,
		AuctionID: a.ID,
		Seller:    string(a.Seller),
		Asset:     a.Asset.String(),
		Timestamp: at,
	}
	if a.HasBid() {
		receipt.Winner = string(a.HighestBidder)
		receipt.Unit = string(a.HighestUnit)
		receipt.Amount = core.AmountString(a.HighestAmount)
		receipt.Fee = core.AmountString(fee)
		receipt.SellerProceeds = core.AmountString(sellerProceeds)
		receipt.BidDigest = core.ComputeBidDigest(a.ID, a.HighestBidder, a.HighestUnit, a.HighestAmount)
	}
	return receipt
}

// SignReceipt encodes the payload with CBOR and signs it as a COSE_Sign1
// message with the engine's ES256 key.
func SignReceipt(km *KeyManager, payload api.SettlementReceipt) (api.ReceiptCOSE, error) {
	if km == nil {
		return nil, fmt.Errorf("key manager is nil")
	}

	payloadBytes, err := cbor.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal receipt payload: %w", err)
	}

	signer, err := km.signer()
	if err != nil {
		return nil, err
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected[cose.HeaderLabelAlgorithm] = cose.AlgorithmES256
	msg.Payload = payloadBytes

	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("failed to sign receipt: %w", err)
	}

	raw, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("failed to encode signed receipt: %w", err)
	}

	return api.ReceiptCOSE(raw), nil
}
