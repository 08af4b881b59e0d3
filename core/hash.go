package core

import (
	"crypto/sha256"
	"fmt"
	"math/big"
)

// ComputeBidDigest computes the canonical digest of an admitted bid.
// The digest is embedded in settlement receipts so integrators can confirm
// the winning bid without access to the engine's state.
//
// Formula: SHA256(auction_id + "|" + bidder + "|" + unit + "|" + amount)
func ComputeBidDigest(auctionID uint64, bidder Address, unit Unit, amount *big.Int) string {
	data := fmt.Sprintf("%d|%s|%s|%s", auctionID, bidder, unit, AmountString(amount))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeRecordDigest chains an audit record to its predecessor, making the
// append-only log tamper evident.
//
// Formula: SHA256(previous_digest + "|" + kind + "|" + body)
func ComputeRecordDigest(prevDigest, kind, body string) string {
	data := fmt.Sprintf("%s|%s|%s", prevDigest, kind, body)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
