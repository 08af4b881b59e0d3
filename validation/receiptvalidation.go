package validation

import (
	"fmt"
	"math/big"

	"github.com/clearbid-io/clearbid/api"
	"github.com/clearbid-io/clearbid/core"
)

// ValidateSettlementReceipt verifies a settlement receipt offline:
//   - the COSE_Sign1 signature against the engine's published public key
//   - the auction identifier
//   - the winner (or the absence of one)
//   - the amount, the recomputed fee split, and the winning-bid digest
//
// Returns a detailed result (call result.IsValid() for the overall status),
// or an error if validation cannot be performed at all.
func ValidateSettlementReceipt(coseB64 api.ReceiptCOSEBase64, publicKeyPEM string, expect *ReceiptExpectation) (*ReceiptValidationResult, error) {
	if expect == nil {
		return nil, fmt.Errorf("nil expectation")
	}

	result := &ReceiptValidationResult{}

	if err := VerifyReceiptSignature(coseB64, publicKeyPEM); err != nil {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("signature: %v", err))
	} else {
		result.SignatureValid = true
	}

	receipt, err := ParseReceiptPayload(coseB64)
	if err != nil {
		return nil, fmt.Errorf("parse receipt: %w", err)
	}

	result.AuctionMatch = validateAuctionID(receipt, expect, result)
	result.WinnerValid = validateWinner(receipt, expect, result)
	result.AmountsValid = validateAmounts(receipt, expect, result)

	return result, nil
}

func validateAuctionID(receipt *api.SettlementReceipt, expect *ReceiptExpectation, result *ReceiptValidationResult) bool {
	if receipt.AuctionID != expect.AuctionID {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("auction id mismatch: receipt %d, expected %d", receipt.AuctionID, expect.AuctionID))
		return false
	}
	return true
}

func validateWinner(receipt *api.SettlementReceipt, expect *ReceiptExpectation, result *ReceiptValidationResult) bool {
	if receipt.Winner != expect.Winner {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("winner mismatch: receipt %q, expected %q", receipt.Winner, expect.Winner))
		return false
	}
	return true
}

func validateAmounts(receipt *api.SettlementReceipt, expect *ReceiptExpectation, result *ReceiptValidationResult) bool {
	// No winner settles no funds: nothing to check beyond absent fields.
	if expect.Winner == "" {
		if receipt.Amount != "" || receipt.Fee != "" || receipt.SellerProceeds != "" {
			result.ValidationDetails = append(result.ValidationDetails,
				"no-winner receipt carries settlement amounts")
			return false
		}
		return true
	}

	if receipt.Unit != expect.Unit {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("unit mismatch: receipt %q, expected %q", receipt.Unit, expect.Unit))
		return false
	}
	if receipt.Amount != expect.Amount {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("amount mismatch: receipt %s, expected %s", receipt.Amount, expect.Amount))
		return false
	}

	amount, ok := new(big.Int).SetString(expect.Amount, 10)
	if !ok {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("expected amount %q is not a decimal integer", expect.Amount))
		return false
	}

	if expect.FeeBasisPoints != 0 {
		fee, sellerProceeds := core.SplitProceeds(amount, expect.FeeBasisPoints)
		if receipt.Fee != fee.String() {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("fee mismatch: receipt %s, recomputed %s", receipt.Fee, fee))
			return false
		}
		if receipt.SellerProceeds != sellerProceeds.String() {
			result.ValidationDetails = append(result.ValidationDetails,
				fmt.Sprintf("seller proceeds mismatch: receipt %s, recomputed %s", receipt.SellerProceeds, sellerProceeds))
			return false
		}
	}

	digest := core.ComputeBidDigest(expect.AuctionID, core.Address(expect.Winner), core.Unit(expect.Unit), amount)
	if receipt.BidDigest != digest {
		result.ValidationDetails = append(result.ValidationDetails,
			"winning-bid digest mismatch")
		return false
	}
	return true
}
