package validation

// ReceiptExpectation is what the integrator believes the settlement was.
// Zero-valued fields still participate in matching: an empty Winner means
// "expect no winner".
type ReceiptExpectation struct {
	AuctionID uint64 `json:"auction_id"`
	Winner    string `json:"winner"`
	Unit      string `json:"unit"`
	Amount    string `json:"amount"`

	// FeeBasisPoints lets the validator recompute the fee split. Zero
	// skips the fee-split recomputation.
	FeeBasisPoints uint32 `json:"fee_basis_points"`
}

// ReceiptValidationResult reports every check independently; call IsValid
// for the overall verdict.
type ReceiptValidationResult struct {
	SignatureValid    bool
	AuctionMatch      bool
	WinnerValid       bool
	AmountsValid      bool
	ValidationDetails []string
}

// IsValid returns true if all receipt validation checks passed.
func (r *ReceiptValidationResult) IsValid() bool {
	return r.SignatureValid && r.AuctionMatch && r.WinnerValid && r.AmountsValid
}
