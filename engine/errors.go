package engine

import "errors"

// Settlement error taxonomy. Every failure of a mutating operation wraps
// exactly one of these sentinels so integrators can branch with errors.Is.
var (
	// ErrNotFound: unknown auction identifier.
	ErrNotFound = errors.New("auction not found")

	// ErrInvalidArgument: zero address, zero amount, zero duration, null
	// asset reference, or an out-of-range fee rate.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthorized: caller is not the required identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnsupportedUnit: no quote source registered for the unit.
	ErrUnsupportedUnit = errors.New("unsupported unit")

	// ErrInvalidQuote: the quote source reported a non-positive price or
	// failed to report at all.
	ErrInvalidQuote = errors.New("invalid quote")

	// ErrAuctionClosed: the bidding window has elapsed, the auction is
	// already ended, or the window has not yet elapsed where finalization
	// requires it.
	ErrAuctionClosed = errors.New("auction closed")

	// ErrBidTooLow: the candidate bid does not strictly exceed the current
	// reference in USD terms.
	ErrBidTooLow = errors.New("bid too low")

	// ErrPaymentMismatch: attached value or allowance inconsistent with the
	// declared unit and amount.
	ErrPaymentMismatch = errors.New("payment mismatch")

	// ErrTransferFailed: an external asset or token transfer returned
	// failure.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrNothingToWithdraw: the escrow entry is zero.
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
)

// Reason maps a settlement error to its stable machine-readable reason,
// used as a metrics label and in daemon responses.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrUnsupportedUnit):
		return "unsupported_unit"
	case errors.Is(err, ErrInvalidQuote):
		return "invalid_quote"
	case errors.Is(err, ErrAuctionClosed):
		return "auction_closed"
	case errors.Is(err, ErrBidTooLow):
		return "bid_too_low"
	case errors.Is(err, ErrPaymentMismatch):
		return "payment_mismatch"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrNothingToWithdraw):
		return "nothing_to_withdraw"
	default:
		return "internal"
	}
}
