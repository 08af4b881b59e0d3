package core

import (
	"fmt"
	"math/big"
)

// Address identifies a participant (seller, bidder, owner) or an external
// collaborator account. The engine treats addresses as opaque strings; the
// zero value means "none".
type Address string

// ZeroAddress is the absent identity.
const ZeroAddress Address = ""

// IsZero reports whether the address is the absent identity.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Unit names a bid denomination: the base currency or one fungible token.
type Unit string

// BaseCurrency is the engine's native denomination. Bids in the base currency
// attach their value directly instead of moving through a token ledger.
const BaseCurrency Unit = "base"

const (
	// BaseCurrencyDecimals is the fixed scale of base-currency amounts.
	BaseCurrencyDecimals int32 = 18

	// USDDecimals is the fixed scale of normalized USD values.
	USDDecimals int32 = 6
)

// AssetRef names a custodied non-fungible asset as a
// (registry identifier, item identifier) pair.
type AssetRef struct {
	Registry Address `json:"registry"`
	TokenID  string  `json:"token_id"`
}

// IsZero reports whether the reference is null.
func (r AssetRef) IsZero() bool {
	return r.Registry.IsZero() || r.TokenID == ""
}

func (r AssetRef) String() string {
	return fmt.Sprintf("%s/%s", r.Registry, r.TokenID)
}

// AmountString renders a possibly-nil amount for records and wire types.
func AmountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
