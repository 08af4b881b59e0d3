package engine

import (
	"math/big"

	"github.com/clearbid-io/clearbid/core"
)

// AssetRegistry is the external ownership and custody capability for
// non-fungible assets. Transfer must not silently fail: a nil return means
// the asset moved.
type AssetRegistry interface {
	OwnerOf(ref core.AssetRef) (core.Address, error)
	IsTransferApproved(ref core.AssetRef, operator core.Address) (bool, error)
	Transfer(ref core.AssetRef, from, to core.Address) error
}

// TokenLedger is the external transfer and allowance capability for one
// fungible unit. Transfer pays out of the engine's custodial balance.
type TokenLedger interface {
	Decimals() (int32, error)
	Allowance(owner, spender core.Address) (*big.Int, error)
	TransferFrom(owner, to core.Address, amount *big.Int) error
	Transfer(to core.Address, amount *big.Int) error
}

// BaseLedger pays base-currency value out of the engine's custody.
// Incoming base-currency value arrives attached to the bid itself, so only
// the outbound direction is a capability.
type BaseLedger interface {
	Transfer(to core.Address, amount *big.Int) error
}

// QuoteSource reports the latest USD price for one unit, together with the
// precision the price is scaled by.
type QuoteSource interface {
	LatestPrice() (price *big.Int, decimals int32, err error)
}
