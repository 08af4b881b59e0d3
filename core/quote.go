package core

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time price report from an external quote source.
// Price is the USD price of one whole unit, scaled by 10^Decimals.
type Quote struct {
	Price    *big.Int
	Decimals int32
}

// IsPositive reports whether the quoted price is strictly positive.
// A non-positive price is an invalid quote and must not be used for
// normalization.
func (q Quote) IsPositive() bool {
	return q.Price != nil && q.Price.Sign() > 0
}

// NormalizeToUSD converts an amount at the unit's native scale into the
// common 6-decimal USD scale:
//
//	usd = amount * price / 10^(unitDecimals + quoteDecimals - 6)
//
// Division truncates toward zero. The truncation is documented lossy
// behavior: two amounts whose USD values differ by less than 10^-6 USD
// normalize to the same value.
func NormalizeToUSD(amount *big.Int, unitDecimals int32, q Quote) *big.Int {
	v := new(big.Int).Mul(amount, q.Price)

	exp := int64(unitDecimals) + int64(q.Decimals) - int64(USDDecimals)
	switch {
	case exp > 0:
		v.Quo(v, pow10(exp))
	case exp < 0:
		v.Mul(v, pow10(-exp))
	}
	return v
}

// USDValue renders a raw 6-decimal USD integer as a decimal value for
// records and display.
func USDValue(raw *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -USDDecimals)
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}
