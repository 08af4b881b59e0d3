package core

import (
	"math/big"
	"testing"

	"github.com/peterldowns/testy/check"
)

func bigPow(coeff, exp int64) *big.Int {
	v := new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
	return v.Mul(v, big.NewInt(coeff))
}

func TestQuote_IsPositive(t *testing.T) {
	check.True(t, Quote{Price: big.NewInt(1), Decimals: 8}.IsPositive())
	check.False(t, Quote{Price: big.NewInt(0), Decimals: 8}.IsPositive())
	check.False(t, Quote{Price: big.NewInt(-5), Decimals: 8}.IsPositive())
	check.False(t, Quote{}.IsPositive())
}

func TestNormalizeToUSD_BaseCurrency(t *testing.T) {
	// 1.5 units at 18 decimals, quoted $2000.00000000 per unit, is
	// $3000 = 3000000000 at 6 USD decimals.
	q := Quote{Price: bigPow(2000, 8), Decimals: 8}

	got := NormalizeToUSD(bigPow(15, 17), 18, q)
	check.Equal(t, 0, got.Cmp(bigPow(3000, 6)))
}

func TestNormalizeToUSD_SixDecimalToken(t *testing.T) {
	// 250 tokens at 6 decimals, quoted $0.99800000, is $249.50
	q := Quote{Price: big.NewInt(99_800_000), Decimals: 8}

	got := NormalizeToUSD(bigPow(250, 6), 6, q)
	check.Equal(t, 0, got.Cmp(big.NewInt(249_500_000)))
}

func TestNormalizeToUSD_TruncatesTowardZero(t *testing.T) {
	// 1 wei at $1999.99999999 per unit rounds down to $0
	q := Quote{Price: big.NewInt(199_999_999_999), Decimals: 8}

	got := NormalizeToUSD(big.NewInt(1), 18, q)
	check.Equal(t, 0, got.Sign())
}

func TestNormalizeToUSD_LowPrecisionQuote(t *testing.T) {
	// Quote with fewer decimals than the USD scale forces the multiply
	// branch: 3 tokens at 0 decimals, quoted $7 with 2 quote decimals.
	q := Quote{Price: big.NewInt(700), Decimals: 2}

	got := NormalizeToUSD(big.NewInt(3), 0, q)
	check.Equal(t, 0, got.Cmp(big.NewInt(21_000_000)))
}

func TestNormalizeToUSD_OrderPreserved(t *testing.T) {
	// Same USD value expressed in two denominations compares equal, and
	// a strictly larger bid stays strictly larger after normalization.
	base := Quote{Price: bigPow(2000, 8), Decimals: 8}
	token := Quote{Price: bigPow(1, 8), Decimals: 8}

	a := NormalizeToUSD(bigPow(1, 18), 18, base) // 1 unit = $2000
	b := NormalizeToUSD(bigPow(2000, 6), 6, token) // 2000 tokens = $2000
	check.Equal(t, 0, a.Cmp(b))

	c := NormalizeToUSD(bigPow(2001, 6), 6, token)
	check.Equal(t, 1, c.Cmp(a))
}

func TestNormalizeToUSD_DoublingDoubles(t *testing.T) {
	q := Quote{Price: big.NewInt(99_800_000), Decimals: 8}

	amount := bigPow(7, 6)
	single := NormalizeToUSD(amount, 6, q)
	double := NormalizeToUSD(new(big.Int).Mul(amount, big.NewInt(2)), 6, q)

	check.Equal(t, 0, double.Cmp(new(big.Int).Mul(single, big.NewInt(2))))
}

func TestUSDValue_String(t *testing.T) {
	check.Equal(t, "1.1", USDValue(big.NewInt(1_100_000)).String())
	check.Equal(t, "0.000001", USDValue(big.NewInt(1)).String())
	check.Equal(t, "2000", USDValue(bigPow(2000, 6)).String())
}
