package engine

import (
	"errors"
	"math/big"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/clearbid-io/clearbid/core"
)

func TestEscrowAccountant_CreditAccumulates(t *testing.T) {
	esc := NewEscrowAccountant()

	check.Nil(t, esc.Credit(testBidder1, core.BaseCurrency, e(11, 17)))
	check.Nil(t, esc.Credit(testBidder1, core.BaseCurrency, e(4, 17)))

	check.Equal(t, 0, esc.Balance(testBidder1, core.BaseCurrency).Cmp(e(15, 17)))
	check.Equal(t, 0, esc.Balance(testBidder2, core.BaseCurrency).Sign())
}

func TestEscrowAccountant_EntriesKeyedPerUnit(t *testing.T) {
	esc := NewEscrowAccountant()

	check.Nil(t, esc.Credit(testBidder1, core.BaseCurrency, e(1, 18)))
	check.Nil(t, esc.Credit(testBidder1, testTokenUnit, e(2, 6)))

	check.Equal(t, 0, esc.Balance(testBidder1, core.BaseCurrency).Cmp(e(1, 18)))
	check.Equal(t, 0, esc.Balance(testBidder1, testTokenUnit).Cmp(e(2, 6)))

	// Taking one unit leaves the other intact
	got, err := esc.take(testBidder1, core.BaseCurrency)
	check.Nil(t, err)
	check.Equal(t, 0, got.Cmp(e(1, 18)))
	check.Equal(t, 0, esc.Balance(testBidder1, testTokenUnit).Cmp(e(2, 6)))
}

func TestEscrowAccountant_RejectsNonPositiveCredit(t *testing.T) {
	esc := NewEscrowAccountant()

	err := esc.Credit(testBidder1, core.BaseCurrency, big.NewInt(0))
	check.True(t, errors.Is(err, ErrInvalidArgument))

	err = esc.Credit(testBidder1, core.BaseCurrency, big.NewInt(-1))
	check.True(t, errors.Is(err, ErrInvalidArgument))

	err = esc.Credit(testBidder1, core.BaseCurrency, nil)
	check.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestEscrowAccountant_TakeZeroesEntry(t *testing.T) {
	esc := NewEscrowAccountant()
	check.Nil(t, esc.Credit(testBidder1, core.BaseCurrency, e(11, 17)))

	got, err := esc.take(testBidder1, core.BaseCurrency)
	check.Nil(t, err)
	check.Equal(t, 0, got.Cmp(e(11, 17)))
	check.Equal(t, 0, esc.Balance(testBidder1, core.BaseCurrency).Sign())

	_, err = esc.take(testBidder1, core.BaseCurrency)
	check.True(t, errors.Is(err, ErrNothingToWithdraw))

	_, err = esc.take(testBidder2, core.BaseCurrency)
	check.True(t, errors.Is(err, ErrNothingToWithdraw))
}

func TestEscrowAccountant_RestoreAfterFailedPayout(t *testing.T) {
	esc := NewEscrowAccountant()
	check.Nil(t, esc.Credit(testBidder1, core.BaseCurrency, e(11, 17)))

	got, err := esc.take(testBidder1, core.BaseCurrency)
	check.Nil(t, err)

	esc.restore(testBidder1, core.BaseCurrency, got)
	check.Equal(t, 0, esc.Balance(testBidder1, core.BaseCurrency).Cmp(e(11, 17)))
}

func TestEscrowAccountant_BalanceReturnsCopy(t *testing.T) {
	esc := NewEscrowAccountant()
	check.Nil(t, esc.Credit(testBidder1, core.BaseCurrency, e(1, 18)))

	bal := esc.Balance(testBidder1, core.BaseCurrency)
	bal.SetInt64(0)

	check.Equal(t, 0, esc.Balance(testBidder1, core.BaseCurrency).Cmp(e(1, 18)))
}
