package engine

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/clearbid-io/clearbid/core"
)

type escrowKey struct {
	beneficiary core.Address
	unit        core.Unit
}

// EscrowAccountant tracks per-(beneficiary, unit) withdrawable balances
// created by bid displacement. Entries only grow through Credit and reset to
// exactly zero through a successful one-shot withdrawal.
//
// The accountant holds its own lock and releases it around external payout
// calls (see Engine.Withdraw): the entry is zeroed before the transfer
// starts, so a reentrant call observes zero and cannot double-spend.
type EscrowAccountant struct {
	mu       sync.Mutex
	balances map[escrowKey]*big.Int
}

// NewEscrowAccountant returns an empty accountant.
func NewEscrowAccountant() *EscrowAccountant {
	return &EscrowAccountant{
		balances: make(map[escrowKey]*big.Int),
	}
}

// Credit adds amount to the (beneficiary, unit) entry. A zero or negative
// amount is rejected as ErrInvalidArgument rather than treated as a no-op,
// so a displacement of zero value can never be recorded silently.
func (e *EscrowAccountant) Credit(beneficiary core.Address, unit core.Unit, amount *big.Int) error {
	if beneficiary.IsZero() {
		return fmt.Errorf("%w: zero beneficiary", ErrInvalidArgument)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive escrow credit", ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	key := escrowKey{beneficiary: beneficiary, unit: unit}
	balance, ok := e.balances[key]
	if !ok {
		balance = new(big.Int)
		e.balances[key] = balance
	}
	balance.Add(balance, amount)
	return nil
}

// Balance returns a copy of the current entry. Zero entries and absent
// entries are indistinguishable.
func (e *EscrowAccountant) Balance(beneficiary core.Address, unit core.Unit) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	balance, ok := e.balances[escrowKey{beneficiary: beneficiary, unit: unit}]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(balance)
}

// take zeroes the entry and returns the prior amount. The zeroing happens
// before the caller initiates the external transfer; if that transfer fails
// the caller restores the entry.
func (e *EscrowAccountant) take(beneficiary core.Address, unit core.Unit) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := escrowKey{beneficiary: beneficiary, unit: unit}
	balance, ok := e.balances[key]
	if !ok || balance.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNothingToWithdraw, beneficiary, unit)
	}

	amount := new(big.Int).Set(balance)
	delete(e.balances, key)
	return amount, nil
}

// restore re-credits an entry after a failed payout, merging with any credit
// that arrived while the transfer was in flight.
func (e *EscrowAccountant) restore(beneficiary core.Address, unit core.Unit, amount *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := escrowKey{beneficiary: beneficiary, unit: unit}
	balance, ok := e.balances[key]
	if !ok {
		balance = new(big.Int)
		e.balances[key] = balance
	}
	balance.Add(balance, amount)
}
