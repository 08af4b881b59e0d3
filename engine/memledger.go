package engine

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/clearbid-io/clearbid/core"
)

// In-memory implementations of the external capabilities. The test suite
// runs against these, and the development daemon wires them in place of real
// registries.

// MemAssetRegistry is an in-memory asset ownership registry.
type MemAssetRegistry struct {
	mu        sync.Mutex
	owners    map[core.AssetRef]core.Address
	approvals map[core.AssetRef]core.Address

	// FailTransfers makes every Transfer fail, for exercising settlement
	// failure paths.
	FailTransfers bool
}

func NewMemAssetRegistry() *MemAssetRegistry {
	return &MemAssetRegistry{
		owners:    make(map[core.AssetRef]core.Address),
		approvals: make(map[core.AssetRef]core.Address),
	}
}

// Mint assigns an asset to an owner, creating it if needed.
func (r *MemAssetRegistry) Mint(ref core.AssetRef, owner core.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[ref] = owner
}

// Approve grants an operator transfer rights over an asset.
func (r *MemAssetRegistry) Approve(ref core.AssetRef, operator core.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approvals[ref] = operator
}

func (r *MemAssetRegistry) OwnerOf(ref core.AssetRef) (core.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[ref]
	if !ok {
		return core.ZeroAddress, fmt.Errorf("unknown asset %s", ref)
	}
	return owner, nil
}

func (r *MemAssetRegistry) IsTransferApproved(ref core.AssetRef, operator core.Address) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.approvals[ref] == operator, nil
}

func (r *MemAssetRegistry) Transfer(ref core.AssetRef, from, to core.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailTransfers {
		return fmt.Errorf("transfer disabled")
	}
	owner, ok := r.owners[ref]
	if !ok {
		return fmt.Errorf("unknown asset %s", ref)
	}
	if owner != from {
		return fmt.Errorf("%s does not own %s", from, ref)
	}
	r.owners[ref] = to
	delete(r.approvals, ref)
	return nil
}

// MemTokenLedger is an in-memory fungible-token ledger. Outbound Transfer
// pays out of the custodian's balance.
type MemTokenLedger struct {
	mu         sync.Mutex
	decimals   int32
	custodian  core.Address
	balances   map[core.Address]*big.Int
	allowances map[core.Address]map[core.Address]*big.Int

	// FailTransfers makes Transfer and TransferFrom fail.
	FailTransfers bool

	// OnTransfer runs during Transfer before the balances move; tests use
	// it to simulate a reentrant callee.
	OnTransfer func(to core.Address, amount *big.Int)
}

func NewMemTokenLedger(decimals int32, custodian core.Address) *MemTokenLedger {
	return &MemTokenLedger{
		decimals:   decimals,
		custodian:  custodian,
		balances:   make(map[core.Address]*big.Int),
		allowances: make(map[core.Address]map[core.Address]*big.Int),
	}
}

func (l *MemTokenLedger) Decimals() (int32, error) {
	return l.decimals, nil
}

// SetBalance overwrites an account balance.
func (l *MemTokenLedger) SetBalance(account core.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = new(big.Int).Set(amount)
}

// BalanceOf returns a copy of an account balance.
func (l *MemTokenLedger) BalanceOf(account core.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[account]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(balance)
}

// Approve sets the spender's allowance over the owner's balance.
func (l *MemTokenLedger) Approve(owner, spender core.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	spenders, ok := l.allowances[owner]
	if !ok {
		spenders = make(map[core.Address]*big.Int)
		l.allowances[owner] = spenders
	}
	spenders[spender] = new(big.Int).Set(amount)
}

func (l *MemTokenLedger) Allowance(owner, spender core.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance, ok := l.allowances[owner][spender]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(allowance), nil
}

func (l *MemTokenLedger) TransferFrom(owner, to core.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailTransfers {
		return fmt.Errorf("transfer disabled")
	}
	allowance, ok := l.allowances[owner][to]
	if !ok || allowance.Cmp(amount) < 0 {
		return fmt.Errorf("allowance of %s for %s below %s", owner, to, amount)
	}
	if err := l.moveLocked(owner, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

func (l *MemTokenLedger) Transfer(to core.Address, amount *big.Int) error {
	if hook := l.OnTransfer; hook != nil {
		hook(to, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailTransfers {
		return fmt.Errorf("transfer disabled")
	}
	return l.moveLocked(l.custodian, to, amount)
}

func (l *MemTokenLedger) moveLocked(from, to core.Address, amount *big.Int) error {
	fromBalance, ok := l.balances[from]
	if !ok || fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("balance of %s below %s", from, amount)
	}
	toBalance, ok := l.balances[to]
	if !ok {
		toBalance = new(big.Int)
		l.balances[to] = toBalance
	}
	fromBalance.Sub(fromBalance, amount)
	toBalance.Add(toBalance, amount)
	return nil
}

// MemBaseLedger is an in-memory base-currency payout ledger. The engine's
// custodial pot is implicit: Transfer only credits the destination.
type MemBaseLedger struct {
	mu       sync.Mutex
	balances map[core.Address]*big.Int

	// FailTransfers makes Transfer fail.
	FailTransfers bool

	// OnTransfer runs before the credit; tests use it to simulate a
	// reentrant callee.
	OnTransfer func(to core.Address, amount *big.Int)
}

func NewMemBaseLedger() *MemBaseLedger {
	return &MemBaseLedger{balances: make(map[core.Address]*big.Int)}
}

func (l *MemBaseLedger) Transfer(to core.Address, amount *big.Int) error {
	if hook := l.OnTransfer; hook != nil {
		hook(to, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailTransfers {
		return fmt.Errorf("transfer disabled")
	}
	balance, ok := l.balances[to]
	if !ok {
		balance = new(big.Int)
		l.balances[to] = balance
	}
	balance.Add(balance, amount)
	return nil
}

// BalanceOf returns a copy of the amount paid out to an account so far.
func (l *MemBaseLedger) BalanceOf(account core.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[account]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(balance)
}

// MemQuoteSource reports a settable fixed price.
type MemQuoteSource struct {
	mu       sync.Mutex
	price    *big.Int
	decimals int32
	err      error
}

func NewMemQuoteSource(price *big.Int, decimals int32) *MemQuoteSource {
	return &MemQuoteSource{price: new(big.Int).Set(price), decimals: decimals}
}

// SetPrice updates the reported price.
func (s *MemQuoteSource) SetPrice(price *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price = new(big.Int).Set(price)
}

// SetError makes LatestPrice fail until cleared.
func (s *MemQuoteSource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemQuoteSource) LatestPrice() (*big.Int, int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, 0, s.err
	}
	return new(big.Int).Set(s.price), s.decimals, nil
}
