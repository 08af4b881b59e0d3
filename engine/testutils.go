package engine

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/clearbid-io/clearbid/core"
)

// Shared test fixtures for the engine package.

const (
	testOwner     = core.Address("owner")
	testCustodian = core.Address("vault")
	testSeller    = core.Address("seller")
	testBidder1   = core.Address("bidder1")
	testBidder2   = core.Address("bidder2")

	testTokenUnit = core.Unit("usdt")
)

var testAsset = core.AssetRef{Registry: "nft-registry", TokenID: "42"}

// e returns coeff * 10^exp, for readable big amounts: e(11, 17) is 1.1
// base-currency units at 18 decimals.
func e(coeff, exp int64) *big.Int {
	v := new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
	return v.Mul(v, big.NewInt(coeff))
}

// fakeClock is a settable clock for deterministic window tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// testEnv wires an engine against in-memory capabilities:
//   - base currency quoted at $1.00000000 per whole unit
//   - a 6-decimal fungible token quoted at $1.00000000 per whole token
//   - one asset minted to the seller with custody approval granted
type testEnv struct {
	engine     *Engine
	assets     *MemAssetRegistry
	base       *MemBaseLedger
	token      *MemTokenLedger
	baseQuote  *MemQuoteSource
	tokenQuote *MemQuoteSource
	clock      *fakeClock
}

func newTestEnv(t *testing.T, feeBasisPoints uint32, version string) *testEnv {
	t.Helper()

	env := &testEnv{
		assets:     NewMemAssetRegistry(),
		base:       NewMemBaseLedger(),
		token:      NewMemTokenLedger(6, testCustodian),
		baseQuote:  NewMemQuoteSource(e(1, 8), 8),
		tokenQuote: NewMemQuoteSource(e(1, 8), 8),
		clock:      newFakeClock(),
	}

	eng, err := New(Options{
		Owner:          testOwner,
		Custodian:      testCustodian,
		FeeBasisPoints: feeBasisPoints,
		Version:        version,
		AssetRegistry:  env.assets,
		BaseLedger:     env.base,
		Logger:         zap.NewNop(),
		Now:            env.clock.Now,
	})
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	env.engine = eng

	if err := eng.RegisterUnit(testOwner, core.BaseCurrency, env.baseQuote, nil); err != nil {
		t.Fatalf("failed to register base currency: %v", err)
	}
	if err := eng.RegisterUnit(testOwner, testTokenUnit, env.tokenQuote, env.token); err != nil {
		t.Fatalf("failed to register token unit: %v", err)
	}

	env.assets.Mint(testAsset, testSeller)
	env.assets.Approve(testAsset, testCustodian)

	return env
}

// createAuction opens a standard auction: reserve 1 base-currency unit,
// 10-second window.
func (env *testEnv) createAuction(t *testing.T) uint64 {
	t.Helper()

	id, err := env.engine.CreateAuction(testSeller, testAsset, core.BaseCurrency, e(1, 18), 10*time.Second)
	if err != nil {
		t.Fatalf("failed to create auction: %v", err)
	}
	return id
}

// fundToken gives a bidder a token balance and approves the custodian to
// pull it.
func (env *testEnv) fundToken(bidder core.Address, amount *big.Int) {
	env.token.SetBalance(bidder, amount)
	env.token.Approve(bidder, testCustodian, amount)
}

// countRecords tallies audit records by kind.
func countRecords(records []Record, kind RecordKind) int {
	n := 0
	for _, r := range records {
		if r.Kind == kind {
			n++
		}
	}
	return n
}
