package engine

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clearbid-io/clearbid/api"
	"github.com/clearbid-io/clearbid/core"
)

// Options configures a settlement engine.
type Options struct {
	// Owner may mutate the quote-source registry and sweep retained fees.
	Owner core.Address

	// Custodian is the engine's own identity on the external registries:
	// assets and pulled funds are held under this address, and bidders
	// grant token allowances to it.
	Custodian core.Address

	// FeeBasisPoints is the platform fee rate, bounded to (0, 1000].
	// Set once at construction.
	FeeBasisPoints uint32

	// Version selects the receipt reporter ("v1" when empty).
	Version string

	AssetRegistry AssetRegistry
	BaseLedger    BaseLedger

	// KeyManager signs settlement receipts; a fresh key pair is generated
	// when nil.
	KeyManager *KeyManager

	Logger *zap.Logger

	// Now overrides the clock for deterministic tests.
	Now func() time.Time
}

type unitEntry struct {
	quote  QuoteSource
	ledger TokenLedger // nil for the base currency
}

// Engine is the settlement authority: it owns the auction ledger, the
// escrow accountant and the quote-source registry, sequences external
// capability calls around state transitions, and translates capability
// failures into the settlement error taxonomy.
//
// All mutating operations run under a single mutex, reproducing the
// reference environment's global mutual exclusion: an operation runs to
// completion before another can observe its effects.
type Engine struct {
	mu sync.Mutex

	owner          core.Address
	custodian      core.Address
	feeBasisPoints uint32

	assets AssetRegistry
	base   BaseLedger
	units  map[core.Unit]unitEntry

	ledger *auctionLedger
	escrow *EscrowAccountant
	fees   map[core.Unit]*big.Int

	recorder *Recorder
	reporter ReceiptReporter
	keys     *KeyManager

	logger *zap.Logger
	now    func() time.Time
}

// New validates the options and returns a ready engine.
func New(opts Options) (*Engine, error) {
	if opts.Owner.IsZero() {
		return nil, fmt.Errorf("%w: zero owner address", ErrInvalidArgument)
	}
	if opts.Custodian.IsZero() {
		return nil, fmt.Errorf("%w: zero custodian address", ErrInvalidArgument)
	}
	if !core.ValidFeeBasisPoints(opts.FeeBasisPoints) {
		return nil, fmt.Errorf("%w: fee rate %d outside (0, %d] basis points",
			ErrInvalidArgument, opts.FeeBasisPoints, core.MaxFeeBasisPoints)
	}
	if opts.AssetRegistry == nil {
		return nil, fmt.Errorf("%w: nil asset registry", ErrInvalidArgument)
	}
	if opts.BaseLedger == nil {
		return nil, fmt.Errorf("%w: nil base ledger", ErrInvalidArgument)
	}

	version := opts.Version
	if version == "" {
		version = "v1"
	}
	reporter, err := ReporterForVersion(version)
	if err != nil {
		return nil, err
	}

	keys := opts.KeyManager
	if keys == nil {
		keys, err = NewKeyManager()
		if err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		owner:          opts.Owner,
		custodian:      opts.Custodian,
		feeBasisPoints: opts.FeeBasisPoints,
		assets:         opts.AssetRegistry,
		base:           opts.BaseLedger,
		units:          make(map[core.Unit]unitEntry),
		ledger:         newAuctionLedger(),
		escrow:         NewEscrowAccountant(),
		fees:           make(map[core.Unit]*big.Int),
		recorder:       NewRecorder(logger, now),
		reporter:       reporter,
		keys:           keys,
		logger:         logger,
		now:            now,
	}, nil
}

// Version returns the active receipt reporter's version tag.
func (e *Engine) Version() string {
	return e.reporter.Version()
}

// FeeBasisPoints returns the platform fee rate.
func (e *Engine) FeeBasisPoints() uint32 {
	return e.feeBasisPoints
}

// ReceiptPublicKeyPEM returns the PEM public key validators use to verify
// settlement receipts.
func (e *Engine) ReceiptPublicKeyPEM() (string, error) {
	return e.keys.PublicKeyPEM()
}

// Records returns a snapshot of the audit log.
func (e *Engine) Records() []Record {
	return e.recorder.Records()
}

// RegisterUnit registers or updates a unit's quote source, making the unit
// supported for reserves and bids. Fungible units additionally require their
// token ledger; the base currency must not carry one. Owner only.
func (e *Engine) RegisterUnit(caller core.Address, unit core.Unit, quote QuoteSource, ledger TokenLedger) (err error) {
	defer func() { observeOperation("register_unit", err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return fmt.Errorf("%w: only the owner can register quote sources", ErrUnauthorized)
	}
	if unit == "" {
		return fmt.Errorf("%w: empty unit", ErrInvalidArgument)
	}
	if quote == nil {
		return fmt.Errorf("%w: null quote source", ErrInvalidArgument)
	}
	if unit == core.BaseCurrency && ledger != nil {
		return fmt.Errorf("%w: base currency does not take a token ledger", ErrInvalidArgument)
	}
	if unit != core.BaseCurrency && ledger == nil {
		return fmt.Errorf("%w: fungible unit %s requires a token ledger", ErrInvalidArgument, unit)
	}

	e.units[unit] = unitEntry{quote: quote, ledger: ledger}

	// Best effort: the declared precision belongs in the registration
	// record, but a source that cannot report yet is still registered.
	body := QuoteSourceRegisteredBody{Unit: string(unit)}
	if _, decimals, probeErr := quote.LatestPrice(); probeErr == nil {
		body.QuoteDecimals = decimals
	} else {
		body.QuoteUnavailable = true
	}

	e.recorder.append(RecordQuoteSourceRegistered, body)
	return nil
}

// ToUSD converts an amount of a supported unit into the common 6-decimal
// USD scale. Pure read: no state mutation.
func (e *Engine) ToUSD(unit core.Unit, amount *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.toUSDLocked(unit, amount)
}

func (e *Engine) toUSDLocked(unit core.Unit, amount *big.Int) (*big.Int, error) {
	entry, ok := e.units[unit]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedUnit, unit)
	}

	price, decimals, err := entry.quote.LatestPrice()
	if err != nil {
		return nil, fmt.Errorf("%w: quote source for %s: %v", ErrInvalidQuote, unit, err)
	}
	quote := core.Quote{Price: price, Decimals: decimals}
	if !quote.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive price for %s", ErrInvalidQuote, unit)
	}

	unitDecimals, err := e.unitDecimals(unit, entry)
	if err != nil {
		return nil, err
	}

	return core.NormalizeToUSD(amount, unitDecimals, quote), nil
}

func (e *Engine) unitDecimals(unit core.Unit, entry unitEntry) (int32, error) {
	if unit == core.BaseCurrency {
		return core.BaseCurrencyDecimals, nil
	}
	decimals, err := entry.ledger.Decimals()
	if err != nil {
		return 0, fmt.Errorf("%w: reading decimals of %s: %v", ErrTransferFailed, unit, err)
	}
	return decimals, nil
}

// CreateAuction verifies the seller's ownership and transfer approval, takes
// the asset into custody, and opens the auction. Returns the new sequential
// identifier.
func (e *Engine) CreateAuction(seller core.Address, asset core.AssetRef, reserveUnit core.Unit, reserveAmount *big.Int, duration time.Duration) (id uint64, err error) {
	defer func() { observeOperation("create_auction", err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if seller.IsZero() {
		return 0, fmt.Errorf("%w: zero seller address", ErrInvalidArgument)
	}
	if asset.IsZero() {
		return 0, fmt.Errorf("%w: null asset reference", ErrInvalidArgument)
	}
	if reserveAmount == nil || reserveAmount.Sign() <= 0 {
		return 0, fmt.Errorf("%w: reserve amount must be positive", ErrInvalidArgument)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%w: duration must be positive", ErrInvalidArgument)
	}
	if _, ok := e.units[reserveUnit]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedUnit, reserveUnit)
	}

	owner, err := e.assets.OwnerOf(asset)
	if err != nil {
		return 0, fmt.Errorf("%w: owner lookup for %s: %v", ErrTransferFailed, asset, err)
	}
	if owner != seller {
		return 0, fmt.Errorf("%w: %s is not the owner of %s", ErrUnauthorized, seller, asset)
	}
	approved, err := e.assets.IsTransferApproved(asset, e.custodian)
	if err != nil {
		return 0, fmt.Errorf("%w: approval lookup for %s: %v", ErrTransferFailed, asset, err)
	}
	if !approved {
		return 0, fmt.Errorf("%w: transfer approval not granted to %s", ErrUnauthorized, e.custodian)
	}

	// Custody first: a failed transfer aborts with no auction stored.
	if err := e.assets.Transfer(asset, seller, e.custodian); err != nil {
		return 0, fmt.Errorf("%w: taking %s into custody: %v", ErrTransferFailed, asset, err)
	}

	auction := &Auction{
		Seller:        seller,
		Asset:         asset,
		StartTime:     e.now(),
		Duration:      duration,
		ReserveUnit:   reserveUnit,
		ReserveAmount: new(big.Int).Set(reserveAmount),
	}
	id = e.ledger.add(auction)

	e.recorder.append(RecordAuctionCreated, AuctionCreatedBody{
		AuctionID:     id,
		Seller:        string(seller),
		Asset:         asset.String(),
		StartTime:     auction.StartTime,
		EndTime:       auction.EndTime(),
		ReserveUnit:   string(reserveUnit),
		ReserveAmount: reserveAmount.String(),
	})
	e.logger.Info("auction created",
		zap.Uint64("auction_id", id),
		zap.String("seller", string(seller)),
		zap.String("asset", asset.String()),
	)
	return id, nil
}

// PlaceBid admits a bid if it strictly exceeds the current reference (the
// leading bid, else the reserve) in USD-normalized terms. Funds are pulled
// into custody before the ledger mutates, so a failed pull aborts with zero
// state change. The displaced leading bid, if any, is credited to its
// bidder's escrow entry for explicit withdrawal.
func (e *Engine) PlaceBid(auctionID uint64, bidder core.Address, unit core.Unit, amount, attachedValue *big.Int) (err error) {
	defer func() { observeOperation("place_bid", err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	auction, ok := e.ledger.get(auctionID)
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, auctionID)
	}
	if auction.Ended {
		return fmt.Errorf("%w: auction %d already finalized", ErrAuctionClosed, auctionID)
	}
	if now := e.now(); !auction.InWindow(now) {
		return fmt.Errorf("%w: auction %d bidding window is not open", ErrAuctionClosed, auctionID)
	}
	if bidder.IsZero() {
		return fmt.Errorf("%w: zero bidder address", ErrInvalidArgument)
	}
	if bidder == auction.Seller {
		return fmt.Errorf("%w: seller cannot bid on own auction", ErrInvalidArgument)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: bid amount must be positive", ErrInvalidArgument)
	}

	entry, ok := e.units[unit]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedUnit, unit)
	}

	attached := attachedValue
	if attached == nil {
		attached = new(big.Int)
	}
	if unit == core.BaseCurrency {
		if attached.Cmp(amount) != 0 {
			return fmt.Errorf("%w: attached value %s does not equal bid amount %s",
				ErrPaymentMismatch, attached, amount)
		}
	} else {
		if attached.Sign() != 0 {
			return fmt.Errorf("%w: token bid must not attach base-currency value", ErrPaymentMismatch)
		}
		allowance, allowErr := entry.ledger.Allowance(bidder, e.custodian)
		if allowErr != nil {
			return fmt.Errorf("%w: allowance lookup for %s: %v", ErrTransferFailed, bidder, allowErr)
		}
		if allowance.Cmp(amount) < 0 {
			return fmt.Errorf("%w: allowance %s below bid amount %s", ErrPaymentMismatch, allowance, amount)
		}
	}

	candidateUSD, err := e.toUSDLocked(unit, amount)
	if err != nil {
		return err
	}
	referenceUnit, referenceAmount := auction.ReserveUnit, auction.ReserveAmount
	if auction.HasBid() {
		referenceUnit, referenceAmount = auction.HighestUnit, auction.HighestAmount
	}
	referenceUSD, err := e.toUSDLocked(referenceUnit, referenceAmount)
	if err != nil {
		return err
	}
	// Strictly greater: an equal USD value never displaces the first bid
	// admitted at that level.
	if candidateUSD.Cmp(referenceUSD) <= 0 {
		return fmt.Errorf("%w: %s USD does not exceed reference %s USD",
			ErrBidTooLow, core.USDValue(candidateUSD), core.USDValue(referenceUSD))
	}

	// Pull the bid's funds into custody. Base-currency value is already
	// attached to the call.
	if unit != core.BaseCurrency {
		if pullErr := entry.ledger.TransferFrom(bidder, e.custodian, amount); pullErr != nil {
			return fmt.Errorf("%w: pulling %s %s from %s: %v",
				ErrTransferFailed, amount, unit, bidder, pullErr)
		}
	}

	body := BidPlacedBody{
		AuctionID: auctionID,
		Bidder:    string(bidder),
		Unit:      string(unit),
		Amount:    amount.String(),
		USDValue:  core.USDValue(candidateUSD).String(),
	}

	// Displacement, not cancellation: the previous leading bidder must
	// withdraw explicitly.
	if auction.HasBid() {
		if creditErr := e.escrow.Credit(auction.HighestBidder, auction.HighestUnit, auction.HighestAmount); creditErr != nil {
			return creditErr
		}
		body.DisplacedBidder = string(auction.HighestBidder)
		body.DisplacedUnit = string(auction.HighestUnit)
		body.DisplacedAmount = auction.HighestAmount.String()
	}

	auction.HighestBidder = bidder
	auction.HighestUnit = unit
	auction.HighestAmount = new(big.Int).Set(amount)

	e.recorder.append(RecordBidPlaced, body)
	e.logger.Info("bid placed",
		zap.Uint64("auction_id", auctionID),
		zap.String("bidder", string(bidder)),
		zap.String("unit", string(unit)),
		zap.String("amount", amount.String()),
	)
	return nil
}

// Finalize ends an auction whose window has elapsed. With a winner, the
// asset moves to the winner and the fee-deducted proceeds are paid directly
// to the seller; without one, the asset returns to the seller.
//
// The terminal flag commits before the external transfers. If a transfer
// then fails, the operation returns TransferFailed without rolling the flag
// back: the auction stays ended and cannot be re-finalized. This preserves
// the reference behavior's asymmetry; see DESIGN.md.
func (e *Engine) Finalize(auctionID uint64) (receipt api.ReceiptCOSE, err error) {
	defer func() { observeOperation("finalize", err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	auction, ok := e.ledger.get(auctionID)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, auctionID)
	}
	if auction.Ended {
		return nil, fmt.Errorf("%w: auction %d already finalized", ErrAuctionClosed, auctionID)
	}
	if now := e.now(); now.Before(auction.EndTime()) {
		return nil, fmt.Errorf("%w: auction %d bidding window has not elapsed", ErrAuctionClosed, auctionID)
	}

	// Single irreversible transition.
	auction.Ended = true

	if !auction.HasBid() {
		if transferErr := e.assets.Transfer(auction.Asset, e.custodian, auction.Seller); transferErr != nil {
			return nil, fmt.Errorf("%w: returning %s to seller: %v",
				ErrTransferFailed, auction.Asset, transferErr)
		}

		e.recorder.append(RecordAuctionFinalized, AuctionFinalizedBody{AuctionID: auctionID})
		e.logger.Info("auction finalized without winner", zap.Uint64("auction_id", auctionID))
		return e.issueReceipt(auction, nil, nil, nil)
	}

	// Clearing value is informational (v2 receipts); a broken quote at
	// finalize time must not block settlement.
	clearingUSD, quoteErr := e.toUSDLocked(auction.HighestUnit, auction.HighestAmount)
	if quoteErr != nil {
		e.logger.Debug("clearing value unavailable at finalize",
			zap.Uint64("auction_id", auctionID),
			zap.String("unit", string(auction.HighestUnit)),
			zap.Error(quoteErr),
		)
	}

	if transferErr := e.assets.Transfer(auction.Asset, e.custodian, auction.HighestBidder); transferErr != nil {
		return nil, fmt.Errorf("%w: transferring %s to winner: %v",
			ErrTransferFailed, auction.Asset, transferErr)
	}

	fee, sellerProceeds := core.SplitProceeds(auction.HighestAmount, e.feeBasisPoints)

	if payErr := e.payOutLocked(auction.HighestUnit, auction.Seller, sellerProceeds); payErr != nil {
		// Sharp edge preserved from the reference behavior: the asset has
		// already moved to the winner and stays there.
		return nil, fmt.Errorf("%w: paying seller %s: %v",
			ErrTransferFailed, auction.Seller, payErr)
	}

	accrued, ok := e.fees[auction.HighestUnit]
	if !ok {
		accrued = new(big.Int)
		e.fees[auction.HighestUnit] = accrued
	}
	accrued.Add(accrued, fee)

	e.recorder.append(RecordAuctionFinalized, AuctionFinalizedBody{
		AuctionID:      auctionID,
		Winner:         string(auction.HighestBidder),
		Unit:           string(auction.HighestUnit),
		Amount:         auction.HighestAmount.String(),
		Fee:            fee.String(),
		SellerProceeds: sellerProceeds.String(),
	})
	e.logger.Info("auction finalized",
		zap.Uint64("auction_id", auctionID),
		zap.String("winner", string(auction.HighestBidder)),
		zap.String("amount", auction.HighestAmount.String()),
		zap.String("fee", fee.String()),
	)
	return e.issueReceipt(auction, fee, sellerProceeds, clearingUSD)
}

func (e *Engine) issueReceipt(auction *Auction, fee, sellerProceeds, clearingUSD *big.Int) (api.ReceiptCOSE, error) {
	payload := e.reporter.Payload(auction, fee, sellerProceeds, clearingUSD, e.now())
	receipt, err := SignReceipt(e.keys, payload)
	if err != nil {
		// Settlement is committed and recorded; only the receipt is lost.
		return nil, fmt.Errorf("settlement committed, receipt signing failed: %w", err)
	}
	return receipt, nil
}

func (e *Engine) payOutLocked(unit core.Unit, to core.Address, amount *big.Int) error {
	if unit == core.BaseCurrency {
		return e.base.Transfer(to, amount)
	}
	entry, ok := e.units[unit]
	if !ok || entry.ledger == nil {
		return fmt.Errorf("no token ledger registered for %s", unit)
	}
	return entry.ledger.Transfer(to, amount)
}

// Withdraw pays out the caller's full escrow entry for one unit. The entry
// is zeroed before the external transfer starts, so a reentrant call
// observes zero; if the transfer fails the entry is restored and the call
// fails with TransferFailed.
func (e *Engine) Withdraw(beneficiary core.Address, unit core.Unit) (amount *big.Int, err error) {
	defer func() { observeOperation("withdraw", err) }()

	if beneficiary.IsZero() {
		return nil, fmt.Errorf("%w: zero beneficiary address", ErrInvalidArgument)
	}

	e.mu.Lock()
	var pay func(to core.Address, amount *big.Int) error
	if unit == core.BaseCurrency {
		pay = e.base.Transfer
	} else {
		entry, ok := e.units[unit]
		if !ok || entry.ledger == nil {
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedUnit, unit)
		}
		pay = entry.ledger.Transfer
	}
	e.mu.Unlock()

	amount, err = e.escrow.take(beneficiary, unit)
	if err != nil {
		return nil, err
	}

	if payErr := pay(beneficiary, amount); payErr != nil {
		e.escrow.restore(beneficiary, unit, amount)
		return nil, fmt.Errorf("%w: paying out %s %s to %s: %v",
			ErrTransferFailed, amount, unit, beneficiary, payErr)
	}

	e.recorder.append(RecordFundsWithdrawn, FundsWithdrawnBody{
		Beneficiary: string(beneficiary),
		Unit:        string(unit),
		Amount:      amount.String(),
	})
	e.logger.Info("funds withdrawn",
		zap.String("beneficiary", string(beneficiary)),
		zap.String("unit", string(unit)),
		zap.String("amount", amount.String()),
	)
	return amount, nil
}

// SweepFees pays the accrued platform fees of one unit to a destination.
// Owner only.
func (e *Engine) SweepFees(caller core.Address, unit core.Unit, to core.Address) (amount *big.Int, err error) {
	defer func() { observeOperation("sweep_fees", err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return nil, fmt.Errorf("%w: only the owner can sweep fees", ErrUnauthorized)
	}
	if to.IsZero() {
		return nil, fmt.Errorf("%w: zero destination address", ErrInvalidArgument)
	}

	accrued, ok := e.fees[unit]
	if !ok || accrued.Sign() == 0 {
		return nil, fmt.Errorf("%w: no fees accrued in %s", ErrNothingToWithdraw, unit)
	}

	amount = new(big.Int).Set(accrued)
	delete(e.fees, unit)

	if payErr := e.payOutLocked(unit, to, amount); payErr != nil {
		e.fees[unit] = amount
		return nil, fmt.Errorf("%w: sweeping %s %s: %v", ErrTransferFailed, amount, unit, payErr)
	}

	e.recorder.append(RecordFeesSwept, FeesSweptBody{
		Unit:   string(unit),
		Amount: amount.String(),
		To:     string(to),
	})
	return amount, nil
}

// Auction returns a snapshot of an auction record for audit reads.
func (e *Engine) Auction(id uint64) (Auction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, ok := e.ledger.get(id)
	if !ok {
		return Auction{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return auction.snapshot(), nil
}

// EscrowBalance returns a beneficiary's withdrawable balance for one unit.
func (e *Engine) EscrowBalance(beneficiary core.Address, unit core.Unit) *big.Int {
	return e.escrow.Balance(beneficiary, unit)
}

// AccruedFees returns the retained platform fees for one unit.
func (e *Engine) AccruedFees(unit core.Unit) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	accrued, ok := e.fees[unit]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(accrued)
}
