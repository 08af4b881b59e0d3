package engine

import (
	"math/big"
	"time"

	"github.com/clearbid-io/clearbid/core"
)

// Auction is one single-item auction record. Records are never deleted:
// terminal state is retained for audit reads.
//
// Seller, Asset, StartTime, Duration and the reserve fields are immutable
// after creation. The leading-bid fields mutate only through an admitted bid
// and improve monotonically in USD-normalized terms. Ended flips to true
// exactly once, at finalization.
type Auction struct {
	ID            uint64
	Seller        core.Address
	Asset         core.AssetRef
	StartTime     time.Time
	Duration      time.Duration
	Ended         bool
	ReserveUnit   core.Unit
	ReserveAmount *big.Int
	HighestBidder core.Address
	HighestUnit   core.Unit
	HighestAmount *big.Int
}

// HasBid reports whether a leading bid exists.
func (a *Auction) HasBid() bool {
	return !a.HighestBidder.IsZero()
}

// EndTime is the exclusive end of the bidding window [StartTime, EndTime).
func (a *Auction) EndTime() time.Time {
	return a.StartTime.Add(a.Duration)
}

// InWindow reports whether t falls inside the bidding window.
func (a *Auction) InWindow(t time.Time) bool {
	return !t.Before(a.StartTime) && t.Before(a.EndTime())
}

// snapshot copies the record for audit reads outside the engine lock.
func (a *Auction) snapshot() Auction {
	s := *a
	s.ReserveAmount = new(big.Int).Set(a.ReserveAmount)
	if a.HighestAmount != nil {
		s.HighestAmount = new(big.Int).Set(a.HighestAmount)
	}
	return s
}

// auctionLedger owns the auction records and the sequential identifier
// allocator. Identifiers start at 1 and are never reused.
type auctionLedger struct {
	nextID   uint64
	auctions map[uint64]*Auction
}

func newAuctionLedger() *auctionLedger {
	return &auctionLedger{
		nextID:   1,
		auctions: make(map[uint64]*Auction),
	}
}

func (l *auctionLedger) add(a *Auction) uint64 {
	a.ID = l.nextID
	l.nextID++
	l.auctions[a.ID] = a
	return a.ID
}

func (l *auctionLedger) get(id uint64) (*Auction, bool) {
	a, ok := l.auctions[id]
	return a, ok
}
