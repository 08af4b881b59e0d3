package engine

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clearbid-io/clearbid/core"
)

// RecordKind discriminates audit records.
type RecordKind string

const (
	RecordQuoteSourceRegistered RecordKind = "quote_source_registered"
	RecordAuctionCreated        RecordKind = "auction_created"
	RecordBidPlaced             RecordKind = "bid_placed"
	RecordAuctionFinalized      RecordKind = "auction_finalized"
	RecordFundsWithdrawn        RecordKind = "funds_withdrawn"
	RecordFeesSwept             RecordKind = "fees_swept"
)

// Record is one entry of the append-only audit log. Each record carries a
// digest chaining it to its predecessor, so consumers can detect truncation
// or rewriting.
type Record struct {
	ID        string     `json:"id"`
	Kind      RecordKind `json:"kind"`
	Timestamp time.Time  `json:"timestamp"`
	Digest    string     `json:"digest"`
	Body      any        `json:"body"`
}

// Record bodies. Amounts are decimal strings at the unit's native scale;
// USD values are 6-decimal strings.

type QuoteSourceRegisteredBody struct {
	Unit          string `json:"unit"`
	QuoteDecimals int32  `json:"quote_decimals"`

	// QuoteUnavailable marks a source that could not report a price at
	// registration time; QuoteDecimals is meaningless when set.
	QuoteUnavailable bool `json:"quote_unavailable,omitempty"`
}

type AuctionCreatedBody struct {
	AuctionID     uint64    `json:"auction_id"`
	Seller        string    `json:"seller"`
	Asset         string    `json:"asset"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	ReserveUnit   string    `json:"reserve_unit"`
	ReserveAmount string    `json:"reserve_amount"`
}

type BidPlacedBody struct {
	AuctionID uint64 `json:"auction_id"`
	Bidder    string `json:"bidder"`
	Unit      string `json:"unit"`
	Amount    string `json:"amount"`
	USDValue  string `json:"usd_value"`

	// Displaced identifies the previous leading bid pushed into escrow,
	// if one existed.
	DisplacedBidder string `json:"displaced_bidder,omitempty"`
	DisplacedUnit   string `json:"displaced_unit,omitempty"`
	DisplacedAmount string `json:"displaced_amount,omitempty"`
}

type AuctionFinalizedBody struct {
	AuctionID      uint64 `json:"auction_id"`
	Winner         string `json:"winner,omitempty"` // empty = no winner
	Unit           string `json:"unit,omitempty"`
	Amount         string `json:"amount,omitempty"`
	Fee            string `json:"fee,omitempty"`
	SellerProceeds string `json:"seller_proceeds,omitempty"`
}

type FundsWithdrawnBody struct {
	Beneficiary string `json:"beneficiary"`
	Unit        string `json:"unit"`
	Amount      string `json:"amount"`
}

type FeesSweptBody struct {
	Unit   string `json:"unit"`
	Amount string `json:"amount"`
	To     string `json:"to"`
}

// Recorder is the append-only audit log. Records are appended exactly once
// per successful operation and never on failure.
type Recorder struct {
	mu        sync.Mutex
	records   []Record
	tipDigest string
	logger    *zap.Logger
	now       func() time.Time
}

// NewRecorder returns an empty recorder logging through the given logger.
func NewRecorder(logger *zap.Logger, now func() time.Time) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Recorder{logger: logger, now: now}
}

// append stores a record and chains its digest to the log tip.
func (r *Recorder) append(kind RecordKind, body any) Record {
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		// Record bodies are engine-owned structs; a marshal failure is a
		// programmer error.
		panic(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record := Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: r.now(),
		Digest:    computeDigest(r.tipDigest, kind, bodyJSON),
		Body:      body,
	}
	r.records = append(r.records, record)
	r.tipDigest = record.Digest

	r.logger.Info("audit record",
		zap.String("kind", string(kind)),
		zap.String("record_id", record.ID),
		zap.Any("body", body),
	)

	return record
}

// Records returns a snapshot copy of the log for indexers.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// TipDigest returns the digest of the latest record, or "" for an empty log.
func (r *Recorder) TipDigest() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tipDigest
}

func computeDigest(prev string, kind RecordKind, bodyJSON []byte) string {
	return core.ComputeRecordDigest(prev, string(kind), string(bodyJSON))
}
