// Package book holds the in-memory live order book for one symbol. It is
// written by the market-data feed consumer and read by the repricing engine.
package book

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/mexcquoter/internal/domain"
)

// Book is the mutable order book state for a single symbol. Ticker updates
// overwrite the best bid/ask fields last-write-wins; depth snapshots replace
// the level slices wholesale. There is no differential merging and no
// sequence-number validation against the venue; messages are applied in
// arrival order.
type Book struct {
	mu     sync.RWMutex
	symbol string

	bestBid    decimalOpt
	bestAsk    decimalOpt
	bestBidQty decimalOpt
	bestAskQty decimalOpt

	bids []domain.PriceLevel
	asks []domain.PriceLevel

	updatedAt time.Time

	now func() time.Time // test hook
}

// decimalOpt is a decimal that knows whether it has been set; the best-price
// fields have no meaningful zero value before the first ticker arrives.
type decimalOpt struct {
	val decimal.Decimal
	set bool
}

// New creates an empty Book for the given symbol.
func New(symbol string) *Book {
	return &Book{
		symbol: symbol,
		now:    time.Now,
	}
}

// Symbol returns the symbol this book tracks.
func (b *Book) Symbol() string { return b.symbol }

// ApplyTicker overwrites the best bid/ask and their quantities with the
// latest ticker values.
func (b *Book) ApplyTicker(ev domain.TickerEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bestBid = decimalOpt{ev.BidPrice, true}
	b.bestBidQty = decimalOpt{ev.BidQty, true}
	b.bestAsk = decimalOpt{ev.AskPrice, true}
	b.bestAskQty = decimalOpt{ev.AskQty, true}
	b.updatedAt = b.now()
}

// ApplyDepth replaces both sides of the book with the snapshot's levels.
func (b *Book) ApplyDepth(ev domain.DepthEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = ev.Bids
	b.asks = ev.Asks
	b.updatedAt = b.now()
}

// Ready reports whether both a best bid and a best ask have been seen.
func (b *Book) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestBid.set && b.bestAsk.set
}

// Stale reports whether the book has gone maxAge without any feed write.
// A book that has never been written is stale.
func (b *Book) Stale(maxAge time.Duration) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.updatedAt.IsZero() {
		return true
	}
	return b.now().Sub(b.updatedAt) > maxAge
}

// Snapshot returns a point-in-time copy of the book. The level slices are
// copied so callers can hold them across subsequent feed writes.
func (b *Book) Snapshot() domain.BookSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := domain.BookSnapshot{
		Symbol:    b.symbol,
		Ready:     b.bestBid.set && b.bestAsk.set,
		UpdatedAt: b.updatedAt,
	}
	if b.bestBid.set {
		snap.BestBid = b.bestBid.val
		snap.BestBidQty = b.bestBidQty.val
	}
	if b.bestAsk.set {
		snap.BestAsk = b.bestAsk.val
		snap.BestAskQty = b.bestAskQty.val
	}

	snap.Bids = make([]domain.PriceLevel, len(b.bids))
	copy(snap.Bids, b.bids)
	snap.Asks = make([]domain.PriceLevel, len(b.asks))
	copy(snap.Asks, b.asks)

	return snap
}
