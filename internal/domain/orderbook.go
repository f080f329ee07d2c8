package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single price+quantity entry in an order book.
type PriceLevel struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Notional returns price × quantity in quote currency.
func (l PriceLevel) Notional() decimal.Decimal {
	return l.Price.Mul(l.Qty)
}

// BookSnapshot is a point-in-time copy of the live order book state for one
// symbol. Bids are ordered highest price first, asks lowest price first.
// Ready is false until the feed has delivered at least one best bid and one
// best ask; the best-price fields are zero until then.
type BookSnapshot struct {
	Symbol     string
	BestBid    decimal.Decimal
	BestAsk    decimal.Decimal
	BestBidQty decimal.Decimal
	BestAskQty decimal.Decimal
	Bids       []PriceLevel
	Asks       []PriceLevel
	Ready      bool
	UpdatedAt  time.Time
}

// Spread returns best ask minus best bid. Only meaningful when Ready.
func (s BookSnapshot) Spread() decimal.Decimal {
	return s.BestAsk.Sub(s.BestBid)
}

// MidPrice returns the midpoint of the best bid and ask. Only meaningful
// when Ready.
func (s BookSnapshot) MidPrice() decimal.Decimal {
	return s.BestBid.Add(s.BestAsk).Div(decimal.NewFromInt(2))
}

// BookEvent is a typed market-data event pulled from the feed by a single
// consumer. The two concrete kinds are TickerEvent and DepthEvent.
type BookEvent interface {
	EventSymbol() string
}

// TickerEvent carries a best bid/ask update from the ticker channel.
type TickerEvent struct {
	Symbol     string
	BidPrice   decimal.Decimal
	BidQty     decimal.Decimal
	AskPrice   decimal.Decimal
	AskQty     decimal.Decimal
	ReceivedAt time.Time
}

// EventSymbol returns the symbol the ticker update applies to.
func (e TickerEvent) EventSymbol() string { return e.Symbol }

// DepthEvent carries a full fixed-depth snapshot from the depth channel.
// It replaces the entire book sides; it is not a differential update.
type DepthEvent struct {
	Symbol     string
	Bids       []PriceLevel
	Asks       []PriceLevel
	ReceivedAt time.Time
}

// EventSymbol returns the symbol the depth snapshot applies to.
func (e DepthEvent) EventSymbol() string { return e.Symbol }
