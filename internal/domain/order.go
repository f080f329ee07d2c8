package domain

import "github.com/shopspring/decimal"

// Side is the order side, using the venue's wire values.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderRequest describes a limit order to be placed through the execution
// gateway. ClientOrderID is optional; when set it is forwarded to the venue
// for idempotent identification.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Qty           decimal.Decimal
	Price         decimal.Decimal
	ClientOrderID string
}

// OrderAck is the venue's acknowledgement of a successful placement.
type OrderAck struct {
	OrderID       string
	ClientOrderID string
}

// ActiveOrder is one of the quoter's own resting orders. At most one exists
// per side at any time; it is owned exclusively by the repricing engine and
// is not persisted across process restarts.
type ActiveOrder struct {
	OrderID       string
	ClientOrderID string
	Side          Side
	Price         decimal.Decimal
	Qty           decimal.Decimal
}

// Credentials are the venue API credentials for one bot run.
type Credentials struct {
	APIKey    string
	SecretKey string
}
