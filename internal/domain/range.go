package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceRange is an operator-configured inclusive price band. Every order the
// quoter places on the corresponding side must have a price inside it.
type PriceRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Validate checks that Min < Max.
func (r PriceRange) Validate() error {
	if !r.Min.LessThan(r.Max) {
		return fmt.Errorf("%w: min %s must be below max %s", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

// Clamp returns p limited to [Min, Max].
func (r PriceRange) Clamp(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(r.Min) {
		return r.Min
	}
	if p.GreaterThan(r.Max) {
		return r.Max
	}
	return p
}

// Contains reports whether p lies inside [Min, Max].
func (r PriceRange) Contains(p decimal.Decimal) bool {
	return p.GreaterThanOrEqual(r.Min) && p.LessThanOrEqual(r.Max)
}

// String renders the range as "min-max", matching the control-plane response
// format.
func (r PriceRange) String() string {
	return r.Min.String() + "-" + r.Max.String()
}

// RunParams are the per-run quoting parameters accepted by the control plane.
// They are fixed for the lifetime of a bot run.
type RunParams struct {
	Symbol    string
	BuyQty    decimal.Decimal
	SellQty   decimal.Decimal
	BuyRange  PriceRange
	SellRange PriceRange

	// MinCompetitorNotional is the minimum price×quantity, in quote
	// currency, a competing resting order must have before the quoter
	// reacts to it.
	MinCompetitorNotional decimal.Decimal
}

// Validate checks the run parameters before any network activity: both
// ranges must be well formed, the buy band must sit strictly below the sell
// band, and quantities must be positive.
func (p RunParams) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("%w: symbol must not be empty", ErrInvalidParams)
	}
	if !p.BuyQty.IsPositive() {
		return fmt.Errorf("%w: buy quantity must be positive", ErrInvalidParams)
	}
	if !p.SellQty.IsPositive() {
		return fmt.Errorf("%w: sell quantity must be positive", ErrInvalidParams)
	}
	if err := p.BuyRange.Validate(); err != nil {
		return fmt.Errorf("buy range: %w", err)
	}
	if err := p.SellRange.Validate(); err != nil {
		return fmt.Errorf("sell range: %w", err)
	}
	if p.BuyRange.Max.GreaterThanOrEqual(p.SellRange.Min) {
		return fmt.Errorf("%w: buy max %s must be below sell min %s",
			ErrRangesOverlap, p.BuyRange.Max, p.SellRange.Min)
	}
	if p.MinCompetitorNotional.IsNegative() {
		return fmt.Errorf("%w: min competitor notional must not be negative", ErrInvalidParams)
	}
	return nil
}
