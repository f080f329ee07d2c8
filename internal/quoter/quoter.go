// Package quoter implements the competitive repricing engine: on each tick
// it inspects the live order book and the quoter's own resting orders,
// decides whether a side needs requoting, and issues cancel+place through
// the execution gateway. All computed prices stay inside the operator's
// price bands.
package quoter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/mexcquoter/internal/domain"
)

var (
	// priceIncrement is the nudge applied to sit one tick in front of the
	// best price when quoting inside the band.
	priceIncrement = decimal.RequireFromString("0.00001")

	// buyBeatMultiplier prices a buy 0.005% above a qualifying competitor.
	buyBeatMultiplier = decimal.RequireFromString("1.00005")

	// sellBeatMultiplier prices a sell 0.005% below a qualifying competitor.
	sellBeatMultiplier = decimal.RequireFromString("0.99995")

	// updateThreshold is the hysteresis band: an existing order is only
	// replaced when the new target differs by more than this, which keeps
	// sub-tick noise from churning cancel/replace pairs.
	updateThreshold = decimal.RequireFromString("0.000005")
)

// defaultSellBackoff pauses sell-side placement after an insufficient
// balance rejection.
const defaultSellBackoff = 30 * time.Second

// BookReader provides the engine's read-only view of the live book.
type BookReader interface {
	Snapshot() domain.BookSnapshot
	Stale(maxAge time.Duration) bool
}

// Engine is the repricing engine for one symbol. It owns the current buy and
// sell orders; nothing else mutates them. Gateway calls within one tick are
// sequential, so the engine never has overlapping cancel/place pairs in
// flight for the same side.
type Engine struct {
	params  domain.RunParams
	gateway domain.ExecutionGateway
	book    BookReader
	logger  *slog.Logger

	// staleAfter suppresses repricing when the book has not been written
	// for this long; zero disables the check.
	staleAfter time.Duration

	sellBackoff time.Duration

	mu              sync.Mutex
	buy             *domain.ActiveOrder
	sell            *domain.ActiveOrder
	sellPausedUntil time.Time

	now func() time.Time // test hook
}

// NewEngine creates an Engine. staleAfter bounds how old the book may be
// before ticks become no-ops; pass zero to disable the staleness check.
func NewEngine(params domain.RunParams, gateway domain.ExecutionGateway, book BookReader, staleAfter time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		params:      params,
		gateway:     gateway,
		book:        book,
		staleAfter:  staleAfter,
		sellBackoff: defaultSellBackoff,
		logger:      logger.With(slog.String("component", "quoter")),
		now:         time.Now,
	}
}

// Orders returns copies of the current buy and sell orders; nil means no
// order is resting on that side.
func (e *Engine) Orders() (buy, sell *domain.ActiveOrder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buy != nil {
		b := *e.buy
		buy = &b
	}
	if e.sell != nil {
		s := *e.sell
		sell = &s
	}
	return buy, sell
}

// Tick runs one repricing pass: buy side first, then sell side. It is a
// no-op until the book has both a best bid and a best ask, and while the
// book is stale. Errors are recoverable; the caller logs them and retries
// on a later tick with a fresh computation.
func (e *Engine) Tick(ctx context.Context) error {
	if e.staleAfter > 0 && e.book.Stale(e.staleAfter) {
		e.logger.Debug("book stale, skipping tick")
		return nil
	}

	snap := e.book.Snapshot()
	if !snap.Ready {
		return nil
	}

	if err := e.tickBuy(ctx, snap); err != nil {
		return err
	}
	return e.tickSell(ctx, snap)
}

// CancelAll best-effort cancels both resting orders and clears them. Cancel
// failures are logged and swallowed: stopping must always succeed.
func (e *Engine) CancelAll(ctx context.Context) {
	e.mu.Lock()
	buy, sell := e.buy, e.sell
	e.buy, e.sell = nil, nil
	e.mu.Unlock()

	for _, ord := range []*domain.ActiveOrder{buy, sell} {
		if ord == nil {
			continue
		}
		if err := e.gateway.CancelOrder(ctx, e.params.Symbol, ord.OrderID); err != nil {
			e.logger.Warn("cancel on shutdown failed",
				slog.String("side", string(ord.Side)),
				slog.String("order_id", ord.OrderID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// --------------------------------------------------------------------------
// Buy side
// --------------------------------------------------------------------------

func (e *Engine) tickBuy(ctx context.Context, snap domain.BookSnapshot) error {
	e.mu.Lock()
	current := e.buy
	e.mu.Unlock()

	target, quote := decideBuy(snap, current, e.params.BuyRange, e.params.MinCompetitorNotional)
	if !quote {
		return nil
	}

	if current != nil && target.Sub(current.Price).Abs().LessThanOrEqual(updateThreshold) {
		return nil
	}

	return e.replace(ctx, domain.SideBuy, current, target, e.params.BuyQty)
}

// decideBuy computes the buy-side target price for the given book and
// current order. It returns quote=false when the existing order is already
// competitively positioned and nothing needs to change.
//
// The returned target always lies inside r.
func decideBuy(snap domain.BookSnapshot, current *domain.ActiveOrder, r domain.PriceRange, minNotional decimal.Decimal) (decimal.Decimal, bool) {
	// Baseline: best bid clamped into the band; when already inside,
	// nudge one increment above it to sit at the front of the queue.
	var target decimal.Decimal
	switch {
	case snap.BestBid.LessThan(r.Min):
		target = r.Min
	case snap.BestBid.GreaterThan(r.Max):
		target = r.Max
	default:
		target = snap.BestBid.Add(priceIncrement)
	}

	if current != nil {
		found := false
		for _, lvl := range snap.Bids {
			if !lvl.Price.GreaterThan(current.Price) || !r.Contains(lvl.Price) {
				continue
			}
			if lvl.Notional().LessThan(minNotional) {
				// Dust-sized competitor, keep scanning.
				continue
			}
			beat := lvl.Price.Mul(buyBeatMultiplier)
			if beat.GreaterThan(r.Max) {
				// Competitor sits too close to the band edge; settle
				// at the edge rather than abandon repositioning.
				target = r.Max
			} else {
				target = beat
			}
			found = true
			break
		}

		if !found {
			if current.Price.LessThan(snap.BestBid) && snap.BestBid.LessThanOrEqual(r.Max) {
				target = decimal.Min(snap.BestBid.Add(priceIncrement), r.Max)
			} else {
				// Already at or above the best bid within the band.
				return decimal.Decimal{}, false
			}
		}
	}

	return r.Clamp(target), true
}

// --------------------------------------------------------------------------
// Sell side
// --------------------------------------------------------------------------

func (e *Engine) tickSell(ctx context.Context, snap domain.BookSnapshot) error {
	e.mu.Lock()
	buy := e.buy
	current := e.sell
	paused := e.now().Before(e.sellPausedUntil)
	e.mu.Unlock()

	// Never quote sell size without an active buy; the balance to sell
	// does not exist yet.
	if buy == nil {
		return nil
	}
	if paused {
		return nil
	}

	target, quote := decideSell(snap, current, e.params.SellRange, e.params.MinCompetitorNotional)
	if !quote {
		return nil
	}

	if current != nil && target.Sub(current.Price).Abs().LessThanOrEqual(updateThreshold) {
		return nil
	}

	err := e.replace(ctx, domain.SideSell, current, target, e.params.SellQty)
	if err != nil && domain.IsInsufficientBalance(err) {
		e.mu.Lock()
		e.sellPausedUntil = e.now().Add(e.sellBackoff)
		e.mu.Unlock()
		e.logger.Warn("insufficient balance, pausing sell side",
			slog.Duration("backoff", e.sellBackoff),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return err
}

// decideSell mirrors decideBuy with all comparisons inverted: competitors
// sit below our price, beating one moves the target down, and clamping pulls
// toward the band's lower edge.
func decideSell(snap domain.BookSnapshot, current *domain.ActiveOrder, r domain.PriceRange, minNotional decimal.Decimal) (decimal.Decimal, bool) {
	var target decimal.Decimal
	switch {
	case snap.BestAsk.GreaterThan(r.Max):
		target = r.Max
	case snap.BestAsk.LessThan(r.Min):
		target = r.Min
	default:
		target = snap.BestAsk.Sub(priceIncrement)
	}

	if current != nil {
		found := false
		for _, lvl := range snap.Asks {
			if !lvl.Price.LessThan(current.Price) || !r.Contains(lvl.Price) {
				continue
			}
			if lvl.Notional().LessThan(minNotional) {
				continue
			}
			beat := lvl.Price.Mul(sellBeatMultiplier)
			if beat.LessThan(r.Min) {
				target = r.Min
			} else {
				target = beat
			}
			found = true
			break
		}

		if !found {
			if current.Price.GreaterThan(snap.BestAsk) && snap.BestAsk.GreaterThanOrEqual(r.Min) {
				target = decimal.Max(snap.BestAsk.Sub(priceIncrement), r.Min)
			} else {
				// Already at or below the best ask within the band.
				return decimal.Decimal{}, false
			}
		}
	}

	return r.Clamp(target), true
}

// --------------------------------------------------------------------------
// Cancel + place
// --------------------------------------------------------------------------

// replace cancels the existing order on one side (best-effort) and places a
// new one at target. The current-order slot is cleared before the place call
// so a placement failure never leaves it pointing at stale state.
func (e *Engine) replace(ctx context.Context, side domain.Side, current *domain.ActiveOrder, target, qty decimal.Decimal) error {
	if current != nil {
		if err := e.gateway.CancelOrder(ctx, e.params.Symbol, current.OrderID); err != nil {
			// Non-fatal: proceed to place. Until the venue reaps the old
			// order this can transiently leave two resting orders on the
			// side.
			e.logger.Warn("cancel before replace failed",
				slog.String("side", string(side)),
				slog.String("order_id", current.OrderID),
				slog.String("error", err.Error()),
			)
		}
		e.setOrder(side, nil)
	}

	req := domain.OrderRequest{
		Symbol:        e.params.Symbol,
		Side:          side,
		Qty:           qty,
		Price:         target,
		ClientOrderID: uuid.NewString(),
	}
	ack, err := e.gateway.PlaceOrder(ctx, req)
	if err != nil {
		return fmt.Errorf("quoter: place %s: %w", side, err)
	}

	e.setOrder(side, &domain.ActiveOrder{
		OrderID:       ack.OrderID,
		ClientOrderID: ack.ClientOrderID,
		Side:          side,
		Price:         target,
		Qty:           qty,
	})

	e.logger.Info("order placed",
		slog.String("side", string(side)),
		slog.String("price", target.String()),
		slog.String("qty", qty.String()),
		slog.String("order_id", ack.OrderID),
	)
	return nil
}

func (e *Engine) setOrder(side domain.Side, ord *domain.ActiveOrder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if side == domain.SideBuy {
		e.buy = ord
	} else {
		e.sell = ord
	}
}
