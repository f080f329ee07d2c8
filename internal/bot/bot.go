// Package bot runs the quoting loop for one symbol: it consumes market-data
// events into the live book, drives the repricing engine on a fixed cadence,
// and manages the start/stop lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/mexcquoter/internal/book"
	"github.com/alanyoungcy/mexcquoter/internal/domain"
	"github.com/alanyoungcy/mexcquoter/internal/quoter"
)

const (
	// tickInterval is the repricing cadence.
	tickInterval = 100 * time.Millisecond

	// tickRetryDelay backs off after a failed repricing pass.
	tickRetryDelay = 1 * time.Second

	// bookStaleAfter suppresses repricing when no market data has arrived
	// for this long; quoting against a dead feed is worse than not quoting.
	bookStaleAfter = 5 * time.Second
)

// State is the bot lifecycle state.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Status is a point-in-time summary of the bot for the control plane.
type Status struct {
	State        State
	Symbol       string
	BuyRange     domain.PriceRange
	SellRange    domain.PriceRange
	BuyOrder     *domain.ActiveOrder
	SellOrder    *domain.ActiveOrder
	InitialPrice decimal.Decimal
	BestBid      decimal.Decimal
	BestAsk      decimal.Decimal
	BidLevels    int
	AskLevels    int
	BookReady    bool
	StartedAt    time.Time
}

// Bot quotes one symbol. It owns the live book, the repricing engine, and
// the two goroutines that feed them. A Bot is single-use: once stopped it
// stays stopped, and a fresh Bot is built for the next run.
type Bot struct {
	params domain.RunParams
	feed   domain.MarketFeed
	engine *quoter.Engine
	book   *book.Book
	mirror domain.BookMirror
	logger *slog.Logger

	mu           sync.Mutex
	state        State
	cancel       context.CancelFunc
	g            *errgroup.Group
	initialPrice decimal.Decimal
	startedAt    time.Time
}

// New assembles a Bot. mirror may be nil when no external cache is
// configured.
func New(params domain.RunParams, feed domain.MarketFeed, gateway domain.ExecutionGateway, mirror domain.BookMirror, logger *slog.Logger) *Bot {
	lg := logger.With(
		slog.String("component", "bot"),
		slog.String("symbol", params.Symbol),
	)
	bk := book.New(params.Symbol)
	return &Bot{
		params: params,
		feed:   feed,
		engine: quoter.NewEngine(params, gateway, bk, bookStaleAfter, logger),
		book:   bk,
		mirror: mirror,
		logger: lg,
		state:  StateStopped,
	}
}

// Start connects the market-data feed, subscribes to the symbol, and starts
// the consumer and tick goroutines. A connect or subscribe failure leaves
// the bot stopped and is returned to the caller; failures after that point
// are recoverable and handled inside the run loops.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateStopped {
		b.mu.Unlock()
		return fmt.Errorf("bot: start: %w (state %s)", domain.ErrBotRunning, b.state)
	}
	b.state = StateStarting
	b.mu.Unlock()

	if err := b.feed.Connect(ctx); err != nil {
		b.setState(StateStopped)
		return fmt.Errorf("bot: connect feed: %w", err)
	}
	if err := b.feed.Subscribe(ctx, b.params.Symbol); err != nil {
		_ = b.feed.Close()
		b.setState(StateStopped)
		return fmt.Errorf("bot: subscribe %s: %w", b.params.Symbol, err)
	}

	// The run context is detached from the caller's: the bot outlives the
	// HTTP request that started it.
	runCtx, cancel := context.WithCancel(context.Background())
	g, runCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return b.consumeEvents(runCtx)
	})
	g.Go(func() error {
		return b.tickLoop(runCtx)
	})

	b.mu.Lock()
	b.cancel = cancel
	b.g = g
	b.state = StateRunning
	b.startedAt = time.Now()
	b.mu.Unlock()

	b.logger.Info("bot started",
		slog.String("buy_range", b.params.BuyRange.String()),
		slog.String("sell_range", b.params.SellRange.String()),
	)
	return nil
}

// Stop cancels the run loops, closes the feed, and best-effort cancels both
// resting orders. It is idempotent; stopping a stopped bot succeeds. A stop
// that races an in-flight Start is refused rather than silently skipped;
// the Manager serializes the two, so callers going through it never see
// that error.
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.state == StateStarting {
		b.mu.Unlock()
		return fmt.Errorf("bot: stop: start in progress")
	}
	if b.state != StateRunning {
		b.mu.Unlock()
		return nil
	}
	b.state = StateStopping
	cancel := b.cancel
	g := b.g
	b.mu.Unlock()

	cancel()
	if err := b.feed.Close(); err != nil {
		b.logger.Warn("feed close failed", slog.String("error", err.Error()))
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Warn("run loop exited with error", slog.String("error", err.Error()))
	}

	b.engine.CancelAll(ctx)

	b.setState(StateStopped)
	b.logger.Info("bot stopped")
	return nil
}

// State returns the current lifecycle state.
func (b *Bot) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Status returns a point-in-time summary for the control plane.
func (b *Bot) Status() Status {
	b.mu.Lock()
	state := b.state
	initial := b.initialPrice
	started := b.startedAt
	b.mu.Unlock()

	buy, sell := b.engine.Orders()
	snap := b.book.Snapshot()

	return Status{
		State:        state,
		Symbol:       b.params.Symbol,
		BuyRange:     b.params.BuyRange,
		SellRange:    b.params.SellRange,
		BuyOrder:     buy,
		SellOrder:    sell,
		InitialPrice: initial,
		BestBid:      snap.BestBid,
		BestAsk:      snap.BestAsk,
		BidLevels:    len(snap.Bids),
		AskLevels:    len(snap.Asks),
		BookReady:    snap.Ready,
		StartedAt:    started,
	}
}

// --------------------------------------------------------------------------
// Run loops
// --------------------------------------------------------------------------

// consumeEvents is the single consumer of the feed's event channel. It
// applies each event to the book, records the first observed mid price, and
// mirrors the book to the external cache when one is configured.
func (b *Bot) consumeEvents(ctx context.Context) error {
	events := b.feed.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.EventSymbol() != b.params.Symbol {
				continue
			}

			switch e := ev.(type) {
			case domain.TickerEvent:
				b.book.ApplyTicker(e)
				if b.mirror != nil {
					if err := b.mirror.PublishBBO(ctx, b.book.Snapshot()); err != nil {
						b.logger.Debug("mirror bbo publish failed", slog.String("error", err.Error()))
					}
				}
			case domain.DepthEvent:
				b.book.ApplyDepth(e)
				if b.mirror != nil {
					if err := b.mirror.PublishDepth(ctx, b.book.Snapshot()); err != nil {
						b.logger.Debug("mirror depth publish failed", slog.String("error", err.Error()))
					}
				}
			}

			b.recordInitialPrice()
		}
	}
}

// recordInitialPrice captures the mid price the first time the book becomes
// ready. It is the reference point operators compare quoting drift against.
func (b *Bot) recordInitialPrice() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialPrice.IsZero() {
		return
	}
	snap := b.book.Snapshot()
	if !snap.Ready {
		return
	}
	b.initialPrice = snap.MidPrice()
	b.logger.Info("initial price recorded", slog.String("price", b.initialPrice.String()))
}

// tickLoop drives the repricing engine on a fixed cadence. Tick errors are
// recoverable: they are logged and the loop backs off briefly before the
// next attempt recomputes everything from fresh book state.
func (b *Bot) tickLoop(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.engine.Tick(ctx); err != nil {
				b.logger.Error("repricing tick failed", slog.String("error", err.Error()))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(tickRetryDelay):
				}
			}
		}
	}
}

func (b *Bot) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}
