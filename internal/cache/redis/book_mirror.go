package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/mexcquoter/internal/domain"
)

// mirrorTTL expires mirrored book keys so a crashed bot never leaves stale
// prices behind for dashboards to trust.
const mirrorTTL = 30 * time.Second

// BookMirror implements domain.BookMirror on Redis.
//
// Key schema:
//
//	quoter:book:{symbol}:bbo    - hash with "bid", "ask", "bid_qty", "ask_qty", "ts"
//	quoter:book:{symbol}:depth  - JSON document with full bid/ask levels
type BookMirror struct {
	rdb *redis.Client
}

// NewBookMirror creates a BookMirror backed by the given Client.
func NewBookMirror(c *Client) *BookMirror {
	return &BookMirror{rdb: c.Underlying()}
}

func bboKey(symbol string) string   { return "quoter:book:" + symbol + ":bbo" }
func depthKey(symbol string) string { return "quoter:book:" + symbol + ":depth" }

// PublishBBO writes the best bid/ask fields for the snapshot's symbol.
func (m *BookMirror) PublishBBO(ctx context.Context, snap domain.BookSnapshot) error {
	if !snap.Ready {
		return nil
	}

	key := bboKey(snap.Symbol)
	pipe := m.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"bid", snap.BestBid.String(),
		"ask", snap.BestAsk.String(),
		"bid_qty", snap.BestBidQty.String(),
		"ask_qty", snap.BestAskQty.String(),
		"ts", strconv.FormatInt(snap.UpdatedAt.UnixMilli(), 10),
	)
	pipe.Expire(ctx, key, mirrorTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish bbo %s: %w", snap.Symbol, err)
	}
	return nil
}

// mirrorLevel is the wire form of one book level in the depth document.
type mirrorLevel struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

type mirrorDepth struct {
	Symbol    string        `json:"symbol"`
	Bids      []mirrorLevel `json:"bids"`
	Asks      []mirrorLevel `json:"asks"`
	UpdatedAt int64         `json:"updated_at_ms"`
}

// PublishDepth writes the full depth snapshot as a single JSON document.
func (m *BookMirror) PublishDepth(ctx context.Context, snap domain.BookSnapshot) error {
	doc := mirrorDepth{
		Symbol:    snap.Symbol,
		Bids:      toMirrorLevels(snap.Bids),
		Asks:      toMirrorLevels(snap.Asks),
		UpdatedAt: snap.UpdatedAt.UnixMilli(),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redis: marshal depth %s: %w", snap.Symbol, err)
	}

	if err := m.rdb.Set(ctx, depthKey(snap.Symbol), data, mirrorTTL).Err(); err != nil {
		return fmt.Errorf("redis: publish depth %s: %w", snap.Symbol, err)
	}
	return nil
}

func toMirrorLevels(levels []domain.PriceLevel) []mirrorLevel {
	out := make([]mirrorLevel, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, mirrorLevel{
			Price: lvl.Price.String(),
			Qty:   lvl.Qty.String(),
		})
	}
	return out
}
