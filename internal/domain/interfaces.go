package domain

import (
	"context"
	"time"
)

// ExecutionGateway places and cancels limit orders on the venue. Both calls
// are synchronous; a non-success venue response is returned as *GatewayError.
// The repricing engine treats cancel failures as non-fatal.
type ExecutionGateway interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderAck, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
}

// MarketFeed is a long-lived streaming market-data connection. After Connect
// and Subscribe, ticker and depth messages arrive as typed BookEvents on the
// Events channel, pulled by a single consumer. The channel is closed when
// the feed shuts down for good.
type MarketFeed interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbol string) error
	Events() <-chan BookEvent
	Close() error
}

// BookMirror publishes the live book to an external cache for dashboards.
// Implementations are best-effort; publish failures must not affect quoting.
type BookMirror interface {
	PublishBBO(ctx context.Context, snap BookSnapshot) error
	PublishDepth(ctx context.Context, snap BookSnapshot) error
}

// RateLimiter bounds request rates per key over a sliding window. Allow
// counts the request when it is permitted.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
