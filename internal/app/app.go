// Package app provides the top-level application lifecycle for the quoting
// agent. It wires the execution gateway, market-data feed, optional Redis
// book mirror, bot manager, and control-plane HTTP server, and runs them
// until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/mexcquoter/internal/bot"
	"github.com/alanyoungcy/mexcquoter/internal/cache/redis"
	"github.com/alanyoungcy/mexcquoter/internal/config"
	"github.com/alanyoungcy/mexcquoter/internal/crypto"
	"github.com/alanyoungcy/mexcquoter/internal/domain"
	"github.com/alanyoungcy/mexcquoter/internal/platform/mexc"
	"github.com/alanyoungcy/mexcquoter/internal/server"
	"github.com/alanyoungcy/mexcquoter/internal/server/handler"
)

// shutdownTimeout bounds graceful teardown of the HTTP server and the bot.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, optionally
// autostarts the bot from config, starts the HTTP server, and blocks until
// the context is cancelled. On return it runs all registered cleanup
// functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("port", a.cfg.Server.Port),
	)
	defer a.Close()

	// Optional Redis book mirror and API rate limiter. Quoting works
	// without either.
	var mirror domain.BookMirror
	var limiter domain.RateLimiter
	if a.cfg.Redis.Addr != "" {
		client, err := redis.New(ctx, redis.ClientConfig{
			Addr:       a.cfg.Redis.Addr,
			Password:   a.cfg.Redis.Password,
			DB:         a.cfg.Redis.DB,
			PoolSize:   a.cfg.Redis.PoolSize,
			MaxRetries: a.cfg.Redis.MaxRetries,
			TLSEnabled: a.cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fmt.Errorf("app: connect redis: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.logger.Warn("redis close failed", slog.String("error", err.Error()))
			}
		})
		mirror = redis.NewBookMirror(client)
		limiter = redis.NewRateLimiter(client)
		a.logger.Info("book mirror enabled", slog.String("addr", a.cfg.Redis.Addr))
	}

	manager := bot.NewManager(a.botFactory(mirror), a.logger)
	a.closers = append(a.closers, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		manager.Close(stopCtx)
	})

	if a.cfg.Quoter.Autostart {
		if err := a.autostart(ctx, manager); err != nil {
			return fmt.Errorf("app: autostart: %w", err)
		}
	}

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		},
		server.Handlers{
			Health: handler.NewHealthHandler(a.logger),
			Bot:    handler.NewBotHandler(manager, a.logger),
		},
		limiter,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// botFactory builds the per-run wiring: a fresh WebSocket feed and signed
// REST client for each bot instance. Start requests may carry their own
// credentials; empty ones fall back to the configured pair.
func (a *App) botFactory(mirror domain.BookMirror) bot.Factory {
	return func(params domain.RunParams, creds domain.Credentials) (*bot.Bot, error) {
		if creds.APIKey == "" {
			resolved, err := a.configCredentials()
			if err != nil {
				return nil, err
			}
			creds = resolved
		}
		if creds.APIKey == "" || creds.SecretKey == "" {
			return nil, fmt.Errorf("app: missing api credentials")
		}

		signer := crypto.NewQuerySigner(creds.APIKey, creds.SecretKey)
		gateway := mexc.NewClient(a.cfg.Mexc.BaseURL, signer)
		feed := mexc.NewWSFeed(a.cfg.Mexc.WsURL)

		return bot.New(params, feed, gateway, mirror, a.logger), nil
	}
}

// configCredentials resolves the configured credential pair, decrypting the
// secret key file when one is configured.
func (a *App) configCredentials() (domain.Credentials, error) {
	secret, err := crypto.LoadSecret(crypto.SecretConfig{
		RawSecret:           a.cfg.Mexc.SecretKey,
		EncryptedSecretPath: a.cfg.Mexc.EncryptedSecretPath,
		Password:            a.cfg.Mexc.SecretPassword,
	})
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("app: load secret: %w", err)
	}
	return domain.Credentials{
		APIKey:    a.cfg.Mexc.ApiKey,
		SecretKey: secret,
	}, nil
}

// autostart starts the bot from the configured quoting parameters.
func (a *App) autostart(ctx context.Context, manager *bot.Manager) error {
	q := a.cfg.Quoter
	params := domain.RunParams{
		Symbol:  q.Symbol,
		BuyQty:  decimal.NewFromFloat(q.BuyQuantity),
		SellQty: decimal.NewFromFloat(q.SellQuantity),
		BuyRange: domain.PriceRange{
			Min: decimal.NewFromFloat(q.BuyPriceMin),
			Max: decimal.NewFromFloat(q.BuyPriceMax),
		},
		SellRange: domain.PriceRange{
			Min: decimal.NewFromFloat(q.SellPriceMin),
			Max: decimal.NewFromFloat(q.SellPriceMax),
		},
		MinCompetitorNotional: decimal.NewFromFloat(q.MinCompetitorSizeUSDT),
	}

	a.logger.InfoContext(ctx, "autostarting bot", slog.String("symbol", q.Symbol))
	return manager.Start(ctx, params, domain.Credentials{})
}
