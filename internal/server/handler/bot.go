// Package handler implements the HTTP handlers for the control-plane API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/mexcquoter/internal/bot"
	"github.com/alanyoungcy/mexcquoter/internal/domain"
)

// BotController is the subset of the bot manager the handlers need.
type BotController interface {
	Start(ctx context.Context, params domain.RunParams, creds domain.Credentials) error
	Stop(ctx context.Context) error
	Status() (bot.Status, bool)
}

// BotHandler serves the start/stop/status endpoints for the quoting bot.
type BotHandler struct {
	manager BotController
	logger  *slog.Logger
}

// NewBotHandler creates a BotHandler driving the given manager.
func NewBotHandler(manager BotController, logger *slog.Logger) *BotHandler {
	return &BotHandler{
		manager: manager,
		logger:  logger.With(slog.String("handler", "bot")),
	}
}

// startRequest is the operator's run configuration. Quantities and prices
// arrive as JSON numbers; they are converted to decimals before any
// arithmetic touches them.
type startRequest struct {
	APIKey                string  `json:"api_key"`
	SecretKey             string  `json:"secret_key"`
	Symbol                string  `json:"symbol"`
	BuyQuantity           float64 `json:"buy_quantity"`
	SellQuantity          float64 `json:"sell_quantity"`
	BuyPriceMin           float64 `json:"buy_price_min"`
	BuyPriceMax           float64 `json:"buy_price_max"`
	SellPriceMin          float64 `json:"sell_price_min"`
	SellPriceMax          float64 `json:"sell_price_max"`
	MinCompetitorSizeUSDT float64 `json:"min_competitor_size_usdt"`
}

const defaultMinCompetitorSizeUSDT = 10.0

// StartBot validates the run configuration and starts (or restarts) the bot.
// POST /api/start-bot
func (h *BotHandler) StartBot(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.MinCompetitorSizeUSDT == 0 {
		req.MinCompetitorSizeUSDT = defaultMinCompetitorSizeUSDT
	}

	params := domain.RunParams{
		Symbol:  req.Symbol,
		BuyQty:  decimal.NewFromFloat(req.BuyQuantity),
		SellQty: decimal.NewFromFloat(req.SellQuantity),
		BuyRange: domain.PriceRange{
			Min: decimal.NewFromFloat(req.BuyPriceMin),
			Max: decimal.NewFromFloat(req.BuyPriceMax),
		},
		SellRange: domain.PriceRange{
			Min: decimal.NewFromFloat(req.SellPriceMin),
			Max: decimal.NewFromFloat(req.SellPriceMax),
		},
		MinCompetitorNotional: decimal.NewFromFloat(req.MinCompetitorSizeUSDT),
	}
	creds := domain.Credentials{
		APIKey:    req.APIKey,
		SecretKey: req.SecretKey,
	}

	if err := h.manager.Start(r.Context(), params, creds); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidParams) ||
			errors.Is(err, domain.ErrInvalidRange) ||
			errors.Is(err, domain.ErrRangesOverlap) {
			status = http.StatusBadRequest
		}
		h.logger.Error("start bot failed", slog.String("error", err.Error()))
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"message":    fmt.Sprintf("quoting bot started for %s", params.Symbol),
		"buy_range":  params.BuyRange.String(),
		"sell_range": params.SellRange.String(),
	})
}

// StopBot stops the running bot and cancels its resting orders.
// POST /api/stop-bot
func (h *BotHandler) StopBot(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Stop(r.Context()); err != nil {
		if errors.Is(err, domain.ErrBotNotRunning) {
			writeJSON(w, http.StatusOK, map[string]any{
				"status":  "success",
				"message": "bot was not running",
			})
			return
		}
		h.logger.Error("stop bot failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "quoting bot stopped",
	})
}

// BotStatus reports the bot's lifecycle state, resting orders, and book view.
// GET /api/bot-status
func (h *BotHandler) BotStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := h.manager.Status()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"running": false,
			"message": "bot not initialized",
		})
		return
	}

	resp := map[string]any{
		"running": st.State == bot.StateRunning,
		"state":   string(st.State),
		"symbol":  st.Symbol,
		"buy_range": map[string]string{
			"min": st.BuyRange.Min.String(),
			"max": st.BuyRange.Max.String(),
		},
		"sell_range": map[string]string{
			"min": st.SellRange.Min.String(),
			"max": st.SellRange.Max.String(),
		},
		"current_buy_order":  orderJSON(st.BuyOrder),
		"current_sell_order": orderJSON(st.SellOrder),
		"book_ready":         st.BookReady,
		"bid_levels":         st.BidLevels,
		"ask_levels":         st.AskLevels,
	}
	if !st.InitialPrice.IsZero() {
		resp["initial_price"] = st.InitialPrice.String()
	}
	if st.BookReady {
		resp["best_bid"] = st.BestBid.String()
		resp["best_ask"] = st.BestAsk.String()
		resp["spread"] = st.BestAsk.Sub(st.BestBid).String()
	}
	if !st.StartedAt.IsZero() {
		resp["started_at"] = st.StartedAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, resp)
}

func orderJSON(ord *domain.ActiveOrder) any {
	if ord == nil {
		return nil
	}
	return map[string]string{
		"order_id": ord.OrderID,
		"side":     string(ord.Side),
		"price":    ord.Price.String(),
		"quantity": ord.Qty.String(),
	}
}
