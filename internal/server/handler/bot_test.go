package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alanyoungcy/mexcquoter/internal/bot"
	"github.com/alanyoungcy/mexcquoter/internal/domain"
)

// fakeController captures the params the handler passes down and returns
// scripted results.
type fakeController struct {
	startErr   error
	stopErr    error
	lastParams domain.RunParams
	lastCreds  domain.Credentials
	status     bot.Status
	hasStatus  bool
}

func (f *fakeController) Start(ctx context.Context, params domain.RunParams, creds domain.Credentials) error {
	f.lastParams = params
	f.lastCreds = creds
	if f.startErr != nil {
		return f.startErr
	}
	return params.Validate()
}

func (f *fakeController) Stop(ctx context.Context) error { return f.stopErr }

func (f *fakeController) Status() (bot.Status, bool) { return f.status, f.hasStatus }

const startBody = `{
	"api_key": "k",
	"secret_key": "s",
	"symbol": "BTCUSDT",
	"buy_quantity": 0.001,
	"sell_quantity": 0.001,
	"buy_price_min": 48000,
	"buy_price_max": 49000,
	"sell_price_min": 51000,
	"sell_price_max": 52000
}`

func TestStartBot(t *testing.T) {
	fc := &fakeController{}
	h := NewBotHandler(fc, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/api/start-bot", strings.NewReader(startBody))
	rec := httptest.NewRecorder()
	h.StartBot(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if fc.lastParams.Symbol != "BTCUSDT" {
		t.Fatalf("symbol = %q, want BTCUSDT", fc.lastParams.Symbol)
	}
	// An omitted competitor threshold falls back to the default.
	if fc.lastParams.MinCompetitorNotional.String() != "10" {
		t.Fatalf("min competitor notional = %s, want 10", fc.lastParams.MinCompetitorNotional)
	}
	if fc.lastCreds.APIKey != "k" || fc.lastCreds.SecretKey != "s" {
		t.Fatalf("credentials not forwarded: %+v", fc.lastCreds)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "success" {
		t.Fatalf("response status = %v", resp["status"])
	}
	if resp["buy_range"] != "48000-49000" {
		t.Fatalf("buy_range = %v, want 48000-49000", resp["buy_range"])
	}
}

func TestStartBotRejectsOverlappingRanges(t *testing.T) {
	fc := &fakeController{}
	h := NewBotHandler(fc, slog.Default())

	body := strings.Replace(startBody, `"sell_price_min": 51000`, `"sell_price_min": 48500`, 1)
	req := httptest.NewRequest(http.MethodPost, "/api/start-bot", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.StartBot(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body)
	}
}

func TestStartBotRejectsBadJSON(t *testing.T) {
	h := NewBotHandler(&fakeController{}, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/api/start-bot", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.StartBot(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStopBotWhenNotRunning(t *testing.T) {
	fc := &fakeController{stopErr: domain.ErrBotNotRunning}
	h := NewBotHandler(fc, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/api/stop-bot", nil)
	rec := httptest.NewRecorder()
	h.StopBot(rec, req)

	// Stopping an idle bot is not an error for the operator.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
}

func TestBotStatusUninitialized(t *testing.T) {
	h := NewBotHandler(&fakeController{}, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/bot-status", nil)
	rec := httptest.NewRecorder()
	h.BotStatus(rec, req)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["running"] != false {
		t.Fatalf("running = %v, want false", resp["running"])
	}
}
