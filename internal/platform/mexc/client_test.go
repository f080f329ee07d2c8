package mexc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/mexcquoter/internal/crypto"
	"github.com/alanyoungcy/mexcquoter/internal/domain"
)

func TestPlaceOrderSendsSignedRequest(t *testing.T) {
	var gotReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Write([]byte(`{"orderId":123456,"clientOrderId":"client-1","symbol":"BTCUSDT"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, crypto.NewQuerySigner("api-key", "secret"))
	ack, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol:        "BTCUSDT",
		Side:          domain.SideBuy,
		Qty:           decimal.RequireFromString("0.001"),
		Price:         decimal.RequireFromString("48500.00001"),
		ClientOrderID: "client-1",
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if ack.OrderID != "123456" {
		t.Fatalf("order id = %q, want 123456", ack.OrderID)
	}
	if gotReq.Method != http.MethodPost {
		t.Fatalf("method = %s, want POST", gotReq.Method)
	}
	if gotReq.URL.Path != "/api/v3/order" {
		t.Fatalf("path = %s, want /api/v3/order", gotReq.URL.Path)
	}
	if got := gotReq.Header.Get(crypto.HeaderAPIKey); got != "api-key" {
		t.Fatalf("%s = %q, want api-key", crypto.HeaderAPIKey, got)
	}

	q := gotReq.URL.Query()
	if q.Get("symbol") != "BTCUSDT" || q.Get("side") != "BUY" || q.Get("type") != "LIMIT" {
		t.Fatalf("unexpected query: %s", gotReq.URL.RawQuery)
	}
	if q.Get("price") != "48500.00001" {
		t.Fatalf("price = %q, want 48500.00001", q.Get("price"))
	}
	if q.Get("signature") == "" || q.Get("timestamp") == "" {
		t.Fatalf("query not signed: %s", gotReq.URL.RawQuery)
	}
}

func TestCancelOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		if got := r.URL.Query().Get("orderId"); got != "order-9" {
			t.Errorf("orderId = %q, want order-9", got)
		}
		w.Write([]byte(`{"orderId":"order-9","symbol":"BTCUSDT"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, crypto.NewQuerySigner("api-key", "secret"))
	if err := c.CancelOrder(context.Background(), "BTCUSDT", "order-9"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
}

func TestPlaceOrderOversoldError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":30005,"msg":"Oversold"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, crypto.NewQuerySigner("api-key", "secret"))
	_, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol: "BTCUSDT",
		Side:   domain.SideSell,
		Qty:    decimal.RequireFromString("1"),
		Price:  decimal.RequireFromString("51000"),
	})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}

	var ge *domain.GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("error type = %T, want *domain.GatewayError", err)
	}
	if ge.Code != 30005 {
		t.Fatalf("code = %d, want 30005", ge.Code)
	}
	if !domain.IsInsufficientBalance(err) {
		t.Fatal("oversold response must register as insufficient balance")
	}
}
