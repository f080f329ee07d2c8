package mexc

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/mexcquoter/internal/domain"
)

func TestChannelSymbol(t *testing.T) {
	tests := []struct {
		channel string
		want    string
	}{
		{"spot@public.bookTicker.v3.api@BTCUSDT", "BTCUSDT"},
		{"spot@public.limit.depth.v3.api@BTCUSDT@20", "BTCUSDT"},
		{"spot@public", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := channelSymbol(tt.channel); got != tt.want {
			t.Fatalf("channelSymbol(%q) = %q, want %q", tt.channel, got, tt.want)
		}
	}
}

func TestFlexID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"orderId":"abc123"}`, "abc123"},
		{`{"orderId":123456789012345678}`, "123456789012345678"},
	}

	for _, tt := range tests {
		var resp orderResponse
		if err := json.Unmarshal([]byte(tt.raw), &resp); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		if string(resp.OrderID) != tt.want {
			t.Fatalf("order id = %q, want %q", resp.OrderID, tt.want)
		}
	}
}

func TestHandleMessageRoutesTicker(t *testing.T) {
	w := NewWSFeed("wss://example.invalid/ws")

	raw := `{"c":"spot@public.bookTicker.v3.api@BTCUSDT","d":{"b":"48500.1","B":"0.5","a":"48510.2","A":"1.5"}}`
	w.handleMessage([]byte(raw))

	select {
	case ev := <-w.Events():
		tick, ok := ev.(domain.TickerEvent)
		if !ok {
			t.Fatalf("event type = %T, want TickerEvent", ev)
		}
		if tick.Symbol != "BTCUSDT" {
			t.Fatalf("symbol = %q, want BTCUSDT", tick.Symbol)
		}
		if !tick.BidPrice.Equal(decimal.RequireFromString("48500.1")) {
			t.Fatalf("bid price = %s, want 48500.1", tick.BidPrice)
		}
		if !tick.AskQty.Equal(decimal.RequireFromString("1.5")) {
			t.Fatalf("ask qty = %s, want 1.5", tick.AskQty)
		}
	default:
		t.Fatal("no event delivered for ticker message")
	}
}

func TestHandleMessageRoutesDepth(t *testing.T) {
	w := NewWSFeed("wss://example.invalid/ws")

	raw := `{"c":"spot@public.limit.depth.v3.api@BTCUSDT@20","d":{"bids":[["48500","1.2"],["48490","0.8"]],"asks":[["48510","2"]]}}`
	w.handleMessage([]byte(raw))

	select {
	case ev := <-w.Events():
		depth, ok := ev.(domain.DepthEvent)
		if !ok {
			t.Fatalf("event type = %T, want DepthEvent", ev)
		}
		if depth.Symbol != "BTCUSDT" {
			t.Fatalf("symbol = %q, want BTCUSDT", depth.Symbol)
		}
		if len(depth.Bids) != 2 || len(depth.Asks) != 1 {
			t.Fatalf("levels = %d bids / %d asks, want 2/1", len(depth.Bids), len(depth.Asks))
		}
		if !depth.Bids[0].Price.Equal(decimal.RequireFromString("48500")) {
			t.Fatalf("top bid = %s, want 48500", depth.Bids[0].Price)
		}
	default:
		t.Fatal("no event delivered for depth message")
	}
}

func TestHandleMessageDropsNoise(t *testing.T) {
	w := NewWSFeed("wss://example.invalid/ws")

	noise := []string{
		`not json`,
		`{"id":0,"code":0,"msg":"spot@public.bookTicker.v3.api@BTCUSDT"}`, // subscription ack
		`{"c":"spot@public.bookTicker.v3.api@BTCUSDT","d":{"b":"oops","B":"1","a":"2","A":"3"}}`,
		`{"c":"spot@unknown.channel","d":{}}`,
	}
	for _, raw := range noise {
		w.handleMessage([]byte(raw))
	}

	select {
	case ev := <-w.Events():
		t.Fatalf("noise produced event %+v", ev)
	default:
	}
}

func TestDepthSkipsMalformedLevels(t *testing.T) {
	ev := depthToEvent("BTCUSDT", depthData{
		Bids: [][]string{
			{"48500", "1"},
			{"48490"},      // missing quantity
			{"bad", "1"},   // unparseable price
			{"48480", "x"}, // unparseable quantity
			{"48470", "0.5"},
		},
	}, time.Now())

	if len(ev.Bids) != 2 {
		t.Fatalf("parsed %d levels, want 2", len(ev.Bids))
	}
}
