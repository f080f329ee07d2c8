package mexc

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/mexcquoter/internal/domain"
)

// Channel name templates for the public market-data stream. The symbol is
// embedded in the channel name; depth subscriptions additionally carry the
// level count as a trailing segment.
const (
	tickerChannelFmt = "spot@public.bookTicker.v3.api@%s"
	depthChannelFmt  = "spot@public.limit.depth.v3.api@%s@%d"

	// depthLevels is the fixed number of levels per side in depth snapshots.
	depthLevels = 20
)

// wsCommand is an outbound subscription frame.
type wsCommand struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
}

// wsEnvelope is the outer shape of every inbound stream message: the channel
// name plus an opaque payload decoded per channel.
type wsEnvelope struct {
	Channel string          `json:"c"`
	Data    json.RawMessage `json:"d"`
}

// tickerData is the bookTicker payload: best bid and ask as price/quantity
// string pairs.
type tickerData struct {
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

// depthData is the limit.depth payload: full fixed-depth sides, each level a
// [price, quantity] string pair.
type depthData struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
}

// channelSymbol extracts the symbol segment from a channel name like
// "spot@public.bookTicker.v3.api@BTCUSDT" or
// "spot@public.limit.depth.v3.api@BTCUSDT@20". For both shapes the symbol
// is the third "@"-separated segment.
func channelSymbol(channel string) string {
	parts := strings.Split(channel, "@")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// tickerToEvent converts a parsed ticker payload into a domain event.
func tickerToEvent(symbol string, d tickerData, at time.Time) (domain.TickerEvent, error) {
	bidPrice, err := decimal.NewFromString(d.BidPrice)
	if err != nil {
		return domain.TickerEvent{}, fmt.Errorf("bid price %q: %w", d.BidPrice, err)
	}
	bidQty, err := decimal.NewFromString(d.BidQty)
	if err != nil {
		return domain.TickerEvent{}, fmt.Errorf("bid qty %q: %w", d.BidQty, err)
	}
	askPrice, err := decimal.NewFromString(d.AskPrice)
	if err != nil {
		return domain.TickerEvent{}, fmt.Errorf("ask price %q: %w", d.AskPrice, err)
	}
	askQty, err := decimal.NewFromString(d.AskQty)
	if err != nil {
		return domain.TickerEvent{}, fmt.Errorf("ask qty %q: %w", d.AskQty, err)
	}

	return domain.TickerEvent{
		Symbol:     symbol,
		BidPrice:   bidPrice,
		BidQty:     bidQty,
		AskPrice:   askPrice,
		AskQty:     askQty,
		ReceivedAt: at,
	}, nil
}

// depthToEvent converts a parsed depth payload into a domain event. Levels
// that fail to parse are skipped rather than failing the whole snapshot.
func depthToEvent(symbol string, d depthData, at time.Time) domain.DepthEvent {
	return domain.DepthEvent{
		Symbol:     symbol,
		Bids:       parseLevels(d.Bids),
		Asks:       parseLevels(d.Asks),
		ReceivedAt: at,
	}
}

func parseLevels(raw [][]string) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			continue
		}
		price, err := decimal.NewFromString(entry[0])
		if err != nil {
			continue
		}
		qty, err := decimal.NewFromString(entry[1])
		if err != nil {
			continue
		}
		levels = append(levels, domain.PriceLevel{Price: price, Qty: qty})
	}
	return levels
}

// --------------------------------------------------------------------------
// REST API types
// --------------------------------------------------------------------------

// orderResponse is the venue's reply to a successful order placement. The
// order ID field has appeared as both a JSON number and a string across API
// revisions, so it unmarshals through flexID.
type orderResponse struct {
	OrderID       flexID `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
}

// apiError is the venue's error body, e.g. {"code":30005,"msg":"Oversold"}.
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// flexID unmarshals a JSON value that may be either a string or a number
// into its string form.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}
