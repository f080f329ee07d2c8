package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/mexcquoter/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second

	// eventBuffer sizes the outbound event channel. When the consumer falls
	// behind, the oldest pending event is dropped: a newer ticker or depth
	// snapshot always supersedes an older one.
	eventBuffer = 256
)

// WSFeed is the WebSocket client for the MEXC public market-data stream. It
// satisfies domain.MarketFeed: after Connect and Subscribe, parsed ticker
// and depth events arrive on the Events channel.
type WSFeed struct {
	wsURL string
	conn  *websocket.Conn

	// connStop is closed when conn is replaced, terminating the read and
	// ping loops bound to the old connection. Exactly one loop pair runs
	// per live connection.
	connStop chan struct{}

	mu     sync.RWMutex
	closed bool

	// Subscriptions to restore on reconnect.
	subscriptions []wsCommand

	events chan domain.BookEvent

	// done is closed when the feed is shut down.
	done chan struct{}
}

// NewWSFeed creates a feed for the given WebSocket URL, e.g.
// "wss://wbs.mexc.com/ws".
func NewWSFeed(wsURL string) *WSFeed {
	return &WSFeed{
		wsURL:  wsURL,
		events: make(chan domain.BookEvent, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the read and ping
// loops. On reconnect it replays all tracked subscriptions.
func (w *WSFeed) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("mexc/ws: %w", domain.ErrWSDisconnect)
	}

	// Retire the previous connection's loops before dialing. Closing the
	// conn unblocks its readLoop; the stop channel keeps it from treating
	// the forced error as a disconnect.
	if w.conn != nil {
		close(w.connStop)
		_ = w.conn.Close()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("mexc/ws: connect: %w", err)
	}

	w.conn = conn
	stop := make(chan struct{})
	w.connStop = stop

	// Set up pong handler for keep-alive. The handler captures its own
	// conn: w.conn may be reassigned by a later reconnect.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop(conn, stop)
	go w.pingLoop(conn, stop)

	// Restore any previous subscriptions after reconnect.
	for _, cmd := range w.subscriptions {
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("mexc/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// Subscribe subscribes to the bookTicker and fixed-depth channels for the
// given symbol, e.g. "BTCUSDT".
func (w *WSFeed) Subscribe(ctx context.Context, symbol string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("mexc/ws: not connected")
	}

	cmds := []wsCommand{
		{Method: "SUBSCRIPTION", Params: []string{fmt.Sprintf(tickerChannelFmt, symbol)}},
		{Method: "SUBSCRIPTION", Params: []string{fmt.Sprintf(depthChannelFmt, symbol, depthLevels)}},
	}

	for _, cmd := range cmds {
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("mexc/ws: subscribe %s: %w", cmd.Params[0], err)
		}
		// Track subscription for reconnection.
		w.subscriptions = append(w.subscriptions, cmd)
	}

	return nil
}

// Events returns the channel on which parsed market-data events arrive. It
// is closed when the feed shuts down for good.
func (w *WSFeed) Events() <-chan domain.BookEvent {
	return w.events
}

// Close shuts down the connection, stops the loops, and closes the event
// channel.
func (w *WSFeed) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)
	close(w.events)

	if w.conn != nil {
		// Send a close message to the server.
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// sendCommand sends a JSON command frame. Caller must hold w.mu.
func (w *WSFeed) sendCommand(cmd wsCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop continuously reads stream messages from conn, parses them, and
// delivers events. On disconnect it attempts reconnection with exponential
// backoff. It exits without reconnecting when the feed is closed or when
// stop is closed because a newer connection replaced this one.
func (w *WSFeed) readLoop(conn *websocket.Conn, stop <-chan struct{}) {
	for {
		select {
		case <-w.done:
			return
		case <-stop:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			case <-stop:
				return
			default:
			}

			w.reconnect()
			return // readLoop is restarted by reconnect -> Connect
		}

		w.handleMessage(message)
	}
}

// pingLoop sends periodic ping messages on conn to keep the connection
// alive. It exits when the feed is closed, when stop is closed because the
// connection was replaced, or on a write error. conn therefore only ever
// has a single pinger.
func (w *WSFeed) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-stop:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses a raw stream message and emits the corresponding
// event. Subscription acks and unknown channels are dropped silently.
func (w *WSFeed) handleMessage(raw []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}
	if env.Channel == "" || len(env.Data) == 0 {
		return
	}

	symbol := channelSymbol(env.Channel)
	if symbol == "" {
		return
	}
	now := time.Now()

	switch {
	case strings.Contains(env.Channel, "bookTicker"):
		var d tickerData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return
		}
		ev, err := tickerToEvent(symbol, d, now)
		if err != nil {
			return
		}
		w.deliver(ev)

	case strings.Contains(env.Channel, "limit.depth"):
		var d depthData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return
		}
		w.deliver(depthToEvent(symbol, d, now))
	}
}

// deliver pushes an event onto the channel, evicting the oldest pending
// event when the buffer is full so fresh data is never blocked behind stale.
// The read lock is held across the send: Close takes the write lock before
// closing the channel, so a send can never race the close.
func (w *WSFeed) deliver(ev domain.BookEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}

	select {
	case w.events <- ev:
	default:
		select {
		case <-w.events:
		default:
		}
		select {
		case w.events <- ev:
		default:
		}
	}
}

// reconnect attempts to re-establish the connection with exponential
// backoff. It blocks until successful or the feed is closed.
func (w *WSFeed) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		// Exponential backoff.
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
