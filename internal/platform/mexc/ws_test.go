package mexc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsEchoServer upgrades incoming connections and holds them open until the
// client goes away. dropFirst connections are closed immediately after the
// handshake to force the client through its reconnect path.
func wsEchoServer(t *testing.T, dropFirst int32) (*httptest.Server, *int32) {
	t.Helper()
	var upgrader websocket.Upgrader
	var conns int32

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		if atomic.AddInt32(&conns, 1) <= dropFirst {
			c.Close()
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	return srv, &conns
}

func wsAddr(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// loopCount reports how many goroutines are currently inside the named
// WSFeed method.
func loopCount(method string) int {
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	return strings.Count(string(buf[:n]), "(*WSFeed)."+method)
}

func waitForLoops(t *testing.T, pings, reads int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		gotPings, gotReads := loopCount("pingLoop"), loopCount("readLoop")
		if gotPings == pings && gotReads == reads {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("loops = %d pingLoop / %d readLoop, want %d/%d",
				gotPings, gotReads, pings, reads)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConnectRetiresPreviousConnectionLoops(t *testing.T) {
	srv, _ := wsEchoServer(t, 0)
	defer srv.Close()

	w := NewWSFeed(wsAddr(srv))
	defer w.Close()
	ctx := context.Background()

	if err := w.Connect(ctx); err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	if err := w.Connect(ctx); err != nil {
		t.Fatalf("second Connect: %v", err)
	}

	// The loops bound to the first connection must be gone; only the
	// current connection may have a pinger, or two pingers could write
	// to the same conn concurrently.
	waitForLoops(t, 1, 1)
}

func TestReconnectAfterServerDrop(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the reconnect backoff")
	}

	srv, conns := wsEchoServer(t, 1)
	defer srv.Close()

	w := NewWSFeed(wsAddr(srv))
	defer w.Close()
	ctx := context.Background()

	if err := w.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := w.Subscribe(ctx, "BTCUSDT"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// The server drops the first connection, so the feed must dial again
	// on its own.
	deadline := time.Now().Add(10 * time.Second)
	for atomic.LoadInt32(conns) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("no reconnect observed, %d connections", atomic.LoadInt32(conns))
		}
		time.Sleep(20 * time.Millisecond)
	}

	// After the reconnect exactly one loop pair serves the live
	// connection; nothing leaked from the dropped one.
	waitForLoops(t, 1, 1)
}
