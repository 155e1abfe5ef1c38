package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// WSClient is a minimal WebSocket test client speaking text frames.
type WSClient struct {
	conn *websocket.Conn
	t    testing.TB
}

// NewWSClient dials url and returns a test client.
//
// Precondition: url must be a ws:// or wss:// URL with a listening server.
// Postcondition: Returns a connected WSClient or fails the test.
func NewWSClient(t testing.TB, url string) *WSClient {
	t.Helper()
	start := time.Now()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", url, err, time.Since(start))
	}
	t.Cleanup(func() {
		conn.Close()
	})

	t.Logf("websocket client connected to %s [%s]", url, time.Since(start))
	return &WSClient{conn: conn, t: t}
}

// HTTPToWS rewrites an http:// base URL (such as httptest.Server.URL) to
// ws:// and appends path.
func HTTPToWS(base, path string) string {
	return "ws" + strings.TrimPrefix(base, "http") + path
}

// Send writes text as a single text frame.
func (c *WSClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Read returns the next text frame or fails the test on timeout.
func (c *WSClient) Read(timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	kind, data, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("reading frame: %v", err)
	}
	if kind != websocket.TextMessage {
		c.t.Fatalf("expected text frame, got type %d", kind)
	}
	return string(data)
}

// ReadClose waits for the server to close the session and returns the
// close error.
func (c *WSClient) ReadClose(timeout time.Duration) error {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return err
		}
	}
}

// Close closes the underlying connection without a close handshake.
func (c *WSClient) Close() {
	c.conn.Close()
}
