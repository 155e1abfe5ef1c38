// Package client is a line-oriented WebSocket client for the texla server.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultURL is the server's default socket endpoint.
const DefaultURL = "ws://localhost:8080/socket"

// RetryInterval is the pause between failed dial attempts.
var RetryInterval = time.Second

// Output is one event for the presentation layer. Exactly one field is set.
type Output struct {
	// Text is a server reply.
	Text string
	// Warning is a client-side diagnostic.
	Warning string
}

// IsWarning reports whether o carries a diagnostic rather than a reply.
func (o Output) IsWarning() bool {
	return o.Warning != ""
}

// Run dials url, retrying until it connects or ctx ends, then forwards each
// line from in as a text frame and each inbound text frame to out.
//
// Postcondition: Returns nil when in is closed or the server closes the
// session, ctx.Err() when ctx ends, or the first transport error.
func Run(ctx context.Context, url string, in <-chan string, out chan<- Output) error {
	conn, err := dial(ctx, url)
	if err != nil {
		return err
	}

	stop := make(chan struct{})
	readErr := make(chan error, 1)
	go func() {
		readErr <- readLoop(conn, out, stop)
	}()
	// out is never written after Run returns.
	defer func() {
		close(stop)
		conn.Close()
		<-readErr
	}()

	for {
		select {
		case <-ctx.Done():
			closeSession(conn)
			return ctx.Err()
		case err := <-readErr:
			readErr <- err
			return err
		case line, ok := <-in:
			if !ok {
				closeSession(conn)
				// Give the server a moment to acknowledge the close.
				select {
				case err := <-readErr:
					readErr <- err
				case <-time.After(time.Second):
				}
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return fmt.Errorf("sending %q: %w", line, err)
			}
		}
	}
}

func dial(ctx context.Context, url string) (*websocket.Conn, error) {
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("dialing %s: %w", url, errors.Join(ctx.Err(), err))
		case <-time.After(RetryInterval):
		}
	}
}

func readLoop(conn *websocket.Conn, out chan<- Output, stop <-chan struct{}) error {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading: %w", err)
		}

		o := Output{Text: string(data)}
		if kind != websocket.TextMessage {
			o = Output{Warning: fmt.Sprintf("Received unsupported message type %d", kind)}
		}
		select {
		case out <- o:
		case <-stop:
			return nil
		}
	}
}

func closeSession(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
