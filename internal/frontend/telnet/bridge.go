package telnet

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/texla/internal/gateway"
	"github.com/cory-johannsen/texla/internal/observability"
)

// Transport is the name this package reports to logs and metrics.
const Transport = "telnet"

// Bridge connects Telnet sessions to the gateway hub. Each inbound line is
// queued for the next tick; each outbound message is written as it arrives,
// errors in red.
type Bridge struct {
	hub     *gateway.Hub
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewBridge creates a Bridge.
//
// Precondition: hub and logger must be non-nil; metrics may be nil.
func NewBridge(hub *gateway.Hub, logger *zap.Logger, metrics *observability.Metrics) *Bridge {
	return &Bridge{hub: hub, logger: logger, metrics: metrics}
}

// HandleSession registers conn with the hub and pumps lines both ways until
// the client hangs up, the server disconnects it, or ctx is cancelled.
//
// Postcondition: The hub has been told the session closed.
func (b *Bridge) HandleSession(ctx context.Context, conn *Conn) error {
	remote := conn.RemoteAddr().String()
	out := b.hub.Open(remote)
	logger := observability.SessionLogger(b.logger, Transport, out.ID(), remote)
	b.metrics.CountSession(Transport)
	logger.Info("session opened")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.writeLoop(conn, out, logger)
	}()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var err error
	for {
		var line string
		line, err = conn.ReadLine()
		if err != nil {
			break
		}
		b.hub.Receive(out.ID(), line)
	}

	b.hub.Close(out.ID())
	wg.Wait()
	logger.Info("session closed", zap.Error(err))
	return err
}

// writeLoop drains the session's outbound queue. When the queue closes the
// connection is closed too, which ends the read loop.
func (b *Bridge) writeLoop(conn *Conn, out *gateway.Outbound, logger *zap.Logger) {
	defer conn.Close()
	for msg := range out.Messages() {
		text := msg.Text
		if msg.Failed {
			text = Colorize(Red, text)
		}
		if err := conn.WriteLine(text); err != nil {
			logger.Debug("writing reply", zap.Error(err))
			return
		}
	}
}
