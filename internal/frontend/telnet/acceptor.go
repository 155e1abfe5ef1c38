package telnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/texla/internal/config"
)

// SessionHandler runs the line loop for one Telnet client until the client
// leaves or ctx is cancelled.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// Acceptor accepts Telnet clients and hands each one to a SessionHandler,
// normally a Bridge into the gateway hub.
type Acceptor struct {
	cfg     config.TelnetConfig
	handler SessionHandler
	logger  *zap.Logger

	// ctx is cancelled by Stop; every session derives from it.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	sessions sync.WaitGroup
	open     atomic.Int64
}

// NewAcceptor creates a Telnet acceptor.
//
// Precondition: handler and logger must be non-nil.
func NewAcceptor(cfg config.TelnetConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start listens on the configured address and serves clients until Stop is
// called. It blocks, and returns nil after Stop.
func (a *Acceptor) Start() error {
	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("telnet listen on %s: %w", a.cfg.Addr(), err)
	}

	a.mu.Lock()
	if a.ctx.Err() != nil {
		a.mu.Unlock()
		ln.Close()
		return nil
	}
	a.listener = ln
	a.mu.Unlock()

	a.logger.Info("accepting telnet clients",
		zap.String("addr", ln.Addr().String()),
		zap.Int("max_line_length", a.cfg.MaxLineLength),
	)

	for {
		raw, err := ln.Accept()
		if err != nil {
			if a.ctx.Err() != nil {
				return nil
			}
			a.logger.Warn("telnet accept failed", zap.Error(err))
			select {
			case <-a.ctx.Done():
				return nil
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}

		// Registering under mu keeps Add ordered before Stop's Wait.
		a.mu.Lock()
		if a.ctx.Err() != nil {
			a.mu.Unlock()
			raw.Close()
			return nil
		}
		a.sessions.Add(1)
		a.mu.Unlock()
		go a.serve(raw)
	}
}

// serve negotiates options with one client and runs its session. The socket
// is closed when the acceptor stops so a blocked ReadLine returns.
func (a *Acceptor) serve(raw net.Conn) {
	defer a.sessions.Done()
	log := a.logger.With(zap.String("remote", raw.RemoteAddr().String()))

	conn := NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout, a.cfg.MaxLineLength)
	defer conn.Close()

	log.Debug("telnet client connected", zap.Int64("open", a.open.Add(1)))
	defer a.open.Add(-1)

	if err := conn.Negotiate(); err != nil {
		log.Warn("telnet option negotiation failed", zap.Error(err))
		return
	}

	unhook := context.AfterFunc(a.ctx, func() { conn.Close() })
	defer unhook()

	connected := time.Now()
	err := a.handler.HandleSession(a.ctx, conn)
	if errors.Is(err, ErrLineTooLong) {
		log.Warn("telnet client sent an oversized line", zap.Error(err))
		return
	}
	log.Debug("telnet client disconnected",
		zap.Duration("connected", time.Since(connected)),
		zap.Error(err),
	)
}

// Stop closes the listener and every client socket, then waits for the
// sessions to return. Calls after the first are no-ops.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if a.ctx.Err() != nil {
		a.mu.Unlock()
		return
	}
	a.cancel()
	if a.listener != nil {
		a.listener.Close()
	}
	a.mu.Unlock()

	a.sessions.Wait()
	a.logger.Info("telnet acceptor stopped")
}

// Addr returns the bound address, or "" before Start has listened.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// IsRunning reports whether the acceptor is listening and not stopped.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listener != nil && a.ctx.Err() == nil
}

// OpenSessions returns the number of clients currently connected.
func (a *Acceptor) OpenSessions() int {
	return int(a.open.Load())
}
