// Package websocket serves the command interface over WebSocket text frames.
// Each inbound text frame is one command line; each reply is one text frame.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cory-johannsen/texla/internal/config"
	"github.com/cory-johannsen/texla/internal/gateway"
	"github.com/cory-johannsen/texla/internal/observability"
)

// Transport is the name this package reports to logs and metrics.
const Transport = "websocket"

// Server accepts WebSocket sessions and bridges them to the gateway hub. It
// also serves Prometheus metrics and a health probe on the same listener.
type Server struct {
	cfg      config.WebSocketConfig
	hub      *gateway.Hub
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	metrics  *observability.Metrics
	upgrader websocket.Upgrader

	mu       sync.Mutex
	httpSrv  *http.Server
	listener net.Listener
	sessions sync.WaitGroup
	quit     chan struct{}
	stopped  bool
}

// NewServer creates a WebSocket server.
//
// Precondition: hub and logger must be non-nil; gatherer may be nil to
// disable the metrics endpoint; metrics may be nil.
func NewServer(
	cfg config.WebSocketConfig,
	hub *gateway.Hub,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Server {
	return &Server{
		cfg:      cfg,
		hub:      hub,
		gatherer: gatherer,
		logger:   logger,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		quit: make(chan struct{}),
	}
}

// Handler returns the HTTP routes: the socket path, the metrics path when
// configured, and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.serveSocket)
	if s.gatherer != nil && s.cfg.MetricsPath != "" {
		mux.Handle(s.cfg.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Start listens on the configured address and serves until Stop. It blocks.
//
// Postcondition: Returns nil after a clean Stop, or the listen error.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		listener.Close()
		return nil
	}
	s.httpSrv = srv
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("websocket server listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", s.cfg.Path),
		zap.String("metrics_path", s.cfg.MetricsPath),
	)

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving websocket: %w", err)
	}
	return nil
}

// Stop shuts the HTTP server down, closes every open session, and waits for
// the session goroutines to exit. It is idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.quit)
	srv := s.httpSrv
	s.mu.Unlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warn("websocket server shutdown", zap.Error(err))
		}
	}
	s.sessions.Wait()
	s.logger.Info("websocket server stopped")
}

// Addr returns the actual listening address, or empty string if not yet listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) serveSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		s.logger.Debug("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.sessions.Add(1)
	s.mu.Unlock()

	defer s.sessions.Done()
	newSession(s, conn, r.RemoteAddr).run()
}
