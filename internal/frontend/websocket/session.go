package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/texla/internal/gateway"
	"github.com/cory-johannsen/texla/internal/observability"
)

// session pumps one WebSocket connection: a read loop feeding the hub and a
// write loop draining the outbound queue and sending pings.
type session struct {
	srv    *Server
	conn   *websocket.Conn
	out    *gateway.Outbound
	logger *zap.Logger
}

func newSession(srv *Server, conn *websocket.Conn, remote string) *session {
	out := srv.hub.Open(remote)
	srv.metrics.CountSession(Transport)
	return &session{
		srv:    srv,
		conn:   conn,
		out:    out,
		logger: observability.SessionLogger(srv.logger, Transport, out.ID(), remote),
	}
}

// run blocks until both loops exit.
//
// Postcondition: The hub has been told the session closed and the
// connection is closed.
func (s *session) run() {
	s.logger.Info("session opened")

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop()
	}()

	s.readLoop()
	s.srv.hub.Close(s.out.ID())
	<-done
	s.conn.Close()
	s.logger.Info("session closed")
}

func (s *session) readLoop() {
	cfg := s.srv.cfg
	s.conn.SetReadLimit(cfg.ReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("read failed", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			s.logger.Debug("ignoring non-text frame", zap.Int("type", kind))
			continue
		}
		s.srv.hub.Receive(s.out.ID(), string(data))
	}
}

// writeLoop exits when the outbound queue closes or the server stops. Either
// way it closes the connection, which ends readLoop.
func (s *session) writeLoop() {
	cfg := s.srv.cfg
	ticker := time.NewTicker(cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.out.Messages():
			if !ok {
				s.closeFrame(websocket.CloseNormalClosure)
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(msg.Text)); err != nil {
				s.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.srv.quit:
			s.closeFrame(websocket.CloseGoingAway)
			return
		}
	}
}

func (s *session) closeFrame(code int) {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, ""),
		time.Now().Add(s.srv.cfg.WriteTimeout))
}
