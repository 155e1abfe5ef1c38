package gameserver

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/texla/internal/game/command"
	"github.com/cory-johannsen/texla/internal/game/dispatch"
	"github.com/cory-johannsen/texla/internal/game/world"
	"github.com/cory-johannsen/texla/internal/gateway"
	"github.com/cory-johannsen/texla/internal/observability"
)

// Engine owns the world and runs the dispatch pipeline once per tick. It is
// the only goroutine that touches the world.
//
// Invariant: conns and sessions are inverse maps of each other.
type Engine struct {
	hub      *gateway.Hub
	world    *world.World
	pipeline *dispatch.Pipeline
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics

	conns    map[string]world.ConnectionID
	sessions map[world.ConnectionID]string

	started  atomic.Bool
	stopOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

// NewEngine creates an Engine.
//
// Precondition: hub, w, pipeline, and logger must be non-nil; interval must
// be > 0; metrics may be nil.
func NewEngine(
	hub *gateway.Hub,
	w *world.World,
	pipeline *dispatch.Pipeline,
	interval time.Duration,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Engine {
	if interval <= 0 {
		panic("gameserver.NewEngine: interval must be > 0")
	}
	return &Engine{
		hub:      hub,
		world:    w,
		pipeline: pipeline,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		conns:    make(map[string]world.ConnectionID),
		sessions: make(map[world.ConnectionID]string),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Step runs one tick: it applies queued session events in arrival order,
// dispatches the resulting commands, and delivers the replies.
//
// Postcondition: every command drained this tick has been finished.
func (e *Engine) Step() {
	start := time.Now()

	var cmds []*command.Command
	for _, ev := range e.hub.Drain() {
		switch ev.Kind {
		case gateway.Opened:
			id := e.world.AddConnection(ev.Remote)
			e.conns[ev.Session] = id
			e.sessions[id] = ev.Session
			e.logger.Info("connection opened",
				zap.String("session", ev.Session),
				zap.Stringer("conn", id),
				zap.String("remote", ev.Remote),
			)
		case gateway.Line:
			id, ok := e.conns[ev.Session]
			if !ok {
				continue
			}
			e.logger.Debug("<|", zap.Stringer("conn", id), zap.String("line", ev.Text))
			cmds = append(cmds, command.FromLine(ev.Text, id))
		case gateway.Closed:
			id, ok := e.conns[ev.Session]
			if !ok {
				continue
			}
			delete(e.conns, ev.Session)
			delete(e.sessions, id)
			e.world.RemoveConnection(id)
			e.logger.Info("connection closed",
				zap.String("session", ev.Session),
				zap.Stringer("conn", id),
			)
		}
	}

	for _, r := range e.pipeline.Tick(cmds) {
		session, ok := e.sessions[r.Conn]
		if !ok {
			continue
		}
		if r.Disconnect {
			e.hub.Disconnect(session)
			continue
		}
		e.logger.Debug("|>",
			zap.Stringer("conn", r.Conn),
			zap.Bool("failed", r.Result.Failed),
			zap.String("text", r.Result.Text),
		)
		e.hub.Deliver(session, gateway.Message{Text: r.Result.Text, Failed: r.Result.Failed})
	}

	e.metrics.SetConnections(e.world.ConnectionCount())
	e.metrics.ObserveTick(time.Since(start))
}

// Start runs Step once per interval until Stop is called. It blocks.
func (e *Engine) Start() error {
	e.started.Store(true)
	defer close(e.done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("engine started", zap.Duration("tick_interval", e.interval))
	for {
		select {
		case <-e.quit:
			return nil
		case <-ticker.C:
			e.Step()
		}
	}
}

// Stop ends the tick loop and waits for the current tick to finish. It is
// safe to call more than once, and returns at once if Start never ran.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.quit) })
	if !e.started.Load() {
		return
	}
	select {
	case <-e.done:
	case <-time.After(5 * time.Second):
		e.logger.Warn("engine did not stop in time")
	}
}
