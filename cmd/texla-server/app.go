package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cory-johannsen/texla/internal/config"
	"github.com/cory-johannsen/texla/internal/frontend/telnet"
	"github.com/cory-johannsen/texla/internal/frontend/websocket"
	"github.com/cory-johannsen/texla/internal/game/command"
	"github.com/cory-johannsen/texla/internal/game/dispatch"
	"github.com/cory-johannsen/texla/internal/game/world"
	"github.com/cory-johannsen/texla/internal/gameserver"
	"github.com/cory-johannsen/texla/internal/gateway"
	"github.com/cory-johannsen/texla/internal/observability"
	"github.com/cory-johannsen/texla/internal/server"
)

// app is the fully wired server.
type app struct {
	world     *world.World
	hub       *gateway.Hub
	engine    *gameserver.Engine
	websocket *websocket.Server
	// telnet is nil unless enabled in config.
	telnet   *telnet.Acceptor
	registry *prometheus.Registry
}

// newApp builds the world, dispatch pipeline, engine, and transports from cfg.
//
// Precondition: cfg must be valid; logger must be non-nil.
// Postcondition: Returns a ready app or a non-nil error.
func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	spawn := world.DefaultSpawnRoom()
	if cfg.World.SpawnFile != "" {
		var err error
		spawn, err = world.LoadSpawnRoomFromFile(cfg.World.SpawnFile)
		if err != nil {
			return nil, fmt.Errorf("loading spawn room: %w", err)
		}
	}
	w, err := world.New(spawn)
	if err != nil {
		return nil, fmt.Errorf("creating world: %w", err)
	}
	logger.Info("world ready", zap.String("spawn_room", spawn.Name))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	registry := command.DefaultRegistry()
	handlers := gameserver.DefaultHandlers(
		gameserver.NewAccountHandler(logger.Named("accounts")),
		gameserver.NewWorldHandler(logger.Named("world")),
	)
	pipeline, err := dispatch.NewPipeline(w, registry, handlers, logger.Named("dispatch"), metrics)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	hub := gateway.NewHub(cfg.Server.OutboundBuffer, logger.Named("gateway"))
	a := &app{
		world:     w,
		hub:       hub,
		engine:    gameserver.NewEngine(hub, w, pipeline, cfg.Server.TickInterval, logger.Named("engine"), metrics),
		websocket: websocket.NewServer(cfg.WebSocket, hub, reg, logger.Named("websocket"), metrics),
		registry:  reg,
	}
	if cfg.Telnet.Enabled {
		bridge := telnet.NewBridge(hub, logger.Named("telnet"), metrics)
		a.telnet = telnet.NewAcceptor(cfg.Telnet, bridge, logger.Named("telnet"))
	}
	return a, nil
}

// lifecycle registers the engine first so it stops last.
func (a *app) lifecycle(logger *zap.Logger) *server.Lifecycle {
	lc := server.NewLifecycle(logger)
	lc.Add("engine", a.engine)
	lc.Add("websocket", a.websocket)
	if a.telnet != nil {
		lc.Add("telnet", a.telnet)
	}
	return lc
}
