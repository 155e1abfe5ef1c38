// Package main provides the texla server binary: a tick-driven command
// dispatcher reachable over WebSocket and, optionally, Telnet.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/texla/internal/config"
	"github.com/cory-johannsen/texla/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = defaults plus TEXLA_* environment")
	spawnFile := flag.String("spawn", "", "path to spawn room YAML; overrides world.spawn_file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *spawnFile != "" {
		cfg.World.SpawnFile = *spawnFile
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting texla server",
		zap.String("websocket_addr", cfg.WebSocket.Addr()),
		zap.String("websocket_path", cfg.WebSocket.Path),
		zap.Bool("telnet", cfg.Telnet.Enabled),
		zap.Duration("tick_interval", cfg.Server.TickInterval),
	)

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal("building server", zap.Error(err))
	}

	logger.Info("server initialized", zap.Duration("elapsed", time.Since(start)))

	if err := a.lifecycle(logger).Run(context.Background()); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrNoConfigFile) {
		return config.Defaults()
	}
	return cfg, err
}
