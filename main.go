package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/fruitbox/board"
	"github.com/wfunc/fruitbox/broadcast"
	"github.com/wfunc/fruitbox/config"
	"github.com/wfunc/fruitbox/logger"
	"github.com/wfunc/fruitbox/monitor"
	"github.com/wfunc/fruitbox/persistence"
	"github.com/wfunc/fruitbox/server"
	"github.com/wfunc/fruitbox/services"
	"github.com/wfunc/fruitbox/session"
	"github.com/wfunc/fruitbox/timer"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize storage
	store, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	logger.Log.Infof("Store ready (driver %q).", cfg.Database.Driver)

	var src rand.Source
	if cfg.Game.Seed != 0 {
		src = rand.NewSource(cfg.Game.Seed)
	}

	sessions := session.NewManager()
	mon := monitor.NewMonitor("fruitbox")
	mon.StartServer(cfg.Server.MetricsAddress)

	game := services.NewGameService(store, broadcast.NewRoomBroadcaster(sessions), mon, board.NewGenerator(src),
		services.WithIdleTimeout(cfg.Game.IdleTimeout),
		services.OnRoomRemoved(sessions.UnbindRoom),
	)

	timers := timer.NewTimerManager(100 * time.Millisecond)
	defer timers.Stop()
	game.StartSweeper(timers, cfg.Game.CleanupInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start Server
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, cfg.Server.RPCAddress, game, sessions, mon)
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(ctx); err != nil {
		logger.Log.Errorf("Server stopped: %v", err)
	}
	logger.Log.Info("Server exited.")
}
