package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/rpsserver/config"
	"github.com/wfunc/rpsserver/logger"
	"github.com/wfunc/rpsserver/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Init("info", false)
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Development)
	defer logger.Sync()

	gameServer, err := server.NewGameServer(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to create game server: %v", err)
	}

	go func() {
		logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
		if err := gameServer.Start(); err != nil {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Server forced to shutdown: %v", err)
	}
	logger.Log.Info("Server exited")
}
