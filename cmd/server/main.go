// Command server runs the user API as a local HTTP server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacentio/users/internal/app"
	"github.com/jacentio/users/internal/config"
	"github.com/jacentio/users/internal/logger"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h, err := app.NewHandler(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build handler", "error", err)
		os.Exit(1)
	}

	if err := app.RunServer(ctx, cfg, log, h); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}
