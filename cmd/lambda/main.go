// Command lambda serves the user API from a single Lambda function behind
// API Gateway.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

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

	h, err := app.NewHandler(context.Background(), cfg, log)
	if err != nil {
		log.Error("failed to build handler", "error", err)
		os.Exit(1)
	}

	lambda.Start(h.Route)
}
