// Command stream consumes the users table stream and releases stale email
// claims.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/users/internal/app"
	"github.com/jacentio/users/internal/config"
	"github.com/jacentio/users/internal/logger"
	"github.com/jacentio/users/stream"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(log)

	s, err := app.NewDynamoStore(context.Background(), cfg)
	if err != nil {
		log.Error("failed to create store", "error", err)
		os.Exit(1)
	}

	lambda.Start(stream.NewHandler(s, log).HandleClaimRelease)
}
