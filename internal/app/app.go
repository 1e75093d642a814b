// Package app wires configuration, storage and handlers for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jacentio/users/api"
	"github.com/jacentio/users/internal/config"
	"github.com/jacentio/users/store"
	"github.com/jacentio/users/store/memory"
	"github.com/jacentio/users/user"
)

const shutdownTimeout = 30 * time.Second

// NewDynamoStore connects the DynamoDB store described by cfg.
func NewDynamoStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	client, err := store.NewClient(ctx, store.ClientConfig{
		Region:   cfg.AWS.Region,
		Endpoint: cfg.DynamoDBEndpoint(),
		Offline:  cfg.IsOffline,
	})
	if err != nil {
		return nil, err
	}

	return store.New(client, store.Config{
		UsersTable:  cfg.Store.UsersTable,
		UniqueTable: cfg.Store.EmailClaimsTable,
	}), nil
}

// NewStore returns the user.Store selected by STORE_DRIVER.
func NewStore(ctx context.Context, cfg *config.Config) (user.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return memory.New(), nil
	case "dynamodb":
		s, err := NewDynamoStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// NewHandler builds the API handler for cfg.
func NewHandler(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*api.Handler, error) {
	s, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	svc := user.NewService(s, user.WithListLimit(cfg.Store.ListLimit))

	logger.Info("handler ready",
		"store", cfg.Store.Driver,
		"usersTable", cfg.Store.UsersTable,
		"environment", cfg.Environment(),
	)

	return api.NewHandler(svc, logger, api.Options{
		CORSOrigin:  cfg.CORSOrigin,
		Environment: cfg.Environment(),
		Stage:       cfg.Stage,
		Version:     cfg.Version,
	}), nil
}

// RunServer serves h on cfg.HTTP.Port until ctx is cancelled, then shuts
// down gracefully.
func RunServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, h *api.Handler) error {
	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           api.NewRouter(h, cfg.HTTP.RequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
