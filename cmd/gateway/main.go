// Package main implements the authorization gateway, the single public
// entry point in front of the backend services.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/taskstream/taskstream/internal/config"
	"github.com/taskstream/taskstream/internal/gateway"
	"github.com/taskstream/taskstream/internal/platform/httpserver"
	"github.com/taskstream/taskstream/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("gateway failed: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validator := gateway.NewHTTPTokenValidator(cfg.Gateway.AuthServiceURL)
	gw, err := gateway.New(cfg.Gateway, validator, appLogger)
	if err != nil {
		return fmt.Errorf("building gateway: %w", err)
	}

	appLogger.Info("gateway starting",
		slog.Int("port", cfg.Server.Port),
		slog.Any("open_routes", cfg.Gateway.OpenRoutes))
	return httpserver.Run(ctx, cfg.Server.Port, gw.Handler(), appLogger)
}
