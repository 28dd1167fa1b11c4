// Package main implements the token service: registration, token
// issuance and validation, and the identity directory the other
// services resolve users through.
package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/taskstream/taskstream/internal/api"
	"github.com/taskstream/taskstream/internal/api/middleware"
	"github.com/taskstream/taskstream/internal/api/shared"
	"github.com/taskstream/taskstream/internal/config"
	"github.com/taskstream/taskstream/internal/platform/httpserver"
	"github.com/taskstream/taskstream/internal/platform/logger"
	"github.com/taskstream/taskstream/internal/platform/postgres"
	"github.com/taskstream/taskstream/internal/service/auth"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	if err := run(); err != nil {
		log.Fatalf("authserver failed: %v", err)
	}
}

func run() error {
	// Missing .env is fine; config falls back to real env vars.
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

	db, err := openDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := postgres.Migrate(db, migrationsFS, "migrations"); err != nil {
		return err
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("creating JWT service: %w", err)
	}

	handler := api.NewAuthHandler(
		postgres.NewUserStore(db), jwtService, auth.NewBcryptVerifier())

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Trace)
	r.Get("/health", healthHandler)
	r.Mount("/", handler.Routes())

	appLogger.Info("token service starting", slog.Int("port", cfg.Server.Port))
	return httpserver.Run(ctx, cfg.Server.Port, r, appLogger)
}

func openDatabase(ctx context.Context, url string) (*sql.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
