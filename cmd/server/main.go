package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mkoppen/linguachat/internal/api"
	"github.com/mkoppen/linguachat/internal/api/handler"
	"github.com/mkoppen/linguachat/internal/config"
	"github.com/mkoppen/linguachat/internal/domain"
	"github.com/mkoppen/linguachat/internal/repository/postgres"
	"github.com/mkoppen/linguachat/internal/repository/redis"
	"github.com/mkoppen/linguachat/internal/repository/sqlite"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Store.Driver).
		Msg("Starting chat relay server")

	// Initialize the session store
	var (
		sessionRepo domain.SessionRepository
		messageRepo domain.MessageRepository
		store       handler.Pinger
	)
	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		sessionRepo = postgres.NewSessionRepository(db.Pool)
		messageRepo = postgres.NewMessageRepository(db.Pool)
		store = db
	case "sqlite":
		db, err := sqlite.NewDB(context.Background(), cfg.SQLite.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open database")
		}
		defer db.Close()

		sessionRepo = sqlite.NewSessionRepository(db)
		messageRepo = sqlite.NewMessageRepository(db)
		store = db
	default:
		log.Fatal().Str("driver", cfg.Store.Driver).Msg("Unknown store driver")
	}

	// Initialize Redis when the rate limiter is enabled
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
	}

	// Initialize router
	router := api.NewRouter(cfg, sessionRepo, messageRepo, store, redisClient)

	// Create HTTP server. WriteTimeout stays unset so the server does
	// not cut long-lived SSE responses short.
	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
