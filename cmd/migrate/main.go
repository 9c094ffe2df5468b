package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mkoppen/linguachat/internal/config"
	"github.com/mkoppen/linguachat/internal/repository/postgres"
)

// Applies pending schema migrations to the postgres store. The sqlite
// store bootstraps its own schema on open and needs no migration step.
func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Store.Driver != "postgres" {
		log.Info().Str("driver", cfg.Store.Driver).Msg("Store needs no migrations")
		return
	}

	sourceURL := os.Getenv("MIGRATIONS_URL")
	if sourceURL == "" {
		sourceURL = "file://migrations"
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Msg("Running database migrations")

	if err := postgres.RunMigrations(cfg.Database.DSN(), sourceURL); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
