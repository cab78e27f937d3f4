// Command cupidbot prepares the shared-planning core: it applies the
// schema, verifies connectivity, and wires the managers the chat transport
// embeds. It exits once the environment checks out.
package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"cupidbot/internal/appointment"
	"cupidbot/internal/config"
	"cupidbot/internal/extract"
	"cupidbot/internal/store"
	"cupidbot/internal/userdir"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}
	log.Info().Msg("connected to postgres")

	// apply schema
	if migration, err := os.ReadFile("db/migrations/001_init.sql"); err != nil {
		log.Warn().Err(err).Msg("migration file not found, skipping")
	} else if _, err := pool.Exec(ctx, string(migration)); err != nil {
		log.Fatal().Err(err).Msg("apply migration")
	} else {
		log.Info().Msg("migration applied")
	}

	st := store.New(pool)
	users, err := st.CountUsers(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("read users")
	}
	paired, err := st.CountPairedUsers(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("read pairings")
	}
	log.Info().Int("users", users).Int("paired", paired).Msg("store ready")

	// the wiring the transport embeds; building it here surfaces config
	// problems before the bot goes online
	var extractor appointment.Extractor
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set, free-text creation will be unavailable")
	} else {
		client, err := extract.NewClient(ctx, extract.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.ExtractTimeout,
			RPS:     cfg.ExtractRPS,
			Burst:   cfg.ExtractBurst,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("create extraction client")
		}
		extractor = client
		log.Info().Str("model", cfg.GeminiModel).Msg("extraction client ready")
	}

	directory := userdir.New(st, log)
	manager := appointment.NewManager(st, extractor, appointment.Config{
		PastTolerance:  cfg.PastTolerance,
		ConflictWindow: cfg.ConflictWindow,
	}, log)

	if _, err := directory.IsPaired(ctx, 0); err != nil {
		log.Fatal().Err(err).Msg("directory check")
	}
	if _, err := manager.List(ctx, "00000000-0000-0000-0000-000000000000", nil, nil); err != nil {
		log.Fatal().Err(err).Msg("manager check")
	}

	log.Info().Msg("core initialized")
}
