// Command mirrord runs the chat mirror engine: a long-polling Telegram client
// feeding the dispatch pipeline, a sqlite entity store, and an operational
// HTTP endpoint for health and metrics.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/avolkov/tg-mirror/internal/config"
	"github.com/avolkov/tg-mirror/internal/httpapi"
	"github.com/avolkov/tg-mirror/internal/observability"
	"github.com/avolkov/tg-mirror/internal/render"
	"github.com/avolkov/tg-mirror/internal/repo"
	"github.com/avolkov/tg-mirror/internal/services"
	"github.com/avolkov/tg-mirror/internal/telegram"
)

var version = "dev"

func main() {
	// Absence of a .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	log := newLogger(cfg)
	log.Info().Str("version", version).Msg("starting mirrord")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrating database")
	}

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setting up tracing")
	}

	settings := config.NewSettings(cfg.Mirror)
	resolver := services.NewResolver(cfg.Mirror)

	renderer, err := render.New(log.With().Str("component", "render").Logger(), cfg.Render, cfg.Mirror)
	if err != nil {
		log.Fatal().Err(err).Msg("setting up renderer")
	}

	client := &telegram.Client{
		Log:           log.With().Str("component", "telegram").Logger(),
		Token:         cfg.Telegram.BotToken,
		Workers:       cfg.Telegram.Workers,
		UpdateTimeout: cfg.Telegram.UpdateTimeout,
		DB:            db,
		Resolver:      resolver,
		Settings:      settings,
		Mirrors: &services.MirrorService{
			DB:  db,
			Log: log.With().Str("component", "mirrors").Logger(),
		},
	}
	client.Dispatcher = &services.Dispatcher{
		DB:       db,
		Log:      log.With().Str("component", "dispatch").Logger(),
		Resolver: resolver,
		Deliverer: &services.Deliverer{
			Log:      log.With().Str("component", "delivery").Logger(),
			Renderer: renderer,
			Sender:   client,
			Settings: settings,
		},
	}

	ops := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           httpapi.NewRouter(log.With().Str("component", "ops").Logger(), db, version),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	go func() {
		log.Info().Str("addr", cfg.OpsAddr).Msg("ops server listening")
		if err := ops.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("ops server stopped")
		}
	}()

	if err := client.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("starting telegram client")
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	client.Wait()

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ops.Shutdown(shutCtx); err != nil {
		log.Warn().Err(err).Msg("shutting down ops server")
	}
	if err := shutdownOTel(shutCtx); err != nil {
		log.Warn().Err(err).Msg("shutting down tracing")
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn().Err(err).Msg("closing database")
		}
	}

	log.Info().Msg("bye")
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	if cfg.LogPretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger
}
