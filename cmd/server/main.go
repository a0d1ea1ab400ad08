// Package main is the entry point for the World Cup betting server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"worldcup-betting/internal/config"
	"worldcup-betting/internal/events"
	"worldcup-betting/internal/feed"
	"worldcup-betting/internal/handler"
	"worldcup-betting/internal/pkg/db"
	"worldcup-betting/internal/pkg/lock"
	"worldcup-betting/internal/service"
	"worldcup-betting/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to read .env file")
	}

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(&cfg.Log)

	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := dbPool.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	publisher := newPublisher(&cfg.Kafka)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()

	rules := service.Rules{BetCost: cfg.Betting.BetCost, WelcomeBonus: cfg.Betting.WelcomeBonus}
	tz := cfg.Betting.Location()
	locks := lock.New()

	verifier := service.NewGoogleVerifier(cfg.Auth.GoogleClientID, 10*time.Second)
	accountService := service.NewAccountService(dbPool, verifier, rules, cfg.Auth.SessionTTL)
	ledgerService := service.NewLedgerService(dbPool)
	wagerService := service.NewWagerService(dbPool, locks, rules)
	settlementService := service.NewSettlementService(dbPool, locks, publisher, rules)
	syncService := service.NewSyncService(dbPool, feed.New(&cfg.Feed), settlementService)
	rankingService := service.NewRankingService(dbPool, tz)
	bootstrapService := service.NewBootstrapService(dbPool, rules, tz, cfg.Auth.GoogleClientID)

	syncWorker := worker.NewSyncWorker(syncService, cfg.Sync.Interval, cfg.Sync.Timeout)
	if err := syncWorker.Start(ctx, cfg.Sync.OnStartup); err != nil {
		log.Fatal().Err(err).Msg("Failed to start sync worker")
	}
	defer syncWorker.Stop()

	api := handler.NewAPI(handler.Deps{
		Accounts:  accountService,
		Wagers:    wagerService,
		Settler:   settlementService,
		Syncer:    syncWorker,
		Bootstrap: bootstrapService,
		History:   ledgerService,
		Rankings:  rankingService,
		Health:    dbPool,
	}, cfg)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server is starting...")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

func setupLogger(cfg *config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func newPublisher(cfg *config.KafkaConfig) events.Publisher {
	if !cfg.Enabled() {
		log.Info().Msg("Kafka disabled, settlement events will not be published")
		return events.NopPublisher{}
	}
	log.Info().
		Strs("brokers", cfg.BrokerList()).
		Str("topic", cfg.Topic).
		Msg("Publishing settlement events to Kafka")
	return events.NewKafkaPublisher(events.NewWriter(cfg.BrokerList(), cfg.Topic))
}
