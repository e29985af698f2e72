// Package main is the entry point for the market data backend.
// It wires the cache store, upstream clients, watchlists, and the HTTP API,
// then runs until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/cache"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/clients/alphavantage"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/clients/quickquote"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/config"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/database"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/domain"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/logos"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/marketdata"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/reliability"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/scheduler"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/server"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/watchlist"
	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet, write to stderr directly
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Bool("dev_mode", cfg.DevMode).
		Msg("Starting market data backend")

	// Two databases with different durability profiles: cache.db holds
	// refetchable market data, appdata.db holds watchlist state whose
	// mutations must be durable on return. The split also keeps the cache
	// retention sweep away from user state.
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	stateDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "appdata.db"),
		Profile: database.ProfileStandard,
		Name:    "appdata",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open application database")
	}
	defer stateDB.Close()

	cacheStore, err := cache.NewStore(cacheDB.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache store")
	}
	stateStore, err := cache.NewStore(stateDB.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize state store")
	}

	// Upstream clients
	avClient := alphavantage.NewClient(cfg.AlphaVantageAPIKey, log)
	quoteClient := quickquote.NewClient(cfg.QuickQuoteBaseURL, log)

	// Services
	market := marketdata.NewService(avClient, cacheStore, log)
	watchlists := watchlist.NewStore(stateStore, log)
	// Quotes come from the cached top-movers snapshot when possible, and only
	// fall back to the per-symbol provider for symbols outside the snapshot
	quoteFn := func(ctx context.Context, symbol string) (domain.Ticker, error) {
		if ticker, ok := market.QuoteFromSnapshot(symbol); ok {
			return ticker, nil
		}
		return quoteClient.Quote(ctx, symbol)
	}
	quotes := watchlist.NewQuoteService(watchlists, quoteFn, log)
	logoResolver := logos.NewResolver(cfg.LogoURLTemplate, log)

	// Optional nightly backups to S3-compatible storage
	var backups server.BackupTrigger
	sched := scheduler.New(log)

	if cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(context.Background(), reliability.S3Config{
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			Bucket:          cfg.Backup.Bucket,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup storage")
		}

		backupService := reliability.NewBackupService(cfg.DataDir, s3Client, log)
		backups = backupService

		if err := sched.AddJob(cfg.Backup.Schedule, reliability.NewBackupJob(backupService)); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule backup job")
		}
	}

	// Maintenance jobs: prune stale cache rows daily, reset the upstream
	// request budget at midnight. The sweep runs on the cache store only;
	// watchlist state never expires.
	if err := sched.AddJob("@daily", cache.NewCleanupJob(cacheStore, cache.DefaultRetention, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache cleanup job")
	}
	if err := sched.AddJob("0 0 * * *", alphavantage.NewResetJob(avClient, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule rate limit reset job")
	}

	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:        log,
		Port:       cfg.Port,
		DevMode:    cfg.DevMode,
		DataDir:    cfg.DataDir,
		CacheDB:    cacheDB,
		StateDB:    stateDB,
		Market:     market,
		Watchlists: watchlists,
		Quotes:     quotes,
		Logos:      logoResolver,
		RateLimit:  avClient,
		Backups:    backups,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatal().Err(err).Msg("Server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
