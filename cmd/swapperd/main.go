package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asset-swapper-go/internal/config"
	"asset-swapper-go/internal/database"
	"asset-swapper-go/internal/feeds"
	"asset-swapper-go/internal/ledger"
	"asset-swapper-go/internal/logger"
	"asset-swapper-go/internal/swapper"
	"asset-swapper-go/internal/venue"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Build the upstream clients
	decimalsTTL := time.Duration(cfg.Feeds.DecimalsTTLSecs) * time.Second
	newFeed := func(url string) feeds.Feed {
		return feeds.NewClient(url, cfg.Feeds.RateLimit, cfg.Feeds.RateLimitBurst, decimalsTTL, log)
	}
	newRouter := func(url string) venue.Router {
		return venue.NewClient(url, cfg.Venue.RateLimit, cfg.Venue.RateLimitBurst, log)
	}
	ledgerClient := ledger.NewClient(cfg.Ledger.BaseURL, cfg.Swapper.Account,
		cfg.Ledger.RateLimit, cfg.Ledger.RateLimitBurst, log)

	service, err := swapper.NewService(swapper.Params{
		Logger:     log,
		DB:         db,
		Ledger:     ledgerClient,
		Router:     newRouter(cfg.Venue.BaseURL),
		InputFeed:  newFeed(cfg.Feeds.InputURL),
		OutputFeed: newFeed(cfg.Feeds.OutputURL),
		NewFeed:    newFeed,
		NewRouter:  newRouter,
		Account:    cfg.Swapper.Account,
		Settings: swapper.Settings{
			InputAsset:         cfg.Swapper.InputAsset,
			OutputAsset:        cfg.Swapper.OutputAsset,
			InputFeed:          cfg.Feeds.InputURL,
			OutputFeed:         cfg.Feeds.OutputURL,
			Venue:              cfg.Venue.BaseURL,
			FeeTier:            cfg.Venue.FeeTier,
			Admin:              cfg.Swapper.Admin,
			FeeRecipient:       cfg.Swapper.FeeRecipient,
			TokenRecipient:     cfg.Swapper.TokenRecipient,
			SwapFeeBps:         cfg.Swapper.SwapFeeBps,
			DepositFeeBps:      cfg.Swapper.DepositFeeBps,
			MinExpectedSwapBps: cfg.Swapper.MinExpectedSwapBps,
			WithdrawalDelay:    time.Duration(cfg.Swapper.WithdrawalDelaySecs) * time.Second,
			Paused:             cfg.Swapper.Paused,
		},
	})
	if err != nil {
		log.Fatal("Failed to build swapper service", zap.Error(err))
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Resolve asset decimals before serving
	if err := service.Initialize(ctx); err != nil {
		log.Fatal("Failed to initialize swapper service", zap.Error(err))
	}

	apiServer := swapper.NewAPIServer(service, cfg.Server.ApiPort, log)
	apiServer.Start()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Service has been shut down.")
}
