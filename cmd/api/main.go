package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/config"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Wallet Ledger")

	defaults, err := walletDefaults(cfg.Wallet)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid wallet limit configuration")
	}

	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Repositories and caches
	walletRepo := pgStorage.NewWalletRepo(pool, cfg.Database.OpTimeout)
	txRepo := pgStorage.NewTransactionRepo(pool)
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Core services
	hashSvc := service.NewArgon2PinHasher()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	ledgerSvc := service.NewLedgerService(
		walletRepo,
		txRepo,
		idempotencyCache,
		hashSvc,
		ports.SystemClock(),
		defaults,
		log,
	)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// walletDefaults parses the configured currency set and per-bucket daily
// ceilings. Limits arrive as decimal strings and stay decimal end to end.
func walletDefaults(cfg config.WalletConfig) (service.WalletDefaults, error) {
	defaults := service.WalletDefaults{
		WithdrawalLimits: make(map[domain.Currency]decimal.Decimal),
		TransferLimits:   make(map[domain.Currency]decimal.Decimal),
	}
	for _, raw := range cfg.Currencies {
		defaults.Currencies = append(defaults.Currencies, domain.ParseCurrency(raw))
	}
	for raw, limit := range cfg.WithdrawalLimits {
		d, err := decimal.NewFromString(limit)
		if err != nil {
			return defaults, fmt.Errorf("withdrawal limit for %s: %w", raw, err)
		}
		defaults.WithdrawalLimits[domain.ParseCurrency(raw)] = d
	}
	for raw, limit := range cfg.TransferLimits {
		d, err := decimal.NewFromString(limit)
		if err != nil {
			return defaults, fmt.Errorf("transfer limit for %s: %w", raw, err)
		}
		defaults.TransferLimits[domain.ParseCurrency(raw)] = d
	}
	return defaults, nil
}
