package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zkledger/config"
	httpHandler "zkledger/internal/adapter/http/handler"
	pgStorage "zkledger/internal/adapter/storage/postgres"
	redisStorage "zkledger/internal/adapter/storage/redis"
	"zkledger/internal/adapter/zkp"
	"zkledger/internal/core/ports"
	"zkledger/internal/service"
	"zkledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting zkledger")

	ctx := context.Background()

	// Apply schema migrations before taking traffic
	if err := pgStorage.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	balanceRepo := pgStorage.NewBalanceRepo(pool)
	transferRepo := pgStorage.NewTransferRepo(pool)
	proofRepo := pgStorage.NewProofRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Secret, cfg.AES.Salt)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	engine := service.NewMiMCCommitmentEngine()

	// Compile the circuit and run the Groth16 setup. This takes a few
	// seconds at startup; proofs afterwards are fast.
	prover, err := zkp.NewGroth16Prover(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Groth16 prover")
	}

	// PIN failure window (Redis-backed, shared across instances)
	pinLimiter := redisStorage.NewPINAttemptLimiter(rdb, cfg.PIN.MaxAttempts, cfg.PIN.Window)

	// Initialize business services
	proofSvc := service.NewProofService(prover, engine, cfg.ZK.ProofTimeout, log)
	ledgerSvc := service.NewLedgerService(
		accountRepo,
		balanceRepo,
		transferRepo,
		proofRepo,
		transactor,
		encSvc,
		hashSvc,
		engine,
		pinLimiter,
		cfg.Ledger.SeedBalance,
		log,
	)
	transferSvc := service.NewTransferService(
		accountRepo,
		balanceRepo,
		transferRepo,
		transactor,
		encSvc,
		ledgerSvc,
		proofSvc,
		log,
	)
	authSvc := service.NewAuthService(accountRepo, hashSvc, tokenSvc, engine, ledgerSvc, transactor, log)

	// Initialize rate limit store
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		LedgerSvc:      ledgerSvc,
		TransferSvc:    transferSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
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
