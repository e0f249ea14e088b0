package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/summit-api/internal/audit"
	"github.com/ksred/summit-api/internal/auth"
	"github.com/ksred/summit-api/internal/config"
	"github.com/ksred/summit-api/internal/database"
	"github.com/ksred/summit-api/internal/ledger"
	"github.com/ksred/summit-api/internal/metrics"
	"github.com/ksred/summit-api/internal/store"
	"github.com/ksred/summit-api/internal/trading"
	"github.com/ksred/summit-api/pkg/middleware"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the ledger API server with graceful shutdown support
func main() {
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = ".env"
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewDatabase(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		zlog.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("Failed to initialize database")
	}
	st := store.NewDatabase(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder("summit")
	if err := recorder.Register(registry); err != nil {
		zlog.Fatal().Err(err).Msg("Failed to register metrics")
	}

	authService, err := newAuthService(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to register credentials")
	}

	ledgerService := ledger.NewService(st, ledger.Options{
		Metrics:             recorder,
		SavingsOnlyDeposits: cfg.SavingsOnlyDeposits,
		IdempotencyTTL:      cfg.IdempotencyTTL,
	})
	tradingService := trading.NewService(st, trading.Options{
		Metrics:        recorder,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})
	auditService := audit.NewService(st, audit.Options{
		DefaultLimit: cfg.HistoryDefaultLimit,
		MaxLimit:     cfg.HistoryMaxLimit,
	})

	limiter := middleware.NewRateLimiter(middleware.RateLimits{
		AuthPerMin:     cfg.RateLimitAuthPerMin,
		MutationPerMin: cfg.RateLimitMutationPerMin,
		QueryPerMin:    cfg.RateLimitQueryPerMin,
	})

	router := newRouter(routerDeps{
		auth:     authService,
		ledger:   ledgerService,
		trading:  tradingService,
		audit:    auditService,
		limiter:  limiter,
		registry: registry,
	})

	// Background maintenance: expired idempotency keys and idle rate limit buckets
	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	defer backgroundCancel()
	go store.NewSweeper(st, cfg.IdempotencySweepInterval).Start(backgroundCtx)
	go limiter.RunCleanup(backgroundCtx.Done())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown setup
	go func() {
		zlog.Info().Str("port", cfg.Port).Str("driver", cfg.DBDriver).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")
	backgroundCancel()

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	zlog.Info().Msg("Server exiting")
}

// newAuthService registers the admin identity and every demo user.
func newAuthService(cfg *config.Config) (*auth.Service, error) {
	authService := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	if err := authService.Register(cfg.AdminIdentity, cfg.AdminSecret, auth.RoleAdmin); err != nil {
		return nil, err
	}
	for identity, secret := range cfg.DemoUsers {
		if err := authService.Register(identity, secret, auth.RoleUser); err != nil {
			return nil, err
		}
	}
	zlog.Info().Int("users", len(cfg.DemoUsers)).Str("admin", cfg.AdminIdentity).Msg("Registered API credentials")
	return authService, nil
}
