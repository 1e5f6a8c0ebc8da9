package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nexusacademy/creditguard/internal/config"
	dbRedis "github.com/nexusacademy/creditguard/internal/db/redis"
	logpkg "github.com/nexusacademy/creditguard/internal/logger"
	"github.com/nexusacademy/creditguard/internal/metrics"
	accessdayrepo "github.com/nexusacademy/creditguard/internal/repository/accessday"
	allowancerepo "github.com/nexusacademy/creditguard/internal/repository/allowance"
	catalogrepo "github.com/nexusacademy/creditguard/internal/repository/catalog"
	walletrepo "github.com/nexusacademy/creditguard/internal/repository/wallet"
	chiTransport "github.com/nexusacademy/creditguard/internal/transport/chi"
	allowanceuc "github.com/nexusacademy/creditguard/internal/usecase/allowance"
	creditsuc "github.com/nexusacademy/creditguard/internal/usecase/credits"
	guarduc "github.com/nexusacademy/creditguard/internal/usecase/guard"
	healthuc "github.com/nexusacademy/creditguard/internal/usecase/health"
	pricinguc "github.com/nexusacademy/creditguard/internal/usecase/pricing"
	usageuc "github.com/nexusacademy/creditguard/internal/usecase/usage"
	"github.com/nexusacademy/creditguard/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting creditguard API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Redis and Valkey speak the same commands here; one store covers both.
	switch cfg.Database.Driver {
	case "valkey", "redis":
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register guard metrics explicitly (no init())
	metrics.RegisterGuardMetrics()

	// Create repositories
	prefix := cfg.Storage.KeyPrefix
	counterTTL := time.Duration(cfg.Guard.CounterTTLHours) * time.Hour
	outcomeTTL := time.Duration(cfg.Guard.DebitTokenTTLHours) * time.Hour

	catalogRepo := catalogrepo.New(store, prefix)
	allowanceRepo := allowancerepo.New(store, prefix, counterTTL)
	ledger := walletrepo.New(store, prefix, cfg.Guard.DailyFreeCredits, counterTTL, outcomeTTL)
	accessRepo := accessdayrepo.New(store, prefix, cfg.Guard.TrialAccessDays)

	if len(cfg.Catalog.Seed) > 0 {
		if err := catalogRepo.Seed(ctx, cfg.Catalog.Seed); err != nil {
			logger.Fatal("Failed to seed tool-cost catalog", zap.Error(err))
		}
		logger.Info("Tool-cost catalog seeded", zap.Int("tools", len(cfg.Catalog.Seed)))
	}

	// Create use case services
	policies := make(map[string]pricinguc.ContextPolicy, len(cfg.Guard.Contexts))
	for toolID, p := range cfg.Guard.Contexts {
		policies[toolID] = pricinguc.ContextPolicy{ContextID: p.ContextID, DailyLimit: p.DailyLimit}
	}

	pricingSvc := pricinguc.New(catalogRepo, policies)
	allowanceSvc := allowanceuc.New(accessRepo, allowanceRepo, logger)
	guardSvc := guarduc.New(pricingSvc, allowanceSvc, ledger, guarduc.ApprovalConfirmer{}, logger)
	creditsSvc := creditsuc.New(ledger, accessRepo, logger)
	usageSvc := usageuc.New(allowanceRepo, ledger, accessRepo)
	healthSvc := healthuc.New(store)

	// Create chi server
	server := chiTransport.NewServer(guardSvc, pricingSvc, usageSvc, creditsSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
