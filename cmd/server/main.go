// ============================================================================
// MAIN.GO - APPLICATION ENTRY POINT
// ============================================================================
// Startup flow:
// config -> logger -> key-value store -> rate limiter -> service -> router
// -> middleware -> HTTP server (+ metrics server) -> graceful shutdown
// ============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markoblogo/abvx-shortener/internal/config"
	httpHandler "github.com/markoblogo/abvx-shortener/internal/handler/http"
	"github.com/markoblogo/abvx-shortener/internal/ratelimit"
	"github.com/markoblogo/abvx-shortener/internal/repository"
	"github.com/markoblogo/abvx-shortener/internal/repository/memory"
	"github.com/markoblogo/abvx-shortener/internal/repository/postgres"
	redisStore "github.com/markoblogo/abvx-shortener/internal/repository/redis"
	"github.com/markoblogo/abvx-shortener/internal/service"
	"github.com/markoblogo/abvx-shortener/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// ========================================================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================================================
	// Environment variables, with an optional .env file for local runs
	// ========================================================================
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// ========================================================================
	// STEP 2: INITIALIZE STRUCTURED LOGGER
	// ========================================================================
	appLogger := logger.New(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
	})
	appLogger.Info("Starting abvx shortener",
		"environment", cfg.App.Environment,
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
	)
	if cfg.Shortener.APIKey == "" {
		appLogger.Warn("API_KEY is empty, every shorten request will be rejected")
	}

	// ========================================================================
	// STEP 3: OPEN THE KEY-VALUE STORE
	// ========================================================================
	// Links and rate-limit counters share one store. The backend is chosen
	// with STORE_BACKEND; every backend is wrapped with Prometheus timing.
	// ========================================================================
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, redisClient, err := openStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to open store", "backend", cfg.Store.Backend, "error", err)
		log.Fatalf("Store initialization failed: %v", err)
	}
	defer store.Close()
	store = repository.Instrument(store, cfg.Store.Backend)
	appLogger.WithFields(map[string]any{
		"backend":           cfg.Store.Backend,
		"rate_limit_max":    cfg.RateLimit.MaxRequests,
		"rate_limit_window": cfg.RateLimit.Window().String(),
	}).Info("Store ready")

	// ========================================================================
	// STEP 4: WIRE DEPENDENCIES
	// ========================================================================
	// Store -> Limiter + LinkService -> Handler -> Router
	// ========================================================================
	var limiter httpHandler.RateLimiter
	if cfg.RateLimit.Atomic && redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())
		appLogger.Info("Using atomic Redis rate limiter")
	} else {
		if cfg.RateLimit.Atomic {
			appLogger.Warn("RATE_LIMIT_ATOMIC requires STORE_BACKEND=redis, using the store limiter")
		}
		limiter = ratelimit.NewFixedWindowLimiter(store, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())
	}

	linkService := service.NewLinkService(store, appLogger.Logger)
	handler := httpHandler.NewHandler(linkService, appLogger, cfg.Shortener.BaseURL)

	router := httpHandler.NewRouter(handler, limiter, httpHandler.RouterConfig{
		APIKey:         cfg.Shortener.APIKey,
		ClientIPHeader: cfg.Shortener.ClientIPHeader,
	})

	// ========================================================================
	// STEP 5: APPLY MIDDLEWARE CHAIN
	// ========================================================================
	// Request -> Recovery -> Logging -> RequestID -> Metrics -> CORS -> Router
	// ========================================================================
	finalHandler := httpHandler.Chain(
		httpHandler.RecoveryMiddleware(appLogger),
		httpHandler.LoggingMiddleware(appLogger),
		httpHandler.RequestIDMiddleware,
		httpHandler.MetricsMiddleware,
		httpHandler.CORSMiddleware,
	)(router)

	// ========================================================================
	// STEP 6: CREATE HTTP SERVERS
	// ========================================================================
	// /metrics lives on its own port so it can never shadow a slug
	// ========================================================================
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      finalHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsServer *http.Server
	if cfg.App.EnableMetrics {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())

		metricsServer = &http.Server{
			Addr:              ":" + cfg.App.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	// ========================================================================
	// STEP 7: START SERVERS IN BACKGROUND
	// ========================================================================
	go func() {
		appLogger.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server failed", "error", err)
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			appLogger.Info("Metrics server starting", "address", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// ========================================================================
	// STEP 8: GRACEFUL SHUTDOWN
	// ========================================================================
	// Stop accepting requests, drain in-flight ones, then close the store
	// (deferred above)
	// ========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
		return
	}

	appLogger.Info("Server exited gracefully")
}

// openStore opens the configured backend. The Redis client is returned as
// well so the atomic limiter can share it; it is nil for other backends.
func openStore(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (repository.Store, *redis.Client, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client, err := redisStore.InitRedis(cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return redisStore.NewStore(client), client, nil

	case config.BackendPostgres:
		pool, err := postgres.InitDB(
			ctx,
			cfg.Database.DatabaseDSN(),
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			return nil, nil, err
		}

		pg := postgres.NewStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}

		go pg.RunJanitor(ctx, cfg.Database.PurgeInterval, func(err error) {
			appLogger.Warn("Purging expired keys failed", "error", err)
		})
		return pg, nil, nil

	case config.BackendMemory:
		return memory.NewStore(memory.DefaultCleanupInterval), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
