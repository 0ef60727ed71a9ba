package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/release-health-service/internal/cache"
	"github.com/kjstillabower/release-health-service/internal/config"
	"github.com/kjstillabower/release-health-service/internal/degraded"
	httphandler "github.com/kjstillabower/release-health-service/internal/http"
	"github.com/kjstillabower/release-health-service/internal/lifecycle"
	"github.com/kjstillabower/release-health-service/internal/observability"
	"github.com/kjstillabower/release-health-service/internal/service"
	"github.com/kjstillabower/release-health-service/internal/upstream"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	reviewsClient, err := upstream.NewPlayReviewsClient(cfg.APIToken, cfg.ReviewsAPIURL, cfg.UpstreamTimeout)
	if err != nil {
		logger.Fatal("reviews client", zap.Error(err))
	}
	crashClient, err := upstream.NewAnalyticsCrashClient(cfg.APIToken, cfg.AnalyticsAPIURL, cfg.UpstreamTimeout)
	if err != nil {
		logger.Fatal("analytics client", zap.Error(err))
	}
	vitalsClient, err := upstream.NewPlayVitalsClient(cfg.APIToken, cfg.VitalsAPIURL, cfg.UpstreamTimeout)
	if err != nil {
		logger.Fatal("vitals client", zap.Error(err))
	}

	var snapshotCache cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		snapshotCache = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		snapshotCache = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	targets := service.Targets{
		PackageName:     cfg.PackageName,
		PropertyID:      cfg.PropertyID,
		ReviewFetchSize: cfg.ReviewFetchSize,
		VitalsPageSize:  cfg.VitalsPageSize,
	}
	snapshotService := service.NewSnapshotService(reviewsClient, crashClient, vitalsClient, snapshotCache, cfg.SnapshotTTL, targets, cfg.CoalesceTimeout)

	tokenCheck := func(ctx context.Context) error {
		return reviewsClient.ValidateToken(ctx, cfg.PackageName)
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()
	degraded.StartRecoveryListener(appCtx, degraded.ValidateFunc(tokenCheck), cfg.DegradedRetryInitial, cfg.DegradedRetryMax, func() {
		logger.Error("upstream recovery exhausted; telemetry remains degraded")
	})

	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:         cfg.OverloadWindow,
		OverloadThresholdPct:   cfg.OverloadThresholdPct,
		RateLimitRPS:           cfg.RateLimitRPS,
		RateLimitBurst:         cfg.RateLimitBurst,
		DegradedWindow:         cfg.DegradedWindow,
		DegradedErrorPct:       cfg.DegradedErrorPct,
		IdleWindow:             cfg.IdleWindow,
		IdleThresholdReqPerMin: cfg.IdleThresholdReqPerMin,
		MinimumLifespan:        cfg.MinimumLifespan,
		StartTime:              time.Now(),
	}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(snapshotService, tokenCheck, healthConfig, logger, limiter)

	observability.RegisterRateLimitGauges(cfg.OverloadWindow)

	if cfg.WarmCache {
		warmer := cache.NewWarmer(snapshotService, logger)
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := warmer.Warm(warmCtx); err != nil {
			logger.Warn("snapshot cache warming failed", zap.Error(err))
		}
		warmCancel()
		if cfg.WarmInterval > 0 {
			go func() {
				if err := warmer.WarmPeriodic(appCtx, cfg.WarmInterval); err != nil && err != context.Canceled {
					logger.Error("periodic snapshot warming stopped", zap.Error(err))
				}
			}()
		}
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	dashboardRouter := router.PathPrefix("/dashboard").Subrouter()
	dashboardRouter.Use(httphandler.RateLimitMiddleware(limiter))
	dashboardRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	dashboardRouter.HandleFunc("", handler.GetDashboard).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	appCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	observability.RecordShutdownInFlight(inFlight)
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
