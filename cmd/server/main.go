package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	checkoutapp "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/commerce"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	// Bootstrap logger, used until the OTEL logs pipeline is up
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	pipeline, err := telemetry.Start(ctx, telemetry.Config{
		ServiceName:       cfg.Telemetry.ServiceName,
		Environment:       cfg.App.Env,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		TracesEnabled:     cfg.Telemetry.Enabled,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	log, err := logger.New(logCfg,
		logger.WithCore(pipeline.LogCore(logger.ParseLevel(cfg.Log.Level))),
		logger.WithFields(zap.String("service", cfg.App.Name)),
	)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Recorders stay nil interfaces when metrics are off
	var (
		stepRecorder     checkoutapp.Recorder
		evidenceRecorder payment.Recorder
		httpRecorder     middleware.HTTPRecorder
	)
	if pipeline.MetricsEnabled() {
		checkoutMetrics, err := telemetry.NewCheckoutMetrics(pipeline.Meter(cfg.Telemetry.ServiceName), log)
		if err != nil {
			log.Fatal("Failed to create checkout metrics", zap.Error(err))
		}
		stepRecorder = checkoutMetrics
		evidenceRecorder = checkoutMetrics
		httpRecorder = checkoutMetrics
	}

	// Commerce backend client
	var clientOpts []commerce.Option
	clientOpts = append(clientOpts, commerce.WithLogger(log), commerce.WithBreaker(cfg.Breaker))
	commerceClient, err := commerce.NewClient(cfg.Commerce, clientOpts...)
	if err != nil {
		log.Fatal("Failed to create commerce client", zap.Error(err))
	}
	log.Info("Commerce backend configured",
		zap.String("base_url", cfg.Commerce.BaseURL),
		zap.Duration("timeout", cfg.Commerce.Timeout),
		zap.Bool("breaker", cfg.Breaker.Enabled),
	)

	// Pickup location cache
	pickupCache, err := cache.NewPickupCacheFactory(cfg.Cache, cfg.Redis, cache.WithLogger(log)).Create()
	if err != nil {
		log.Fatal("Failed to create pickup location cache", zap.Error(err))
	}
	var serviceCache checkoutapp.PickupLocationCache
	if pickupCache != nil {
		serviceCache = pickupCache
		defer func() {
			if err := pickupCache.Close(); err != nil {
				log.Error("Error closing pickup location cache", zap.Error(err))
			}
		}()
	}

	// Evidence upload verification
	var verifier payment.UploadVerifier
	if cfg.Storage.VerifyUploads {
		s3Verifier, err := storage.NewS3EvidenceVerifier(ctx, cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create evidence verifier", zap.Error(err))
		}
		verifier = s3Verifier
		log.Info("Evidence uploads are verified in object storage", zap.String("bucket", s3Verifier.Bucket()))
	}

	// Access tokens are checked locally only when a secret is configured
	var tokenVerifier session.AccessTokenVerifier
	if cfg.Auth.AccessTokenSecret != "" {
		tokenVerifier = auth.NewTokenVerifier(cfg.Auth)
	}

	// Application services
	sessions := session.NewManager(commerceClient, tokenVerifier, session.CookiePolicy{
		Domain:   cfg.Cookie.Domain,
		Path:     cfg.Cookie.Path,
		Secure:   cfg.Cookie.Secure,
		SameSite: cfg.Cookie.SameSiteMode(),
		MaxAge:   cfg.Cookie.MaxAge,
	}, log)
	checkoutService := checkoutapp.NewService(commerceClient, sessions, checkoutapp.ServiceConfig{
		Cache:    serviceCache,
		Recorder: stepRecorder,
		Logger:   log,
	})
	evidenceService := payment.NewEvidenceService(commerceClient, payment.EvidenceServiceConfig{
		AllowedMimeTypes: cfg.Evidence.AllowedMimeTypes,
		Verifier:         verifier,
		Recorder:         evidenceRecorder,
		Logger:           log,
	})

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	securityConfig := middleware.DefaultSecurityConfig()
	securityConfig.HSTSEnabled = cfg.HTTP.HSTSEnabled
	tracingConfig := middleware.DefaultTracingConfig()
	tracingConfig.ServiceName = cfg.Telemetry.ServiceName
	tracingConfig.Enabled = cfg.Telemetry.Enabled

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitRequests > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORS:           corsConfig,
		Security:       securityConfig,
		Tracing:        tracingConfig,
		Metrics:        httpRecorder,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		RateLimiter:    rateLimiter,
	}, router.Handlers{
		Checkout: handler.NewCheckoutHandler(checkoutService),
		Shipping: handler.NewShippingHandler(checkoutService),
		Evidence: handler.NewPaymentEvidenceHandler(evidenceService),
		Cart:     handler.NewCartHandler(sessions),
		System:   handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Flush telemetry after the last request has finished
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	if err := pipeline.Shutdown(flushCtx); err != nil {
		log.Error("Error flushing telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
