// Package main is the entry point for the TourHost API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mvail/tourhost/internal/analytics"
	"github.com/mvail/tourhost/internal/api"
	"github.com/mvail/tourhost/internal/billing"
	"github.com/mvail/tourhost/internal/cache"
	"github.com/mvail/tourhost/internal/client"
	"github.com/mvail/tourhost/internal/config"
	"github.com/mvail/tourhost/internal/health"
	"github.com/mvail/tourhost/internal/idempotency"
	"github.com/mvail/tourhost/internal/middleware"
	"github.com/mvail/tourhost/internal/ticket"
	"github.com/mvail/tourhost/internal/tour"
	"github.com/mvail/tourhost/internal/tracing"
	"github.com/mvail/tourhost/internal/upload"
)

// tourCacheTTL bounds staleness for the Redis tour snapshot cache. Writes
// invalidate eagerly; the TTL only matters when an invalidation is lost.
const tourCacheTTL = 5 * time.Minute

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("TourHost API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	summaryAttrs := make([]any, 0, 32)
	for k, v := range cfg.LogSummary() {
		summaryAttrs = append(summaryAttrs, k, v)
	}
	logger.Info("configuration loaded", summaryAttrs...)

	// Distributed tracing
	tracingProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "tourhost-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporterType,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracing", "error", err)
		}
	}()

	handler, cleanup, err := buildServer(cfg, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildServer wires the configuration into the full request handler:
// backing stores, domain handlers, metrics registry, and the middleware
// chain. The returned cleanup stops background workers and closes the
// Redis connection.
func buildServer(cfg *config.Config, logger *slog.Logger) (http.Handler, func(), error) {
	// Redis backs the tour cache, the rate limiter, and readiness checks.
	// Without it the server falls back to in-memory equivalents.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
	}

	var kv cache.KV
	var rateLimitStore middleware.RateLimitStore
	var redisChecker api.HealthChecker
	if redisClient != nil {
		kv = cache.NewRedisKV(redisClient)
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient)
		redisChecker = health.NewRedisChecker(redisClient)
	} else {
		logger.Warn("REDIS_URL not set, using in-memory cache and rate limiting")
		kv = cache.NewMemoryKV()
		rateLimitStore = middleware.NewInMemoryRateLimitStore()
	}

	// Repositories. The tour repository is wrapped in a read-through cache.
	tourRepo := cache.NewTourRepository(tour.NewInMemoryRepository(), kv, tourCacheTTL, logger)
	clientRepo := client.NewInMemoryRepository()
	ticketRepo := ticket.NewInMemoryRepository()
	billingRepo := billing.NewInMemoryRepository()

	if cfg.Env == "development" {
		if err := tour.Seed(context.Background(), tourRepo, 3); err != nil {
			return nil, nil, fmt.Errorf("seed demo tours: %w", err)
		}
		logger.Info("seeded demo tours")
	}

	// Panorama upload signing requires R2 credentials.
	var uploadService *upload.Service
	var r2Checker api.HealthChecker
	if cfg.R2BucketName != "" {
		var err error
		uploadService, err = upload.NewService(upload.ServiceConfig{
			BucketName:      cfg.R2BucketName,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Endpoint:        cfg.R2Endpoint,
			MaxSizeMB:       cfg.R2MaxUploadSizeMB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("initialize upload service: %w", err)
		}
		r2Checker = health.NewR2Checker(uploadService.GetS3Client(), cfg.R2BucketName)
	} else {
		logger.Warn("R2 not configured, upload endpoints disabled")
	}

	// Tour status transition policy
	var policy tour.TransitionPolicy = tour.AnyTransition{}
	if cfg.ReviewTransitionsOnly {
		policy = tour.ReviewTransitions{}
	}

	events := tour.NewEventBroadcaster()

	tourHandlers := api.NewTourHandlers(tourRepo, policy, events)
	hotspotHandlers := api.NewHotspotHandlers(tourRepo, events)
	sceneHandlers := api.NewSceneHandlers(tourRepo, events)
	clientHandlers := api.NewClientHandlers(clientRepo)
	ticketHandlers := api.NewTicketHandlers(ticketRepo)
	billingHandlers := api.NewBillingHandlers(billingRepo, billing.NewStripeClient(cfg.StripeAPIKey))
	analyticsHandlers := api.NewAnalyticsHandlers(analytics.NewService(tourRepo, clientRepo, billingRepo))
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		RedisChecker: redisChecker,
		R2Checker:    r2Checker,
	})

	// Prometheus metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		return nil, nil, fmt.Errorf("register metrics: %w", err)
	}

	// Idempotency keys for checkout, expired on the Stripe retention schedule
	idemRepo := idempotency.NewInMemoryRepository()
	stopCleanup := make(chan struct{})
	go idempotency.RunPeriodicCleanup(idemRepo, time.Hour, idempotency.DefaultExpiry, stopCleanup)

	mux := http.NewServeMux()

	mux.HandleFunc("/tours", tourHandlers.ListTours)
	mux.HandleFunc("/tours/", tourHandlers.Route)
	mux.HandleFunc("/hotspots", hotspotHandlers.CreateHotspot)
	mux.HandleFunc("/hotspots/", hotspotHandlers.Route)
	mux.HandleFunc("/scenes/", sceneHandlers.Route)
	mux.HandleFunc("/clients", clientHandlers.Collection)
	mux.HandleFunc("/clients/", clientHandlers.Route)
	mux.HandleFunc("/tickets", ticketHandlers.Collection)
	mux.HandleFunc("/tickets/", ticketHandlers.Route)
	mux.HandleFunc("/invoices", billingHandlers.ListInvoices)
	mux.HandleFunc("/subscriptions", billingHandlers.ListSubscriptions)
	mux.HandleFunc("/subscriptions/", billingHandlers.Route)
	mux.HandleFunc("/analytics", analyticsHandlers.Dashboard)

	// Checkout carries money; it gets its own tighter rate limit plus
	// mandatory idempotency keys.
	mux.Handle("/billing/checkout",
		middleware.RateLimiter(rateLimitStore, middleware.DefaultCheckoutLimit(), middleware.ClientKeyFunc())(
			middleware.Idempotency(idemRepo, map[string]bool{"/billing/checkout": true})(
				http.HandlerFunc(billingHandlers.Checkout))))

	if uploadService != nil {
		uploadHandlers := api.NewUploadHandlers(uploadService)
		uploadLimiter := middleware.RateLimiter(rateLimitStore, middleware.DefaultUploadLimit(), middleware.ClientKeyFunc())
		mux.Handle("/uploads/sign", uploadLimiter(http.HandlerFunc(uploadHandlers.SignUpload)))
		mux.Handle("/uploads/finalize", uploadLimiter(http.HandlerFunc(uploadHandlers.FinalizeUpload)))
	}

	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path, everything else returns 404
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"tourhost-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	corsConfig := middleware.CORSConfig{
		AllowedOrigins: splitOrigins(cfg.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Idempotency-Key", "X-Request-ID"},
		MaxAge:         300,
	}

	// Middleware chain, outermost first: request id -> tracing -> logging ->
	// metrics -> CORS -> global rate limit -> routes.
	var handler http.Handler = mux
	handler = middleware.RateLimiter(rateLimitStore, middleware.DefaultGlobalLimit(), middleware.ClientKeyFunc())(handler)
	handler = middleware.CORS(corsConfig)(handler)
	handler = middleware.HTTPMetrics(metrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Tracing("tourhost-api")(handler)
	handler = middleware.RequestID(handler)

	if cfg.ProfilingEnabled && cfg.Env == "development" {
		handler = middleware.Profiling(middleware.ProfilingConfig{
			Enabled:     true,
			Environment: cfg.Env,
		})(handler)
		logger.Warn("pprof profiling endpoints enabled at /debug/pprof")
	}

	cleanup := func() {
		close(stopCleanup)
		if redisClient != nil {
			redisClient.Close()
		}
	}
	return handler, cleanup, nil
}

// splitOrigins parses the comma-separated CORS allowlist, dropping empty
// entries so a trailing comma does not open a blank origin.
func splitOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
