package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/dashboard/internal/api/router"
	"github.com/clinicdesk/dashboard/internal/appointments"
	"github.com/clinicdesk/dashboard/internal/auth"
	"github.com/clinicdesk/dashboard/internal/booking"
	"github.com/clinicdesk/dashboard/internal/cache"
	appconfig "github.com/clinicdesk/dashboard/internal/config"
	"github.com/clinicdesk/dashboard/internal/http/handlers"
	httpmiddleware "github.com/clinicdesk/dashboard/internal/http/middleware"
	"github.com/clinicdesk/dashboard/internal/images"
	"github.com/clinicdesk/dashboard/internal/observability/metrics"
	"github.com/clinicdesk/dashboard/internal/schedule"
	"github.com/clinicdesk/dashboard/pkg/logging"
)

func main() {
	// Load .env for local development; ignore if absent
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinicdesk dashboard server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.StoreBaseURL == "" {
		logger.Error("STORE_BASE_URL is required")
		os.Exit(1)
	}
	if cfg.AuthBaseURL == "" || cfg.AuthAPIKey == "" {
		logger.Error("AUTH_BASE_URL and AUTH_API_KEY are required")
		os.Exit(1)
	}
	if cfg.SessionSecret == "" {
		logger.Error("SESSION_SECRET is required")
		os.Exit(1)
	}

	location, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		logger.Error("invalid clinic timezone", "timezone", cfg.ClinicTimezone, "error", err)
		os.Exit(1)
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	dashMetrics := metrics.NewDashboardMetrics(registry)

	// Redis response cache
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
		cancel()
		os.Exit(1)
	}
	cancel()
	cacheStore := cache.New(rdb, cfg.CacheTTL, logger, dashMetrics)

	// Upstream clients
	store, err := appointments.NewClient(appointments.Config{
		BaseURL: cfg.StoreBaseURL,
		APIKey:  cfg.StoreAPIKey,
		Timeout: cfg.StoreTimeout,
		Logger:  logger,
		Metrics: dashMetrics,
	})
	if err != nil {
		logger.Error("failed to create appointment store client", "error", err)
		os.Exit(1)
	}

	authClient, err := auth.NewClient(auth.Config{
		BaseURL: cfg.AuthBaseURL,
		APIKey:  cfg.AuthAPIKey,
		Timeout: cfg.AuthTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to create auth provider client", "error", err)
		os.Exit(1)
	}
	authManager := auth.NewManager(authClient, logger)

	var uploader handlers.Uploader
	if cfg.ImageUploadURL != "" && cfg.ImageAPIKey != "" {
		imageClient, err := images.NewClient(images.Config{
			UploadURL: cfg.ImageUploadURL,
			APIKey:    cfg.ImageAPIKey,
			Logger:    logger,
		})
		if err != nil {
			logger.Error("failed to create image host client", "error", err)
			os.Exit(1)
		}
		uploader = imageClient
	} else {
		logger.Warn("image host not configured, photo uploads disabled")
	}

	// Workflow services
	resolver := schedule.NewResolver(store, cacheStore, logger)
	bookingService := booking.NewService(store, resolver, cacheStore, logger, dashMetrics)

	// HTTP surface
	sessions := httpmiddleware.NewSessions(cfg.SessionSecret, cfg.SessionTTL, authManager, logger)
	appointmentsHandler := handlers.NewAppointments(handlers.AppointmentsConfig{
		Store:      store,
		Booking:    bookingService,
		Resolver:   resolver,
		Cache:      cacheStore,
		Location:   location,
		ClinicName: cfg.ClinicName,
		DoctorName: cfg.DoctorName,
		Logger:     logger,
	})
	profileHandler := handlers.NewProfile(authManager, sessions, uploader, logger)

	r := router.New(&router.Config{
		Logger:         logger,
		Appointments:   appointmentsHandler,
		Profile:        profileHandler,
		Sessions:       sessions,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()
	logger.Info("server listening", "addr", srv.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
