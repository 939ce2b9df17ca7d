package main

import (
	"context"
	"errors"
	"ident_index_app_go/config"
	"ident_index_app_go/db"
	"ident_index_app_go/handlers"
	"ident_index_app_go/logger"
	"ident_index_app_go/middleware"
	"ident_index_app_go/models"
	"ident_index_app_go/services"
	"ident_index_app_go/services/jobs"
	"ident_index_app_go/services/notify"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	// Initialize database
	if err := db.Initialize(db.Options{
		Driver:      cfg.DBDriver,
		Path:        cfg.DBPath,
		DatabaseURL: cfg.DatabaseURL,
		Environment: cfg.Environment,
	}); err != nil {
		zl.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.All()...); err != nil {
		zl.Fatal("Failed to run migrations", zap.Error(err))
	}
	if _, err := services.SeedReferenceData(db.DB); err != nil {
		zl.Fatal("Failed to seed reference data", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(reg)

	pub, err := notify.GetPublisher(cfg.Publisher, notify.Options{
		Brokers:  cfg.KafkaBrokers,
		ClientID: cfg.ServiceName,
		Logger:   zl,
	})
	if err != nil {
		zl.Fatal("Failed to create publisher", zap.Error(err))
	}
	defer pub.Close()

	relay := jobs.NewOutboxRelay(db.DB, pub, cfg, metrics, zl)

	purge, err := jobs.StartOutboxPurge(db.DB, cfg, zl)
	if err != nil {
		zl.Fatal("Failed to schedule outbox purge", zap.Error(err))
	}
	defer purge.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestLogger(zl))
	e.Use(echomiddleware.Recover())

	// Ops routes
	e.GET("/healthz", handlers.HealthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	auditLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Requests: 60,
		Window:   time.Minute,
		Message:  "Rate limit exceeded. Please slow down your requests.",
	})
	audit := e.Group("/audit", auditLimiter.Middleware())
	audit.GET("", handlers.GetAuditLogsHandler)
	audit.GET("/:sid", handlers.GetSubjectAuditHandler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return relay.Run(gctx, cfg.OutboxPollInterval)
	})
	g.Go(func() error {
		auditLimiter.Run(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		zl.Info("Ops server listening", zap.String("addr", cfg.MetricsAddr))
		if err := e.Start(cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zl.Error("Server stopped with error", zap.Error(err))
		return
	}
	zl.Info("Server stopped")
}
