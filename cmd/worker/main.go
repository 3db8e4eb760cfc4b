package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/autocare/workshop/internal/app"
	"github.com/autocare/workshop/internal/auth"
	"github.com/autocare/workshop/internal/bookings"
	"github.com/autocare/workshop/internal/catalog"
	jobmetrics "github.com/autocare/workshop/internal/jobs"
	"github.com/autocare/workshop/internal/observability"
	"github.com/autocare/workshop/internal/payments"
	"github.com/autocare/workshop/internal/platform/cache"
	"github.com/autocare/workshop/internal/platform/db"
	"github.com/autocare/workshop/internal/realtime"
	"github.com/autocare/workshop/internal/shared"
	"github.com/autocare/workshop/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	menu := catalog.NewMenu(catalog.NewRepository(pool), cache.NewVersioned(redisClient, "catalog", time.Hour), logger)
	bookingService := bookings.NewService(bookings.NewRepository(pool), menu, logger)
	bookingService.WithLocation(cfg.Location())
	bookingService.SetPayments(payments.NewClient(cfg.PaymentFunctionURL, cfg.PaymentTimeout))
	// Events go through Redis; the web processes relay them to browsers.
	bookingService.SetPublisher(realtime.NewBus(redisClient, nil, logger))
	bookingService.SetInvalidator(cache.NewVersioned(redisClient, "dashboard", 5*time.Minute))
	bookingService.SetAuditor(shared.NewAuditLogger(pool))
	bookingService.SetMetrics(metrics)

	authService := auth.NewService(auth.NewRepository(pool), cfg.DefaultStaffPIN)

	paymentJob := jobs.NewPaymentLinkJob(bookingService, logger, jobMetrics)
	cleanupJob := jobs.NewCleanupJob(shared.NewIdempotencyStore(pool), authService, logger, jobMetrics)

	redisOpts, err := jobs.RedisConnOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address for jobs", slog.Any("error", err))
		os.Exit(1)
	}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    cfg.Location(),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPaymentLinkSend, Handler: paymentJob.Handle},
			{Type: jobs.TaskMaintenanceCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.CleanupSchedule, Task: jobs.NewCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.WorkerMetricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
