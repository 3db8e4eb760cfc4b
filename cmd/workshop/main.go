package main

import (
	"context"
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
	"github.com/autocare/workshop/internal/customers"
	"github.com/autocare/workshop/internal/dashboard"
	"github.com/autocare/workshop/internal/observability"
	"github.com/autocare/workshop/internal/payments"
	"github.com/autocare/workshop/internal/platform/cache"
	"github.com/autocare/workshop/internal/platform/db"
	"github.com/autocare/workshop/internal/realtime"
	"github.com/autocare/workshop/internal/receipts"
	"github.com/autocare/workshop/internal/shared"
	"github.com/autocare/workshop/internal/view"
	"github.com/autocare/workshop/jobs"
	"github.com/autocare/workshop/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
	location := cfg.Location()

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	money, err := view.NewMoney(cfg.Currency)
	if err != nil {
		logger.Error("currency", slog.Any("error", err))
		os.Exit(1)
	}
	templates, err := view.NewEngine(
		view.WithMoney(money),
		view.WithLocation(location),
		view.WithWorkshopName(cfg.WorkshopName),
	)
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, "workshop_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	authService := auth.NewService(auth.NewRepository(dbpool), cfg.DefaultStaffPIN)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)
	authHandler.SetAuditor(auditLogger)

	menu := catalog.NewMenu(catalog.NewRepository(dbpool), cache.NewVersioned(redisClient, "catalog", time.Hour), logger)
	if err := menu.EnsureSeeded(ctx); err != nil {
		logger.Warn("seed service catalog", slog.Any("error", err))
	}

	hub := realtime.NewHub(logger)
	bus := realtime.NewBus(redisClient, hub, logger)
	go func() {
		if err := bus.Relay(ctx, nil); err != nil && ctx.Err() == nil {
			logger.Error("realtime relay", slog.Any("error", err))
		}
	}()

	dashboardCache := cache.NewVersioned(redisClient, "dashboard", 5*time.Minute)

	bookingService := bookings.NewService(bookings.NewRepository(dbpool), menu, logger)
	bookingService.WithLocation(location)
	bookingService.SetPayments(payments.NewClient(cfg.PaymentFunctionURL, cfg.PaymentTimeout))
	bookingService.SetPublisher(bus)
	bookingService.SetInvalidator(dashboardCache)
	bookingService.SetIdempotency(idempotencyStore)
	bookingService.SetAuditor(auditLogger)
	bookingService.SetMetrics(metrics)

	redisOpts, err := jobs.RedisConnOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address for jobs", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.PaymentAsync {
		jobClient := jobs.NewClient(redisOpts)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		bookingService.SetEnqueuer(jobClient)
	}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("jobs inspector close", slog.Any("error", err))
		}
	}()

	dashboardService := dashboard.NewService(dashboard.NewRepository(dbpool), dashboardCache, logger)
	dashboardService.WithLocation(location)
	dashboardService.SetAuditor(auditLogger)

	customerService := customers.NewService(customers.NewRepository(dbpool), bookingService)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	receiptRenderer, err := receipts.NewRenderer(receipts.Workshop{
		Name:    cfg.WorkshopName,
		Phone:   cfg.WorkshopPhone,
		Address: cfg.WorkshopAddress,
	}, money, location)
	if err != nil {
		logger.Error("init receipt renderer", slog.Any("error", err))
		os.Exit(1)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		Metrics:          metrics,
		AuthHandler:      authHandler,
		DashboardHandler: dashboard.NewHandler(logger, dashboardService, bookingService, templates, csrfManager),
		BookingHandler:   bookings.NewHandler(logger, bookingService, menu, templates, csrfManager),
		BookingAPI:       bookings.NewAPIHandler(logger, bookingService),
		CustomerHandler:  customers.NewHandler(logger, customerService, templates, csrfManager),
		ReceiptHandler:   receipts.NewHandler(logger, receipts.NewService(bookingService), receiptRenderer, pdfClient, templates, csrfManager),
		ReportHandler:    report.NewHandler(pdfClient, logger),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Realtime:         hub,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Bool("demo_payments", cfg.DemoPayments()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
