package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	financeapp "github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/application/notification"
	revenueapp "github.com/erp/settlement/internal/application/revenue"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/cache"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/event"
	"github.com/erp/settlement/internal/infrastructure/idgen"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/migration"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/erp/settlement/internal/infrastructure/scheduler"
	"github.com/erp/settlement/internal/infrastructure/storage"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/erp/settlement/internal/interfaces/http/handler"
	"github.com/erp/settlement/internal/interfaces/http/router"
	"github.com/erp/settlement/migrations"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ledger server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, log := setupTelemetry(ctx, cfg, log)
	defer tel.shutdown(log)

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	}
	if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}

	if err := migrate(db, log); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}

	// Ledger metrics
	var ledgerMetrics *telemetry.LedgerMetrics
	if tel.meter != nil {
		ledgerMetrics, err = telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
			Meter:           tel.meter,
			Logger:          log,
			BalanceProvider: telemetry.NewGormBalanceMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Ledger metrics disabled", zap.Error(err))
		} else {
			ledgerMetrics.StartPeriodicCollection(ctx, telemetry.NewGormTenantProvider(db.DB), cfg.Telemetry.BalanceCollectInterval)
			defer ledgerMetrics.Stop()
		}
	}

	// Idempotency store backing event dedupe and payout runs
	store, err := cache.NewIdempotencyStore(ctx, cfg.Redis, cfg.IsProduction(), log)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Event bus
	bus := event.NewInMemoryEventBus(log, event.OptionsFromConfig(cfg.Event)...)
	dedupe := event.SubscribeIdempotent(bus, store, log, cfg.Event.DedupeTTL,
		notification.NewIntentHandler(notification.NewLogSink(log), log),
	)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	numbers, err := idgen.NewSnowflakeGenerator(cfg.IDGen.NodeID)
	if err != nil {
		log.Fatal("Failed to create document number generator", zap.Error(err))
	}

	svc := newServices(ctx, cfg, db, numbers, bus, ledgerMetrics, log)

	// Scheduler
	var jobs *scheduler.LedgerScheduler
	if cfg.Scheduler.Enabled {
		jobs, err = newScheduler(cfg, db, svc, store, log)
		if err != nil {
			log.Fatal("Failed to create scheduler", zap.Error(err))
		}
		if err := jobs.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
	}

	// HTTP
	payments := handler.NewPaymentHandler(svc.payments)
	engine := router.NewEngine(router.Options{
		Logger:           log,
		HTTP:             cfg.HTTP,
		DefaultTenantID:  cfg.App.DefaultTenantID,
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   tel.tracer.IsEnabled(),
		Meter:            tel.meter,
		ProfilingEnabled: tel.profiler != nil && tel.profiler.IsEnabled(),
	}, router.Handlers{
		Invoices:    handler.NewBillingHandler(finance.DocumentKindInvoice, svc.billing, svc.aging),
		Bills:       handler.NewBillingHandler(finance.DocumentKindBill, svc.billing, svc.aging),
		Payments:    payments,
		Parties:     handler.NewPartyHandler(svc.balances, payments),
		Revenue:     handler.NewRevenueHandler(svc.orders, svc.commissions),
		Collections: handler.NewCollectionHandler(svc.collections),
		Payouts:     handler.NewPayoutHandler(svc.payouts, svc.summaries),
		Health:      handler.NewHealthHandler(db, version),
	})

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	stop()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if jobs != nil {
		if err := jobs.Stop(shutdownCtx); err != nil {
			log.Error("Scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not drain", zap.Error(err))
	}

	stats := dedupe.Stats()
	log.Info("Server exited gracefully",
		zap.Int64("events_handled", stats.Processed),
		zap.Int64("events_deduplicated", stats.Duplicate),
		zap.Int64("events_failed", stats.Failed),
	)
}

// observability holds the telemetry providers started for the process
type observability struct {
	tracer   *telemetry.TracerProvider
	meters   *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
	meter    metric.Meter
}

// setupTelemetry starts tracing, metrics, log export and profiling. Failures
// downgrade to disabled signals; the returned logger is bridged to OTLP when
// log export is on.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*observability, *zap.Logger) {
	t := cfg.Telemetry
	obs := &observability{}

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           t.Enabled,
		CollectorEndpoint: t.CollectorEndpoint,
		SamplingRatio:     t.SamplingRatio,
		ServiceName:       t.ServiceName,
		ServiceVersion:    version,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
		tracer, _ = telemetry.NewTracerProvider(ctx, telemetry.Config{}, log)
	}
	obs.tracer = tracer

	meters, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           t.MetricsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ExportInterval:    t.MetricsExportInterval,
		ServiceName:       t.ServiceName,
		ServiceVersion:    version,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Warn("Metrics disabled", zap.Error(err))
	} else {
		obs.meters = meters
		if meters.IsEnabled() {
			obs.meter = meters.Meter(t.ServiceName)
		}
	}

	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           t.LogsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ServiceName:       t.ServiceName,
		ServiceVersion:    version,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Warn("Log export disabled", zap.Error(err))
	} else {
		obs.logs = logs
		if logs.IsEnabled() {
			level, err := zapcore.ParseLevel(t.LogsMinLevel)
			if err != nil {
				level = zapcore.InfoLevel
			}
			log = logs.Bridge(log, level)
		}
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           t.ProfilingEnabled,
		ServerAddress:     t.PyroscopeAddress,
		ApplicationName:   t.ServiceName,
		BasicAuthUser:     t.PyroscopeUser,
		BasicAuthPassword: t.PyroscopePassword,
		ProfileTypes:      t.ProfileTypes,
	}, log)
	if err != nil {
		log.Warn("Profiling disabled", zap.Error(err))
	} else {
		obs.profiler = profiler
		if profiler.IsEnabled() {
			tracer.EnableSpanProfiles()
		}
	}

	return obs, log
}

func (o *observability) shutdown(log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if o.profiler != nil {
		if err := o.profiler.Stop(); err != nil {
			log.Warn("Profiler stop failed", zap.Error(err))
		}
	}
	if o.meters != nil {
		if err := o.meters.Shutdown(ctx); err != nil {
			log.Warn("Meter provider shutdown failed", zap.Error(err))
		}
	}
	if err := o.tracer.Shutdown(ctx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}
	if o.logs != nil {
		if err := o.logs.Shutdown(ctx); err != nil {
			log.Warn("Logger provider shutdown failed", zap.Error(err))
		}
	}
}

// migrate applies the embedded schema migrations
func migrate(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	return m.Up()
}

// services groups the application services behind the HTTP handlers
type services struct {
	billing     *financeapp.BillingService
	aging       *financeapp.AgingService
	payments    *financeapp.PaymentAllocator
	balances    *financeapp.BalanceService
	orders      *revenueapp.OrderRevenueService
	commissions *revenueapp.CommissionService
	collections *revenueapp.ReconciliationService
	payouts     *revenueapp.PayoutBatchGenerator
	summaries   *revenueapp.PayoutSummaryService
}

func newServices(
	ctx context.Context,
	cfg *config.Config,
	db *persistence.Database,
	numbers shared.NumberGenerator,
	bus shared.EventPublisher,
	metrics *telemetry.LedgerMetrics,
	log *zap.Logger,
) *services {
	ledgerScope := persistence.NewLedgerTransactionScope(db.DB)
	revenueScope := persistence.NewRevenueTransactionScope(db.DB)

	documentRepo := persistence.NewGormBillingDocumentRepository(db.DB)
	partyRepo := persistence.NewGormPartyAccountRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	orderRepo := persistence.NewGormOrderRevenueRepository(db.DB)
	payoutRepo := persistence.NewGormPayoutRepository(db.DB)
	collectionRepo := persistence.NewGormPaymentCollectionRepository(db.DB)

	finOpts := []financeapp.Option{
		financeapp.WithEventPublisher(bus),
		financeapp.WithLedgerMetrics(metrics),
		financeapp.WithLogger(log),
	}
	revOpts := []revenueapp.Option{
		revenueapp.WithEventPublisher(bus),
		revenueapp.WithLedgerMetrics(metrics),
		revenueapp.WithLogger(log),
	}

	engine := revenue.NewCommissionEngine(revenue.DefaultRateTable())

	var policy revenue.DeductionPolicy = revenue.NoDeductions{}
	if cfg.Payout.DeductionFlatFee.IsPositive() {
		policy = revenue.FlatFeeDeduction{Fee: cfg.Payout.DeductionFlatFee}
	}
	payouts := revenueapp.NewPayoutBatchGenerator(revenueScope, orderRepo, payoutRepo, numbers, policy,
		revenueapp.PayoutConfig{ScheduledDelay: cfg.Payout.ScheduledDelay()}, revOpts...)
	payouts.SetStatementExporter(newStatementExporter(ctx, cfg, log))

	return &services{
		billing:     financeapp.NewBillingService(ledgerScope, documentRepo, numbers, finOpts...),
		aging:       financeapp.NewAgingService(documentRepo, finOpts...),
		payments:    financeapp.NewPaymentAllocator(ledgerScope, paymentRepo, numbers, finOpts...),
		balances:    financeapp.NewBalanceService(ledgerScope, partyRepo, finOpts...),
		orders:      revenueapp.NewOrderRevenueService(revenueScope, orderRepo, engine, revOpts...),
		commissions: revenueapp.NewCommissionService(engine),
		collections: revenueapp.NewReconciliationService(revenueScope, collectionRepo, numbers, revOpts...),
		payouts:     payouts,
		summaries:   revenueapp.NewPayoutSummaryService(orderRepo, payoutRepo, revOpts...),
	}
}

// newStatementExporter writes payout statements to S3 when storage is
// enabled and keeps them in memory otherwise
func newStatementExporter(ctx context.Context, cfg *config.Config, log *zap.Logger) *storage.StatementExporter {
	renderer := storage.NewStatementRenderer(cfg.Storage.Locale)
	if !cfg.Storage.Enabled {
		log.Info("Statement storage disabled, keeping statements in memory")
		return storage.NewStatementExporter(storage.NewMemoryStorage(), renderer, cfg.Storage.Prefix, log)
	}

	s3, err := storage.NewS3ObjectStorage(ctx, &cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to create statement storage", zap.Error(err))
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		log.Fatal("Statement bucket unavailable", zap.Error(err))
	}
	return storage.NewStatementExporter(s3, renderer, cfg.Storage.Prefix, log)
}

func newScheduler(
	cfg *config.Config,
	db *persistence.Database,
	svc *services,
	runs shared.IdempotencyStore,
	log *zap.Logger,
) (*scheduler.LedgerScheduler, error) {
	var tenants scheduler.TenantProvider = telemetry.NewGormTenantProvider(db.DB)
	if len(cfg.Scheduler.TenantIDs) > 0 {
		static, err := scheduler.ParseTenantIDs(cfg.Scheduler.TenantIDs)
		if err != nil {
			return nil, err
		}
		tenants = static
	}

	executor := scheduler.NewLedgerJobExecutor(svc.payouts, svc.balances, runs, log)
	return scheduler.NewLedgerScheduler(cfg.Scheduler, executor, tenants, shared.SystemClock(), log)
}
