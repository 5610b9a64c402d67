package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	compliancesvc "github.com/xborder/backend/internal/application/compliance"
	integrationsvc "github.com/xborder/backend/internal/application/integration"
	logisticssvc "github.com/xborder/backend/internal/application/logistics"
	taxsvc "github.com/xborder/backend/internal/application/tax"
	"github.com/xborder/backend/internal/domain/relief"
	domaintax "github.com/xborder/backend/internal/domain/tax"
	"github.com/xborder/backend/internal/infrastructure/cache"
	"github.com/xborder/backend/internal/infrastructure/carrier"
	"github.com/xborder/backend/internal/infrastructure/config"
	"github.com/xborder/backend/internal/infrastructure/logger"
	"github.com/xborder/backend/internal/infrastructure/migration"
	"github.com/xborder/backend/internal/infrastructure/persistence"
	"github.com/xborder/backend/internal/infrastructure/ratesource"
	"github.com/xborder/backend/internal/infrastructure/scheduler"
	"github.com/xborder/backend/internal/infrastructure/storage"
	"github.com/xborder/backend/internal/infrastructure/telemetry"
	"github.com/xborder/backend/internal/interfaces/http/handler"
	"github.com/xborder/backend/internal/interfaces/http/middleware"
	"github.com/xborder/backend/internal/interfaces/http/router"
)

// accumulationPurgeInterval is how often ended relief periods are dropped
// from the postgres store
const accumulationPurgeInterval = time.Hour

// app owns every long-lived collaborator of the server
type app struct {
	log       *zap.Logger
	server    *http.Server
	closers   []namedCloser
	closeOnce sync.Once
}

type namedCloser struct {
	name string
	fn   func() error
}

func (a *app) onClose(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, fn: fn})
}

// close releases resources in reverse order of acquisition
func (a *app) close() {
	a.closeOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			c := a.closers[i]
			if err := c.fn(); err != nil {
				a.log.Error("Error closing "+c.name, zap.Error(err))
			}
		}
	})
}

// newApp wires config into telemetry, stores, the rate source, carriers,
// the decision services and finally the HTTP server
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *app, err error) {
	a := &app{log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// Telemetry
	telCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}
	tp, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		return nil, fmt.Errorf("tracer provider: %w", err)
	}
	a.onClose("tracer provider", func() error { return tp.Shutdown(context.Background()) })

	mp, err := telemetry.NewMeterProvider(ctx, telCfg, log)
	if err != nil {
		return nil, fmt.Errorf("meter provider: %w", err)
	}
	a.onClose("meter provider", func() error { return mp.Shutdown(context.Background()) })

	lp, err := telemetry.NewLoggerProvider(ctx, telCfg, log)
	if err != nil {
		return nil, fmt.Errorf("logger provider: %w", err)
	}
	a.onClose("logger provider", func() error { return lp.Shutdown(context.Background()) })
	exportLevel, err := zapcore.ParseLevel(cfg.Telemetry.LogsMinLevel)
	if err != nil {
		exportLevel = zapcore.InfoLevel
	}
	log = lp.Bridge(log, exportLevel)
	a.log = log

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServerAddr,
		ApplicationName: cfg.Telemetry.ServiceName,
		Contention:      cfg.Telemetry.ProfilingContention,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("profiler: %w", err)
	}
	a.onClose("profiler", profiler.Stop)
	if profiler.IsEnabled() {
		tp.LinkProfiles()
	}

	meter := mp.Meter(cfg.Telemetry.ServiceName)
	metrics, err := telemetry.NewDecisionMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("decision metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	health := handler.NewHealthHandler(version, log)

	// Shared stores
	factoryOpts := []cache.StoreFactoryOption{cache.WithLogger(log)}
	if usesRedis(cfg) {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		factoryOpts = append(factoryOpts, cache.WithRedisClient(client))
		health.AddCheck("redis", redisCheck(client))
	}
	stores := cache.NewStoreFactory(cfg, factoryOpts...)
	a.onClose("redis client", stores.Close)

	quoteCache, err := stores.QuoteCache()
	if err != nil {
		return nil, err
	}
	bookingKeys, err := stores.IdempotencyStore()
	if err != nil {
		return nil, err
	}
	a.onClose("idempotency store", bookingKeys.Close)

	accumulation, err := a.accumulationStore(ctx, cfg, stores, health)
	if err != nil {
		return nil, err
	}
	if err := a.startMaintenance(ctx, accumulation); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	// Rates and relief
	rates := ratesource.NewCachedSource(ratesource.NewStaticSource(), cfg.Tax.RateCacheTTL, log)
	a.onClose("rate cache", rates.Close)
	evaluator := relief.NewEvaluator(rates, relief.WithAccumulationStore(accumulation))

	// Carriers
	documents, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	registry, err := carrier.BuildRegistry(cfg.Carriers, carrier.FactoryDeps{
		Logger:    log,
		Documents: documents,
		Metrics:   metrics,
		Retry: carrier.RetryPolicy{
			MaxAttempts:  cfg.Logistics.RetryMaxAttempts,
			InitialDelay: cfg.Logistics.RetryInitialDelay,
			MaxDelay:     cfg.Logistics.RetryMaxDelay,
		},
		Timeout: cfg.Logistics.ProviderTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("carriers: %w", err)
	}
	log.Info("Carriers registered", zap.Int("count", registry.Len()))

	// Services
	taxResults := cache.NewTTLCache[*domaintax.CalculationResult](
		cache.WithTTL(cfg.Tax.CacheTTL),
		cache.WithName("tax_results"),
		cache.WithCacheLogger(log),
	)
	a.onClose("tax result cache", taxResults.Close)
	calculator := taxsvc.NewCalculatorService(rates, evaluator,
		taxsvc.WithLogger(log),
		taxsvc.WithResultCache(taxResults),
		taxsvc.WithMetrics(metrics),
	)
	validator := compliancesvc.NewValidatorService(rates, evaluator,
		compliancesvc.WithLogger(log),
		compliancesvc.WithMetrics(metrics),
	)

	aggOpts := []logisticssvc.Option{
		logisticssvc.WithLogger(log),
		logisticssvc.WithQuoteCacheTTL(cfg.Logistics.QuoteCacheTTL),
		logisticssvc.WithProviderTimeout(cfg.Logistics.ProviderTimeout),
		logisticssvc.WithCurrencyConverter(rates),
		logisticssvc.WithMetrics(metrics),
	}
	if quoteCache != nil {
		aggOpts = append(aggOpts, logisticssvc.WithSharedCache(quoteCache))
	}
	aggregator := logisticssvc.NewAggregatorService(registry, aggOpts...)
	a.onClose("quote aggregator", aggregator.Close)

	orchestrator := integrationsvc.NewOrchestratorService(calculator, aggregator,
		integrationsvc.WithLogger(log),
		integrationsvc.WithMetrics(metrics),
	)

	// HTTP
	engine := router.New(cfg.HTTP, cfg.Telemetry.Enabled, log, router.Handlers{
		Tax:         handler.NewTaxHandler(calculator, validator, log),
		Quotes:      handler.NewQuoteHandler(aggregator, log),
		Integration: handler.NewIntegrationHandler(orchestrator, log),
		Shipments:   handler.NewShipmentHandler(aggregator, calculator, bookingKeys, cfg.Logistics.BookingKeyTTL, log),
		Health:      health,
	},
		router.WithServiceName(cfg.Telemetry.ServiceName),
		router.WithMetrics(httpMetrics),
		router.WithSwagger(cfg.HTTP.SwaggerEnabled),
	)
	a.server = router.Server(cfg.App.Port, cfg.HTTP, engine)
	return a, nil
}

// accumulationStore builds the relief usage store. The postgres backend is
// migrated on startup.
func (a *app) accumulationStore(ctx context.Context, cfg *config.Config, stores *cache.StoreFactory, health *handler.HealthHandler) (relief.AccumulationStore, error) {
	if cfg.Accumulation.Backend != config.BackendPostgres {
		return stores.AccumulationStore()
	}

	if err := migrateDatabase(cfg, a.log); err != nil {
		return nil, err
	}

	tracing := telemetry.DefaultDBTracingConfig()
	tracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	tracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	gormLog := logger.NewGormLogger(a.log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithTracing(telemetry.NewDBTracingPlugin(tracing, a.log)),
	)
	if err != nil {
		return nil, err
	}
	a.onClose("database", db.Close)
	health.AddCheck("database", db.Ping)
	a.log.Info("Database connected successfully")

	return persistence.NewGormAccumulationStore(db.DB, a.log), nil
}

// migrateDatabase applies the embedded migrations on a dedicated
// connection; the migrator closes it when done
func migrateDatabase(cfg *config.Config, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

// expiringStore is an accumulation store that keeps counters of ended
// periods until they are purged
type expiringStore interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// startMaintenance schedules the background purge of ended relief periods
func (a *app) startMaintenance(ctx context.Context, store relief.AccumulationStore) error {
	purger, ok := store.(expiringStore)
	if !ok {
		return nil
	}
	jobs := scheduler.NewScheduler(scheduler.DefaultConfig(), a.log)
	err := jobs.Register(scheduler.Task{
		Name:     "relief_accumulation_purge",
		Interval: accumulationPurgeInterval,
		Run: func(ctx context.Context) error {
			n, err := purger.PurgeExpired(ctx, time.Now())
			if err != nil {
				return err
			}
			if n > 0 {
				a.log.Info("Purged ended relief periods", zap.Int64("counters", n))
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	if err := jobs.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	a.onClose("scheduler", func() error {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return jobs.Stop(stopCtx)
	})
	return nil
}

func usesRedis(cfg *config.Config) bool {
	return cfg.Cache.Backend == config.BackendRedis || cfg.Accumulation.Backend == config.BackendRedis
}

func redisCheck(client *redis.Client) handler.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
