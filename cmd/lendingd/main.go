// Command lendingd runs the lending engine as a background service.
//
// It applies the schema, wires the engine against PostgreSQL, RabbitMQ and Redis, and runs the
// reservation expiry sweep on a fixed interval until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/book-lending-engine-go/circulation"
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/lending/oteladapters"
	"github.com/AntonStoeckl/book-lending-engine-go/lending/postgresengine"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell/audit"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell/config"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell/notify"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell/scheduler"
)

const (
	serviceName     = "lendingd"
	serviceVersion  = "dev"
	shutdownTimeout = 10 * time.Second

	envDBAdapter = "LENDING_DB_ADAPTER"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("could not load .env file", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("lendingd stopped with error", "error", err)
		stop()
		os.Exit(1) //nolint:gocritic
	}

	logger.Info("lendingd stopped")
}

//nolint:funlen
func run(ctx context.Context, logger *slog.Logger) error {
	policy, err := config.PolicyFromEnv()
	if err != nil {
		return err
	}

	workerConfig, err := config.WorkerConfigFromEnv()
	if err != nil {
		return err
	}

	var closers []func(context.Context) error
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		for i := len(closers) - 1; i >= 0; i-- {
			if closeErr := closers[i](shutdownCtx); closeErr != nil {
				logger.Warn("shutdown step failed", "error", closeErr)
			}
		}
	}()

	storeOptions := []postgresengine.Option{
		postgresengine.WithLogger(logger),
		postgresengine.WithContextualLogger(logger),
	}
	engineOptions := []circulation.Option{
		circulation.WithPolicy(policy),
		circulation.WithContextualLogger(logger),
	}
	schedulerOptions := []scheduler.Option{
		scheduler.WithContextualLogger(logger),
	}

	observabilityEnabled, err := config.ObservabilityEnabled()
	if err != nil {
		return err
	}

	if observabilityEnabled {
		providers, providerErr := config.NewObservabilityProviders(ctx, serviceName, serviceVersion)
		if providerErr != nil {
			return fmt.Errorf("set up observability: %w", providerErr)
		}
		closers = append(closers, providers.Shutdown)

		metrics := oteladapters.NewMetricsCollector(otel.Meter(serviceName))
		tracing := oteladapters.NewTracingCollector(otel.Tracer(serviceName))

		storeOptions = append(storeOptions, postgresengine.WithMetrics(metrics), postgresengine.WithTracing(tracing))
		engineOptions = append(engineOptions, circulation.WithMetrics(metrics), circulation.WithTracing(tracing))
		schedulerOptions = append(schedulerOptions, scheduler.WithMetrics(metrics))
	}

	logger.Info("observability configured", "enabled", observabilityEnabled)

	store, closeStore, err := openStore(ctx, logger, storeOptions...)
	if err != nil {
		return err
	}
	closers = append(closers, closeStore)

	if err = store.CreateSchema(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	deps := circulation.Dependencies{
		Store:   store,
		Users:   postgresengine.NewUserDirectory(store),
		History: postgresengine.NewHistoryRecorder(store),
	}

	notifier, closeNotifier := openNotifier(logger)
	if notifier != nil {
		deps.Notifier = notifier
		closers = append(closers, closeNotifier)
	}

	auditLog, closeAudit := openAuditLog(ctx, logger)
	deps.Audit = auditLog
	if closeAudit != nil {
		closers = append(closers, closeAudit)
	}

	engine, err := circulation.New(deps, engineOptions...)
	if err != nil {
		return err
	}

	stopScheduler, err := scheduler.New(schedulerOptions...).Start(ctx, engine.Expiry.Task(circulation.Schedule{
		Interval:       workerConfig.Interval,
		Timeout:        workerConfig.Timeout,
		RunImmediately: workerConfig.RunImmediately,
	}))
	if err != nil {
		return err
	}

	logger.Info("lendingd started",
		"max_active_loans", policy.MaxActiveLoans,
		"expiry_interval", workerConfig.Interval.String(),
	)

	<-ctx.Done()
	logger.Info("shutdown requested, waiting for running tasks")
	stopScheduler()

	return nil
}

func openStore(
	ctx context.Context,
	logger *slog.Logger,
	options ...postgresengine.Option,
) (postgresengine.Store, func(context.Context) error, error) {
	adapter := strings.ToLower(os.Getenv(envDBAdapter))
	if adapter == "" {
		adapter = "pgx"
	}

	logger.Info("using database adapter", "adapter", adapter)

	dsn := config.PostgresDSN()

	switch adapter {
	case "pgx":
		poolConfig, err := config.PostgresPGXPoolConfig(dsn)
		if err != nil {
			return postgresengine.Store{}, nil, err
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return postgresengine.Store{}, nil, err
		}

		store, err := postgresengine.NewStoreFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return postgresengine.Store{}, nil, err
		}

		return store, func(context.Context) error { pool.Close(); return nil }, nil

	case "sql", "sql.db":
		db, err := config.PostgresSQLDB(dsn)
		if err != nil {
			return postgresengine.Store{}, nil, err
		}

		store, err := postgresengine.NewStoreFromSQLDB(db, options...)
		if err != nil {
			return postgresengine.Store{}, nil, errors.Join(err, db.Close())
		}

		return store, func(context.Context) error { return db.Close() }, nil

	case "sqlx":
		db, err := config.PostgresSQLX(dsn)
		if err != nil {
			return postgresengine.Store{}, nil, err
		}

		store, err := postgresengine.NewStoreFromSQLX(db, options...)
		if err != nil {
			return postgresengine.Store{}, nil, errors.Join(err, db.Close())
		}

		return store, func(context.Context) error { return db.Close() }, nil

	default:
		return postgresengine.Store{}, nil, fmt.Errorf("unknown database adapter %q (supported: pgx, sql, sqlx)", adapter)
	}
}

// openNotifier connects to RabbitMQ. Without a broker the engine runs without notifications.
func openNotifier(logger *slog.Logger) (lending.NotificationGateway, func(context.Context) error) {
	gateway, conn, err := notify.Dial(config.RabbitMQURL(), config.NotificationQueue())
	if err != nil {
		logger.Warn("notifications disabled, rabbitmq unavailable", "error", err)
		return nil, nil
	}

	return gateway, func(context.Context) error { return conn.Close() }
}

// openAuditLog appends to a Redis stream and falls back to the service log when Redis is unreachable.
func openAuditLog(ctx context.Context, logger *slog.Logger) (lending.ActivityAuditLog, func(context.Context) error) {
	fallback := audit.NewSlogLog(logger)

	options, err := config.RedisOptions()
	if err != nil {
		logger.Warn("audit log falls back to service log", "error", err)
		return fallback, nil
	}

	client := redis.NewClient(options)

	if err = client.Ping(ctx).Err(); err != nil {
		logger.Warn("audit log falls back to service log, redis unavailable", "error", err)
		return fallback, func(context.Context) error { return client.Close() }
	}

	redisLog, err := audit.NewRedisStreamLog(client, config.AuditStream())
	if err != nil {
		return fallback, func(context.Context) error { return client.Close() }
	}

	return redisLog, func(context.Context) error { return client.Close() }
}
