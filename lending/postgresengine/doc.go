// Package postgresengine provides a PostgreSQL implementation of lending.Store.
//
// Every unit of work runs in a transaction with isolation level SERIALIZABLE, and all rows a use case
// is going to change are re-read with SELECT ... FOR UPDATE. Serialization failures, deadlocks, and
// unique violations are reported as lending.ErrConcurrencyConflict so the command handlers can retry.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - All SQL built with goqu, configurable table names
//   - Dual logging (plain and trace-correlated), metrics, and tracing through dependency-free interfaces
//   - HistoryRecorder and UserDirectory collaborators on the same connection
//
// Usage examples:
//
//	pool, _ := pgxpool.New(ctx, dsn)
//	store, _ := postgresengine.NewStoreFromPGXPool(
//		pool,
//		postgresengine.WithLogger(logger),
//		postgresengine.WithMetrics(metricsCollector),
//	)
//
//	_ = store.CreateSchema(ctx)
//	history := postgresengine.NewHistoryRecorder(store)
//	users := postgresengine.NewUserDirectory(store)
package postgresengine
